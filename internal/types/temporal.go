package types

import (
	"math"

	"github.com/cyphercore/graphengine/internal/engerr"
)

// AddSeconds returns a new temporal value offset by delta seconds,
// returning an error instead of clamping on overflow (Open Question
// resolution: the original clamps via an INT32_MIN sentinel; this
// implementation reports a typed error).
func AddSeconds(v SIValue, delta int64) (SIValue, error) {
	if !isTemporal(v.Kind) {
		return SIValue{}, engerr.TypeMismatch("value of type %s is not temporal", v.Kind)
	}
	sum := v.Temporal.Seconds + delta
	if (delta > 0 && sum < v.Temporal.Seconds) || (delta < 0 && sum > v.Temporal.Seconds) {
		return SIValue{}, engerr.TypeMismatch("temporal arithmetic overflow adding %d seconds", delta)
	}
	if sum > math.MaxInt64-1 || sum < math.MinInt64+1 {
		return SIValue{}, engerr.TypeMismatch("temporal arithmetic overflow adding %d seconds", delta)
	}
	out := v
	out.Temporal.Seconds = sum
	return out, nil
}

func isTemporal(k ValueKind) bool {
	switch k {
	case KindDate, KindTime, KindLocalTime, KindDateTime, KindLocalDateTime:
		return true
	default:
		return false
	}
}
