package graph

import "github.com/cyphercore/graphengine/internal/types"

// idAllocator hands out dense EntityIDs, reusing ones freed by deletion
// (spec.md §3: "IDs are dense and re-used after deletion").
type idAllocator struct {
	next types.EntityID
	free []types.EntityID
}

func (a *idAllocator) alloc() types.EntityID {
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		return id
	}
	id := a.next
	a.next++
	return id
}

func (a *idAllocator) release(id types.EntityID) {
	a.free = append(a.free, id)
}

// reserve advances next past id without handing it out, used when
// restoring a persisted graph (internal/serialization) whose nodes and
// edges carry their original ids — every later alloc() must still
// produce ids the restored set never used.
func (a *idAllocator) reserve(id types.EntityID) {
	if id >= a.next {
		a.next = id + 1
	}
}

func (a *idAllocator) clone() idAllocator {
	free := make([]types.EntityID, len(a.free))
	copy(free, a.free)
	return idAllocator{next: a.next, free: free}
}
