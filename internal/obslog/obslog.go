// Package obslog wraps logrus into the fixed field set every query-
// engine log line carries, grounded on dolthub's AuditLog
// (WithFields(logrus.Fields{...}).Info(...)) pattern.
package obslog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Fields are the stable keys a log line is expected to carry: which
// query, which graph, which operator and plan phase emitted it.
type Fields struct {
	QueryID string
	Graph   string
	Op      string
	Phase   string
}

func (f Fields) toLogrus() logrus.Fields {
	lf := logrus.Fields{}
	if f.QueryID != "" {
		lf["query_id"] = f.QueryID
	}
	if f.Graph != "" {
		lf["graph"] = f.Graph
	}
	if f.Op != "" {
		lf["op"] = f.Op
	}
	if f.Phase != "" {
		lf["phase"] = f.Phase
	}
	return lf
}

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel adjusts the base logger's level (wired from internal/config).
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	base.SetLevel(lvl)
	return nil
}

// With returns a logrus.Entry pre-populated with the given fields,
// ready for .Info/.Warn/.Error/.Debug.
func With(f Fields) *logrus.Entry {
	return base.WithFields(f.toLogrus())
}

// Query returns an entry scoped to one query's lifetime, used by the
// engine's command dispatch (plan operators do not log).
func Query(queryID, graph string) *logrus.Entry {
	return With(Fields{QueryID: queryID, Graph: graph})
}
