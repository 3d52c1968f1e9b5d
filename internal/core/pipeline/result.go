package pipeline

import (
	"time"

	"molgraph/internal/core/errors"
	"molgraph/internal/data/graphstore"
)

// Outcome is what happened to one query.
type Outcome struct {
	Key      string
	Kind     string
	Worker   int
	Duration time.Duration
	Nodes    int
	Edges    int
	// Output is the file holding the entry; empty when the query failed.
	Output string
	Err    error
}

func (o Outcome) Succeeded() bool { return o.Err == nil }

// ErrorCode is the code of Err, or empty on success.
func (o Outcome) ErrorCode() string {
	if o.Err == nil {
		return ""
	}
	return string(errors.CodeOf(o.Err))
}

// Result describes a finished Process call.
type Result struct {
	// Paths lists the output files: one combined file, or one per worker that
	// wrote at least one entry, in worker order.
	Paths []string
	// Outcomes follows the collection's insertion order.
	Outcomes []Outcome
	Workers  int
	Merge    *graphstore.MergeReport
	Elapsed  time.Duration
}

func (r *Result) Succeeded() []string { return r.keys(true) }

func (r *Result) Failed() []string { return r.keys(false) }

func (r *Result) keys(ok bool) []string {
	out := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Succeeded() == ok {
			out = append(out, o.Key)
		}
	}
	return out
}
