// Package phantom tracks the symbolic-execution side of an evaluation: the
// branches the interpreter decided not to enter (phantoms) and their
// per-origin coverage. Value provenance lives in the value graph
// (value.Store), not here. The log is observational:
// entries accumulate in evaluation order and survive evaluation failure.
package phantom

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Miss records one unentered branch: the phantom id from the IL plus the
// conjunction of enclosing guards that were live when the branch was
// skipped (the context path, rendered).
type Miss struct {
	PID  int      `json:"pid"`
	Path []string `json:"path,omitempty"`
}

// Log is the per-evaluation phantom log. A log belongs to exactly one
// evaluation; it is not safe for concurrent use and never needs to be.
type Log struct {
	misses []Miss
}

// NewLog returns an empty log.
func NewLog() *Log { return &Log{} }

// Record appends a miss. The path slice is copied; callers may reuse it.
func (l *Log) Record(pid int, path []string) {
	p := make([]string, len(path))
	copy(p, path)
	l.misses = append(l.misses, Miss{PID: pid, Path: p})
}

// Misses returns the recorded misses in evaluation order.
func (l *Log) Misses() []Miss { return l.misses }

// PIDs returns the distinct missed phantom ids, ascending.
func (l *Log) PIDs() []int {
	seen := make(map[int]bool)
	var pids []int
	for _, m := range l.misses {
		if !seen[m.PID] {
			seen[m.PID] = true
			pids = append(pids, m.PID)
		}
	}
	sort.Ints(pids)
	return pids
}

// Report is the JSON document one evaluation emits for the fuzzer: which
// phantoms this origin missed, under which run.
type Report struct {
	RunID    string    `json:"run_id"`
	Origin   string    `json:"origin"`
	Relation string    `json:"relation"`
	Failed   bool      `json:"failed,omitempty"`
	Error    string    `json:"error,omitempty"`
	When     time.Time `json:"when"`
	Misses   []Miss    `json:"misses"`
}

// NewReport assembles a report for an origin, stamping a fresh run id.
func NewReport(origin, relation string, l *Log) *Report {
	misses := l.Misses()
	if misses == nil {
		misses = []Miss{}
	}
	return &Report{
		RunID:    uuid.NewString(),
		Origin:   origin,
		Relation: relation,
		When:     time.Now().UTC(),
		Misses:   misses,
	}
}

// Marshal renders the report as indented JSON.
func (r *Report) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
