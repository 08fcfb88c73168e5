package engine

import "fmt"

// State tracks a file's progress through the pipeline.
type State int

const (
	NotStarted State = iota
	TableCreated
	Streaming
	Finalized
	AbortedFatal
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case TableCreated:
		return "table created"
	case Streaming:
		return "streaming"
	case Finalized:
		return "finalized"
	case AbortedFatal:
		return "aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Summary is the per-file outcome tally.
type Summary struct {
	FileID            string `json:"file_id"`
	Table             string `json:"table"`
	RecordsRead       int    `json:"records_read"`
	Accepted          int    `json:"records_accepted"`
	RejectedMalformed int    `json:"records_rejected_malformed"`
	RejectedOrphan    int    `json:"records_rejected_orphan"`
	Truncated         int    `json:"records_truncated"`
	State             State  `json:"-"`
	Err               error  `json:"-"`

	// Error mirrors Err for the JSON report.
	Error string `json:"error,omitempty"`
}

// fatal marks the summary aborted with the given error and returns it.
func (s Summary) fatal(err error) Summary {
	s.State = AbortedFatal
	s.Err = err
	if err != nil {
		s.Error = err.Error()
	}
	return s
}

// Fatal reports whether this file's pipeline aborted.
func (s Summary) Fatal() bool { return s.State == AbortedFatal }

// Report is the outcome of a whole run: the reference file first, then
// every dependent in schedule order.
type Report struct {
	Reference string    `json:"reference"`
	Keys      int       `json:"reference_keys"`
	Files     []Summary `json:"files"`
}

// Failed returns the ids of files whose pipelines aborted.
func (r *Report) Failed() []string {
	var ids []string
	for _, s := range r.Files {
		if s.Fatal() {
			ids = append(ids, s.FileID)
		}
	}
	return ids
}

// Fatal reports whether any file-level fatal error occurred.
func (r *Report) Fatal() bool { return len(r.Failed()) > 0 }
