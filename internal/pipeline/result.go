package pipeline

import "time"

// State names one phase of a migration run. A run moves strictly forward:
// Scanning, Parsing, GraphBuilding, Converting, then exactly one of the
// terminal states.
type State string

// Run states.
const (
	StateScanning      State = "scanning"
	StateParsing       State = "parsing"
	StateGraphBuilding State = "graph_building"
	StateConverting    State = "converting"
	StateCompleted     State = "completed"
	StateCancelled     State = "cancelled"
	StateFailed        State = "failed"
)

// Failure records one file that could not be migrated.
type Failure struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Result is the aggregate outcome of one run. It is created at run start,
// mutated only by the pipeline, and must be treated as immutable once
// returned.
type Result struct {
	RunID string `json:"run_id"`
	State State  `json:"state"`

	FilesDiscovered  int `json:"files_discovered"`
	FilesSucceeded   int `json:"files_succeeded"`
	FilesFailed      int `json:"files_failed"`
	DocumentsParsed  int `json:"documents_parsed"`
	DocumentsWritten int `json:"documents_written"`

	AttachmentsCopied  int `json:"attachments_copied"`
	AttachmentsSkipped int `json:"attachments_skipped"`
	AttachmentsMissing int `json:"attachments_missing"`

	BrokenReferences int       `json:"broken_references"`
	Failures         []Failure `json:"failures,omitempty"`

	Cancelled bool          `json:"cancelled"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Success reports whether the run counts as successful: at least one file
// made it through when there was anything to do. Broken references never
// affect this.
func (r *Result) Success() bool {
	return r.FilesDiscovered == 0 || r.FilesSucceeded > 0
}

func (r *Result) fail(path, message string) {
	r.Failures = append(r.Failures, Failure{Path: path, Message: message})
}
