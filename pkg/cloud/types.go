package cloud

// TaskState is the lifecycle state of a luau execution session task as
// reported by the Open Cloud API.
type TaskState string

const (
	StateUnspecified TaskState = "STATE_UNSPECIFIED"
	StateQueued      TaskState = "QUEUED"
	StateProcessing  TaskState = "PROCESSING"
	StateComplete    TaskState = "COMPLETE"
	StateFailed      TaskState = "FAILED"
	StateCancelled   TaskState = "CANCELLED"
)

// IsTerminal reports whether the task can still change state. Unknown
// states are treated as non-terminal so a newer API state keeps the poll
// loop alive instead of ending the run on a guess.
func (s TaskState) IsTerminal() bool {
	switch s {
	case StateComplete, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// SubmissionRequest carries everything needed to start one execution task.
// It is built once per run and passed by value.
type SubmissionRequest struct {
	Script     string `validate:"required"`
	UniverseID int64  `validate:"gt=0"`
	PlaceID    int64  `validate:"gt=0"`
	APIKey     string `validate:"required"`
}

// JobHandle is the absolute status URL for a submitted task. The server
// returns it as a relative resource path; the client joins it to the API
// base and the rest of the system treats it as opaque.
type JobHandle string

// TaskResult is one entry of the output payload produced by the submitted
// script. The CI runner script returns a single entry with the aggregate
// pass flag and the printed test report.
type TaskResult struct {
	AllPass bool   `json:"allPass"`
	Output  string `json:"output"`
}

type TaskOutput struct {
	Results []TaskResult `json:"results"`
}

type TaskError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// JobStatus is one polled snapshot of a task. Output is present only once
// the task is COMPLETE, Error only once it is FAILED.
type JobStatus struct {
	Path   string      `json:"path"`
	State  TaskState   `json:"state"`
	Output *TaskOutput `json:"output,omitempty"`
	Error  *TaskError  `json:"error,omitempty"`
}
