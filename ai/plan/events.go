package plan

// Progress event status values. "terminal" marks the end of the stream.
const (
	ProgressExecuting = "executing"
	ProgressCompleted = "completed"
	ProgressFailed    = "failed"
	ProgressTerminal  = "terminal"
)

// ProgressEvent is one phase transition during plan execution, streamed to
// the client: one event per action start/finish plus a terminal marker.
type ProgressEvent struct {
	Step        int    `json:"step"`
	Total       int    `json:"total"`
	ActionID    string `json:"action_id,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Result      string `json:"result,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ProgressFunc receives execution progress events. Implementations must
// not block for long: execution is sequential and a slow sink delays the
// remaining actions.
type ProgressFunc func(event ProgressEvent)

// emit sends an event when the callback is set.
func (f ProgressFunc) emit(event ProgressEvent) {
	if f != nil {
		f(event)
	}
}
