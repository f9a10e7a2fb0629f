// Package download runs streaming book downloads with polled progress
// reporting, cancellation by entry id, and an in-memory task table.
package download

// State is the lifecycle stage of a download task.
type State int

const (
	StateNotStarted State = iota
	StateDownloading
	StateCompleted
	StateFailed
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateDownloading:
		return "downloading"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Task is a snapshot of one download's state. Progress is meaningful while
// downloading; Err is set only for failed tasks; LocalPath only once
// completed. Tasks are ephemeral: completed ones leave the table after a
// grace period, cancelled ones immediately. Failed tasks stay until a
// retry of the same entry replaces them, keeping the error inspectable.
type Task struct {
	EntryID   string
	State     State
	Progress  float64
	Err       error
	LocalPath string
}
