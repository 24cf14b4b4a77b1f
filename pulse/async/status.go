package async

// Status is a command's execution status.
type Status int

const (
	StatusReady Status = iota
	StatusLaunched
	StatusExecuting
	StatusSucceeded
	StatusFailed
	StatusSuspended
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusLaunched:
		return "launched"
	case StatusExecuting:
		return "executing"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSuspended:
		return "suspended"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// eligible commands may be launched.
func (s Status) eligible() bool {
	return s == StatusReady || s == StatusFailed || s == StatusSuspended
}

// cancelable commands may be suspended or canceled.
func (s Status) cancelable() bool {
	switch s {
	case StatusReady, StatusLaunched, StatusExecuting, StatusFailed, StatusSuspended:
		return true
	}
	return false
}

// drainable commands are removed from the head of the queue.
func (s Status) drainable() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}
