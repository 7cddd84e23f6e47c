package task

// Status is the lifecycle state of one task execution attempt.
//
//	none -> running -> {ok, error, cancelled, skipped}
type Status string

const (
	StatusNone      Status = "none"
	StatusRunning   Status = "running"
	StatusOK        Status = "ok"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
	StatusSkipped   Status = "skipped"
)

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusOK, StatusError, StatusCancelled, StatusSkipped:
		return true
	default:
		return false
	}
}

// IsFailure reports whether the status signals that the task did not succeed
// because of an error or an interruption.
func (s Status) IsFailure() bool {
	return s == StatusError || s == StatusCancelled
}

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusNone, StatusRunning, StatusOK, StatusError, StatusCancelled, StatusSkipped:
		return st, true
	default:
		return "", false
	}
}
