package cbanalyticsx

type Status string

const (
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusErrors    Status = "errors"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
	StatusTimeout   Status = "timeout"
	StatusClosed    Status = "closed"
	StatusFatal     Status = "fatal"
	StatusAborted   Status = "aborted"
	StatusUnknown   Status = "unknown"
)
