package cbqueryx

// QueryStatus provides information about the current status of a query.
type QueryStatus string

const (
	QueryStatusRunning   QueryStatus = "running"
	QueryStatusSuccess   QueryStatus = "success"
	QueryStatusErrors    QueryStatus = "errors"
	QueryStatusCompleted QueryStatus = "completed"
	QueryStatusStopped   QueryStatus = "stopped"
	QueryStatusTimeout   QueryStatus = "timeout"
	QueryStatusClosed    QueryStatus = "closed"
	QueryStatusFatal     QueryStatus = "fatal"
	QueryStatusAborted   QueryStatus = "aborted"
	QueryStatusUnknown   QueryStatus = "unknown"
)

// IsTerminal reports whether the status describes a finished request.
func (s QueryStatus) IsTerminal() bool {
	return s != QueryStatusRunning
}
