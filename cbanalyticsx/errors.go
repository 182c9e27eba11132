package cbanalyticsx

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors reported by the analytics service. ClassifyError wraps
// one of these in a ServerError.
var (
	ErrParsingFailure        = errors.New("parsing failure")
	ErrInternalServerError   = errors.New("internal server error")
	ErrAuthenticationFailure = errors.New("auth error")
	ErrCompilationFailure    = errors.New("compilation failure")
	ErrTemporaryFailure      = errors.New("temporary failure")
	ErrIndexNotFound         = errors.New("index not found")
	ErrIndexExists           = errors.New("index exists")
	ErrJobQueueFull          = errors.New("job queue full")
	ErrDatasetNotFound       = errors.New("analytics collection not found")
	ErrDataverseNotFound     = errors.New("analytics scope not found")
	ErrDatasetExists         = errors.New("analytics collection already exists")
	ErrDataverseExists       = errors.New("analytics scope already exists")
	ErrLinkNotFound          = errors.New("link not found")
	ErrTimeout               = errors.New("timeout")
	ErrRequestCanceled       = errors.New("request canceled")
)

type contextualError struct {
	Cause       error
	Description string
}

func (e contextualError) Error() string {
	return e.Description + ": " + e.Cause.Error()
}

func (e contextualError) Unwrap() error {
	return e.Cause
}

// ServerError is a single error entry returned by the analytics service.
// StatusCode and Endpoint are zero when the engine did not report them.
type ServerError struct {
	InnerError error
	Code       uint32
	Msg        string
	Retriable  bool
	StatusCode int
	Endpoint   string
}

func (e ServerError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "analytics error: %s (code: %d, msg: %s", e.InnerError, e.Code, e.Msg)
	if e.StatusCode > 0 {
		fmt.Fprintf(&sb, ", status: %d", e.StatusCode)
	}
	if e.Endpoint != "" {
		fmt.Fprintf(&sb, ", endpoint: %s", e.Endpoint)
	}
	sb.WriteString(")")
	return sb.String()
}

func (e ServerError) Unwrap() error {
	return e.InnerError
}

// ServerErrors holds every entry of a response which reported more than
// one error. It matches the first entry with errors.Is and errors.As.
type ServerErrors struct {
	Errors []*ServerError
}

func (e ServerErrors) Error() string {
	codes := make([]string, len(e.Errors)-1)
	for i, err := range e.Errors[1:] {
		codes[i] = fmt.Sprintf("%d", err.Code)
	}
	return fmt.Sprintf("%s (+ %d other errors: %s)", e.Errors[0].Error(), len(e.Errors)-1, strings.Join(codes, ", "))
}

func (e ServerErrors) Unwrap() error {
	return e.Errors[0]
}
