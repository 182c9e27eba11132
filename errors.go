package gocbstreamx

import (
	"errors"
	"fmt"

	"github.com/couchbase/gocbstreamx/nativex"
)

var (
	// ErrPreviouslyIterated is returned when the rows of a result are
	// requested a second time. Results can only be streamed once.
	ErrPreviouslyIterated = errors.New("results have already been iterated")

	// ErrMetaDataNotAvailable is returned when metadata is requested before
	// every row of a result has been consumed, or when the request failed.
	ErrMetaDataNotAvailable = errors.New("metadata is not available until all rows have been read")

	// ErrNoResult is returned by One when the result contained no rows.
	ErrNoResult = errors.New("no result was available")

	ErrInternalError   = errors.New("internal error")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrClusterClosed   = errors.New("cluster closed")
)

type placeholderError struct {
	Inner string
}

func (pe placeholderError) Error() string {
	return pe.Inner
}

// SubmissionError indicates the engine refused to start a request.
type SubmissionError struct {
	Service         nativex.ServiceType
	Statement       string
	ClientContextID string
	Cause           error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("failed to submit %s request (client context id: %s): %s",
		e.Service, e.ClientContextID, e.Cause)
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// StreamingError indicates a request failed after it had started streaming.
// Finalizing is set when the rows completed cleanly but reading the
// response metadata failed.
type StreamingError struct {
	Service         nativex.ServiceType
	Statement       string
	ClientContextID string
	Finalizing      bool
	Cause           error
}

func (e *StreamingError) Error() string {
	stage := "streaming"
	if e.Finalizing {
		stage = "finalizing"
	}
	return fmt.Sprintf("%s request failed while %s (client context id: %s): %s",
		e.Service, stage, e.ClientContextID, e.Cause)
}

func (e *StreamingError) Unwrap() error {
	return e.Cause
}

type internalError struct {
	Reason error
}

func (e internalError) Error() string {
	return fmt.Sprintf("internal error (%s)", e.Reason)
}

func (e internalError) Unwrap() []error {
	return []error{ErrInternalError, e.Reason}
}

type invalidArgumentError struct {
	Message string
}

func (e invalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Message)
}

func (e invalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

type illegalStateError struct {
	Message string
}

func (e illegalStateError) Error() string {
	return fmt.Sprintf("illegal state: %s", e.Message)
}
