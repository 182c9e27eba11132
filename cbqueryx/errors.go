package cbqueryx

import (
	"errors"
	"fmt"
)

var (
	ErrParsingFailure           = errors.New("parsing failure")
	ErrInternalServerError      = errors.New("internal server error")
	ErrAuthenticationFailure    = errors.New("auth error")
	ErrCasMismatch              = errors.New("cas mismatch")
	ErrDocumentNotFound         = errors.New("doc not found")
	ErrDocumentExists           = errors.New("doc exists")
	ErrPlanningFailure          = errors.New("planning failure")
	ErrIndexFailure             = errors.New("index failure")
	ErrPreparedStatementFailure = errors.New("prepared statement failure")
	ErrDmlFailure               = errors.New("data service returned an error during execution of DML statement")
	ErrTimeout                  = errors.New("timeout")
	ErrIndexNotFound            = errors.New("index not found")
	ErrIndexExists              = errors.New("index exists")
	ErrWriteInReadOnlyQuery     = errors.New("write statement used in a read-only query")
	ErrBucketNotFound           = errors.New("bucket not found")
	ErrScopeNotFound            = errors.New("scope not found")
	ErrCollectionNotFound       = errors.New("collection not found")
	ErrBuildAlreadyInProgress   = errors.New("build already in progress")
	ErrBuildFails               = errors.New("build fails")
	ErrRequestCanceled          = errors.New("request canceled")
)

// ServerError is a single classified error returned by the query service.
type ServerError struct {
	InnerError error
	Code       uint32
	Msg        string
	Reason     map[string]interface{}
}

func (e ServerError) Error() string {
	return fmt.Sprintf("query error: %s (code: %d, msg: %s)",
		e.InnerError.Error(),
		e.Code, e.Msg)
}

func (e ServerError) Unwrap() error {
	return e.InnerError
}

// ServerErrors is returned when the query service reports more than one
// error. It unwraps to the first of them.
type ServerErrors struct {
	Errors []*ServerError
}

func (e ServerErrors) Error() string {
	return fmt.Sprintf("%s (+ %d other errors)", e.Errors[0].Error(), len(e.Errors)-1)
}

func (e ServerErrors) Unwrap() error {
	return e.Errors[0]
}

// ResourceError carries the names of the resource a query error refers to.
type ResourceError struct {
	Cause          error
	BucketName     string
	ScopeName      string
	CollectionName string
	IndexName      string
}

func (e ResourceError) Error() string {
	return fmt.Sprintf("resource error: %s (bucket: %s, scope: %s, collection: %s, index: %s)",
		e.Cause.Error(),
		e.BucketName,
		e.ScopeName,
		e.CollectionName,
		e.IndexName)
}

func (e ResourceError) Unwrap() error {
	return e.Cause
}

type ServerInvalidArgError struct {
	Argument string
	Reason   string
}

func (e ServerInvalidArgError) Error() string {
	return fmt.Sprintf("invalid argument: %s - %s", e.Argument, e.Reason)
}

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
