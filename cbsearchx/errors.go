package cbsearchx

import (
	"errors"
	"fmt"
)

var (
	ErrInternalServerError   = errors.New("internal server error")
	ErrAuthenticationFailure = errors.New("auth error")
	ErrIndexNotFound         = errors.New("index not found")
	ErrRateLimited           = errors.New("rate limited")
	ErrTimeout               = errors.New("timeout")
	ErrRequestCanceled       = errors.New("request canceled")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrUnsupportedFeature    = errors.New("unsupported feature")
	ErrNoFields              = errors.New("hit has no stored fields")
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

type ServerError struct {
	Cause      error
	StatusCode int
	Body       []byte
}

func (e ServerError) Error() string {
	return fmt.Sprintf("search query server error: %s (status: %d, body: `%s`)", e.Cause.Error(), e.StatusCode, e.Body)
}

func (e ServerError) Unwrap() error {
	return e.Cause
}
