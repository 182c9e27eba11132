package nativex

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEngineClosed     = errors.New("engine closed")
	ErrHandleClosed     = errors.New("stream handle closed")
	ErrEnvelopeConsumed = errors.New("response envelope already consumed")
)

// ErrorDesc is a single error entry reported by the engine.
type ErrorDesc struct {
	Code    uint32
	Message string
	Retry   bool
	Reason  map[string]interface{}
}

// NativeError is the structured form of an error raised by the engine
// while submitting or streaming a request.
type NativeError struct {
	Service    ServiceType
	StatusCode int
	Endpoint   string
	Descs      []ErrorDesc

	// Cause is set when the failure did not originate from the server, for
	// example a transport failure or context deadline.
	Cause error
}

func (e *NativeError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Service.String())
	sb.WriteString(" engine error")
	if e.StatusCode > 0 {
		fmt.Fprintf(&sb, " (status: %d)", e.StatusCode)
	}
	if len(e.Descs) > 0 {
		fmt.Fprintf(&sb, ": [%d] %s", e.Descs[0].Code, e.Descs[0].Message)
		if len(e.Descs) > 1 {
			fmt.Fprintf(&sb, " (+ %d other errors)", len(e.Descs)-1)
		}
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *NativeError) Unwrap() error {
	return e.Cause
}

// FirstDesc returns the first error entry, or nil when none were reported.
func (e *NativeError) FirstDesc() *ErrorDesc {
	if len(e.Descs) == 0 {
		return nil
	}
	return &e.Descs[0]
}
