// Package nativex defines the boundary between the streaming adapters and
// the native engine that actually talks to the cluster.
package nativex

import (
	"context"
	"encoding/json"
	"time"
)

// ServiceType identifies which cluster service a request targets.
type ServiceType int

const (
	QueryService     = ServiceType(1)
	AnalyticsService = ServiceType(2)
	SearchService    = ServiceType(3)
)

func (s ServiceType) String() string {
	switch s {
	case QueryService:
		return "query"
	case AnalyticsService:
		return "analytics"
	case SearchService:
		return "search"
	}
	return "unknown"
}

// SubmitRequest is everything an Engine needs to start a streaming request.
type SubmitRequest struct {
	Service ServiceType

	// Payload is the encoded request body, built from Params before submission.
	Payload json.RawMessage

	Deadline        time.Time
	Statement       string
	ClientContextID string

	// Priority is only meaningful for analytics requests.
	Priority int

	// IndexName, BucketName and ScopeName are only meaningful for search requests.
	IndexName  string
	BucketName string
	ScopeName  string
}

// StreamHandle is a pull-style cursor over a single streaming response.
//
// Pull returns the next raw row. Once all rows have been returned Pull
// returns io.EOF, after which exactly one more Pull returns the raw
// response envelope. Any other error is a failure of the request. Calling
// Pull again after the envelope has been returned is undefined.
type StreamHandle interface {
	Pull() (json.RawMessage, error)
	Close() error
}

// Engine submits requests to the cluster. Implementations must be safe for
// concurrent use; each returned StreamHandle is owned by a single caller.
type Engine interface {
	Submit(ctx context.Context, req *SubmitRequest) (StreamHandle, error)
	Close() error
}
