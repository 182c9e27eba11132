package cbsearchx

import (
	"context"
	"errors"
	"strings"

	"github.com/couchbase/gocbstreamx/nativex"
)

// ClassifyError maps an engine error onto the search error taxonomy. The
// search service reports failures through the HTTP status and a free-form
// message, so both take part in the mapping.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var nativeErr *nativex.NativeError
	if errors.As(err, &nativeErr) && (nativeErr.StatusCode > 0 || len(nativeErr.Descs) > 0) {
		var msg string
		if desc := nativeErr.FirstDesc(); desc != nil {
			msg = desc.Message
		}
		return parseError(nativeErr.StatusCode, msg)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return contextualError{Cause: ErrTimeout, Description: err.Error()}
	}
	if errors.Is(err, context.Canceled) {
		return contextualError{Cause: ErrRequestCanceled, Description: err.Error()}
	}

	return contextualError{Cause: ErrInternalServerError, Description: err.Error()}
}

func parseError(statusCode int, errBody string) *ServerError {
	var err error

	lowerBody := strings.ToLower(errBody)

	switch statusCode {
	case 401, 403:
		err = ErrAuthenticationFailure
	case 429:
		if strings.Contains(lowerBody, "num_concurrent_requests") ||
			strings.Contains(lowerBody, "num_queries_per_min") ||
			strings.Contains(lowerBody, "ingress_mib_per_min") ||
			strings.Contains(lowerBody, "egress_mib_per_min") {
			err = ErrRateLimited
		}
	case 500:
		err = ErrInternalServerError
	}

	if strings.Contains(lowerBody, "index not found") {
		err = ErrIndexNotFound
	}
	if strings.Contains(lowerBody, "context deadline exceeded") {
		err = ErrTimeout
	}

	if err == nil {
		err = ErrInternalServerError
	}

	return &ServerError{
		Cause:      err,
		StatusCode: statusCode,
		Body:       []byte(errBody),
	}
}
