package cbanalyticsx

import (
	"context"
	"errors"

	"github.com/couchbase/gocbstreamx/nativex"
)

// ClassifyError maps an engine error onto the analytics error taxonomy.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var nativeErr *nativex.NativeError
	if errors.As(err, &nativeErr) && len(nativeErr.Descs) > 0 {
		serverErrs := make([]*ServerError, len(nativeErr.Descs))
		for i := range nativeErr.Descs {
			serverErrs[i] = parseError(&nativeErr.Descs[i])
			serverErrs[i].StatusCode = nativeErr.StatusCode
			serverErrs[i].Endpoint = nativeErr.Endpoint
		}

		if len(serverErrs) == 1 {
			return serverErrs[0]
		}
		return &ServerErrors{Errors: serverErrs}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return contextualError{Cause: ErrTimeout, Description: err.Error()}
	}
	if errors.Is(err, context.Canceled) {
		return contextualError{Cause: ErrRequestCanceled, Description: err.Error()}
	}

	return contextualError{Cause: ErrInternalServerError, Description: err.Error()}
}

func parseError(desc *nativex.ErrorDesc) *ServerError {
	var err error

	switch desc.Code / 1000 {
	case 20:
		err = ErrAuthenticationFailure
	case 24:
		err = ErrCompilationFailure
	case 25:
		err = ErrInternalServerError
	}

	switch desc.Code {
	case 21002:
		err = ErrTimeout
	case 23000, 23003:
		err = ErrTemporaryFailure
	case 23007, 24039:
		err = ErrJobQueueFull
	case 24000:
		err = ErrParsingFailure
	case 24006:
		err = ErrLinkNotFound
	case 24025, 24044, 24045:
		err = ErrDatasetNotFound
	case 24034:
		err = ErrDataverseNotFound
	case 24040:
		err = ErrDatasetExists
	case 24047:
		err = ErrIndexNotFound
	case 24048:
		err = ErrIndexExists
	case 24055:
		err = ErrDataverseExists
	}

	if err == nil {
		err = ErrInternalServerError
	}

	return &ServerError{
		InnerError: err,
		Code:       desc.Code,
		Msg:        desc.Message,
		Retriable:  desc.Retry,
	}
}
