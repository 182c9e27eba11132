package httpenginex

import (
	"encoding/json"
	"strings"

	"github.com/couchbase/gocbstreamx/nativex"
	"github.com/pkg/errors"
)

type errorDescJson struct {
	Code   uint32                 `json:"code"`
	Msg    string                 `json:"msg"`
	Retry  bool                   `json:"retry,omitempty"`
	Reason map[string]interface{} `json:"reason,omitempty"`
}

type errorsEnvelopeJson struct {
	Errors []errorDescJson `json:"errors,omitempty"`
}

type searchErrorJson struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

func toErrorDescs(errs []errorDescJson) []nativex.ErrorDesc {
	if len(errs) == 0 {
		return nil
	}

	descs := make([]nativex.ErrorDesc, len(errs))
	for i, err := range errs {
		descs[i] = nativex.ErrorDesc{
			Code:    err.Code,
			Message: err.Msg,
			Retry:   err.Retry,
			Reason:  err.Reason,
		}
	}
	return descs
}

// parseEnvelopeErrors extracts the errors reported at the end of a
// successful query or analytics response. Search reports partial failures
// as part of its metadata, so they are never treated as request errors.
func parseEnvelopeErrors(service nativex.ServiceType, envelope json.RawMessage) []nativex.ErrorDesc {
	if service == nativex.SearchService {
		return nil
	}

	var env errorsEnvelopeJson
	if err := json.Unmarshal(envelope, &env); err != nil {
		return nil
	}

	return toErrorDescs(env.Errors)
}

// parseErrorBody builds the error for a response rejected with a non-200
// status.
func parseErrorBody(service nativex.ServiceType, statusCode int, endpoint string, body []byte) *nativex.NativeError {
	nativeErr := &nativex.NativeError{
		Service:    service,
		StatusCode: statusCode,
		Endpoint:   endpoint,
	}

	switch service {
	case nativex.QueryService, nativex.AnalyticsService:
		var env errorsEnvelopeJson
		if err := json.Unmarshal(body, &env); err == nil && len(env.Errors) > 0 {
			nativeErr.Descs = toErrorDescs(env.Errors)
			return nativeErr
		}

		nativeErr.Cause = errors.Errorf("unexpected response status %d: %s", statusCode, strings.TrimSpace(string(body)))
		return nativeErr

	case nativex.SearchService:
		msg := strings.TrimSpace(string(body))

		var searchErr searchErrorJson
		if err := json.Unmarshal(body, &searchErr); err == nil && searchErr.Error != "" {
			msg = searchErr.Error
		}

		nativeErr.Descs = []nativex.ErrorDesc{{Message: msg}}
		return nativeErr
	}

	nativeErr.Cause = errors.Errorf("unexpected response status %d", statusCode)
	return nativeErr
}
