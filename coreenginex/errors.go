package coreenginex

import (
	"errors"

	"github.com/couchbase/gocbcore/v10"
	"github.com/couchbase/gocbstreamx/nativex"
)

// convertError translates the service errors of gocbcore into a
// NativeError. Errors gocbcore did not attribute to a service are carried
// as the cause.
func convertError(service nativex.ServiceType, err error) error {
	if err == nil {
		return nil
	}

	var queryErr *gocbcore.N1QLError
	if errors.As(err, &queryErr) {
		descs := make([]nativex.ErrorDesc, len(queryErr.Errors))
		for i, desc := range queryErr.Errors {
			descs[i] = nativex.ErrorDesc{
				Code:    desc.Code,
				Message: desc.Message,
				Retry:   desc.Retry,
				Reason:  desc.Reason,
			}
		}

		return &nativex.NativeError{
			Service:    service,
			StatusCode: queryErr.HTTPResponseCode,
			Endpoint:   queryErr.Endpoint,
			Descs:      descs,
			Cause:      queryErr.InnerError,
		}
	}

	var analyticsErr *gocbcore.AnalyticsError
	if errors.As(err, &analyticsErr) {
		descs := make([]nativex.ErrorDesc, len(analyticsErr.Errors))
		for i, desc := range analyticsErr.Errors {
			descs[i] = nativex.ErrorDesc{
				Code:    desc.Code,
				Message: desc.Message,
			}
		}

		return &nativex.NativeError{
			Service:    service,
			StatusCode: analyticsErr.HTTPResponseCode,
			Endpoint:   analyticsErr.Endpoint,
			Descs:      descs,
			Cause:      analyticsErr.InnerError,
		}
	}

	var searchErr *gocbcore.SearchError
	if errors.As(err, &searchErr) {
		var descs []nativex.ErrorDesc
		if searchErr.ErrorText != "" {
			descs = []nativex.ErrorDesc{{Message: searchErr.ErrorText}}
		}

		return &nativex.NativeError{
			Service:    service,
			StatusCode: searchErr.HTTPResponseCode,
			Endpoint:   searchErr.Endpoint,
			Descs:      descs,
			Cause:      searchErr.InnerError,
		}
	}

	return &nativex.NativeError{
		Service: service,
		Cause:   err,
	}
}
