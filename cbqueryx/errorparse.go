package cbqueryx

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/couchbase/gocbstreamx/nativex"
)

var indexExistsRegexp = regexp.MustCompile(".*?ndex .*? already exist.*")

// ClassifyError maps an engine error onto the query error taxonomy. The
// mapping depends only on the error codes and messages, so classifying the
// same error twice always yields the same kind.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var nativeErr *nativex.NativeError
	if errors.As(err, &nativeErr) && len(nativeErr.Descs) > 0 {
		serverErrs := make([]*ServerError, len(nativeErr.Descs))
		for i := range nativeErr.Descs {
			serverErrs[i] = parseError(&nativeErr.Descs[i])
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

	errCode := desc.Code
	errCodeGroup := errCode / 1000

	if errCodeGroup == 4 {
		err = ErrPlanningFailure
	}
	if errCodeGroup == 5 {
		err = ErrInternalServerError
		lowerMsg := strings.ToLower(desc.Message)
		if strings.Contains(lowerMsg, "not enough") &&
			strings.Contains(lowerMsg, "replica") {
			err = ServerInvalidArgError{
				Argument: "NumReplicas",
				Reason:   "not enough indexer nodes to create index with replica count",
			}
		}
		if strings.Contains(lowerMsg, "build already in progress") {
			err = ErrBuildAlreadyInProgress
		}
		if strings.Contains(lowerMsg, "build index fails") && strings.Contains(lowerMsg, "index will be retried building") {
			err = ErrBuildFails
		}
		if indexExistsRegexp.MatchString(lowerMsg) {
			err = ErrIndexExists
		}
	}
	if errCodeGroup == 12 || errCodeGroup == 14 {
		err = ErrIndexFailure
	}
	if errCodeGroup == 10 {
		err = ErrAuthenticationFailure
	}

	switch errCode {
	case 1000:
		err = ErrWriteInReadOnlyQuery
	case 1080:
		err = ErrTimeout
	case 3000:
		err = ErrParsingFailure
	case 4040, 4050, 4060, 4070, 4080, 4090:
		err = ErrPreparedStatementFailure
	case 4300:
		err = createResourceError(desc.Message, ErrIndexExists)
	case 12003:
		err = createResourceError(desc.Message, ErrCollectionNotFound)
		if strings.Contains(desc.Message, "No bucket named") ||
			strings.Contains(desc.Message, "Invalid URL") {
			err = createResourceError(desc.Message, ErrBucketNotFound)
		}
	case 12004, 12016:
		err = createResourceError(desc.Message, ErrIndexNotFound)
	case 12009:
		err = ErrDmlFailure
		if code, ok := reasonCode(desc.Reason); ok {
			switch code {
			case 12033:
				err = ErrCasMismatch
			case 17014:
				err = ErrDocumentNotFound
			case 17012:
				err = ErrDocumentExists
			}
		}
		if strings.Contains(strings.ToLower(desc.Message), "cas mismatch") {
			err = ErrCasMismatch
		}
	case 12021:
		err = createResourceError(desc.Message, ErrScopeNotFound)
	case 13014:
		err = createResourceError(desc.Message, ErrAuthenticationFailure)
	}

	if err == nil {
		err = ErrInternalServerError
	}

	return &ServerError{
		InnerError: err,
		Code:       desc.Code,
		Msg:        desc.Message,
		Reason:     desc.Reason,
	}
}

func reasonCode(reason map[string]interface{}) (int, bool) {
	if len(reason) == 0 {
		return 0, false
	}
	code, ok := reason["code"].(float64)
	if !ok {
		return 0, false
	}
	return int(code), true
}

func createResourceError(msg string, cause error) *ResourceError {
	err := &ResourceError{
		Cause: cause,
	}

	switch {
	case errors.Is(cause, ErrBucketNotFound):
		parseBucketNotFoundMsg(err, msg)
	case errors.Is(cause, ErrScopeNotFound), errors.Is(cause, ErrCollectionNotFound):
		parseResourceNotFoundMsg(err, msg)
	case errors.Is(cause, ErrAuthenticationFailure):
		parseAuthFailureMsg(err, msg)
	case errors.Is(cause, ErrIndexNotFound), errors.Is(cause, ErrIndexExists):
		parseIndexNotFoundOrExistsMsg(err, msg)
	}

	return err
}

func parseIndexNotFoundOrExistsMsg(err *ResourceError, msg string) {
	// "Index Not Found - cause: GSI index testingIndex not found."
	// "The index NewIndex already exists."
	fields := strings.Fields(msg)
	for i, f := range fields {
		if f == "index" && i+1 < len(fields) {
			err.IndexName = fields[i+1]
			return
		}
	}
}

func parseBucketNotFoundMsg(err *ResourceError, msg string) {
	// "Keyspace not found in CB datastore: default:defaultx (near line 1, column 15) - ..."
	_, after, found := strings.Cut(msg, "datastore: ")
	if !found {
		return
	}
	path, _, _ := strings.Cut(after, " ")
	_, bucket, found := strings.Cut(path, ":")
	if !found {
		return
	}
	err.BucketName = bucket
}

func parseResourceNotFoundMsg(err *ResourceError, msg string) {
	var path string
	for _, f := range strings.Fields(msg) {
		// bucket:bucket.scope.collection
		if strings.Contains(f, ".") && strings.Contains(f, ":") {
			path = f
			break
		}
	}

	_, trimmedPath, found := strings.Cut(path, ":")
	if !found {
		return
	}

	// only bucket names may contain dots, so the trailing parts are always
	// the scope and collection
	fields := strings.Split(trimmedPath, ".")
	if errors.Is(err, ErrScopeNotFound) && len(fields) >= 2 {
		err.BucketName = strings.Join(fields[:len(fields)-1], ".")
		err.ScopeName = fields[len(fields)-1]
		return
	}

	if errors.Is(err, ErrCollectionNotFound) && len(fields) >= 3 {
		err.BucketName = strings.Join(fields[:len(fields)-2], ".")
		err.ScopeName = fields[len(fields)-2]
		err.CollectionName = fields[len(fields)-1]
	}
}

func parseAuthFailureMsg(err *ResourceError, msg string) {
	var path string
	for _, f := range strings.Fields(msg) {
		if strings.Contains(f, ":") {
			path = f
			break
		}
	}

	_, trimmedPath, found := strings.Cut(path, ":")
	if !found {
		return
	}

	// bucket names containing dots are wrapped in backticks:
	// "`bucket.name`" or "`bucket.name`.scope.collection"
	if strings.Contains(trimmedPath, "`") {
		parts := strings.Split(trimmedPath, "`")
		if len(parts) < 3 {
			return
		}
		err.BucketName = parts[1]
		rest := strings.Split(parts[2], ".")
		if len(rest) < 3 {
			return
		}
		err.ScopeName = rest[1]
		err.CollectionName = rest[2]
		return
	}

	fields := strings.Split(trimmedPath, ".")
	err.BucketName = fields[0]
	if len(fields) < 3 {
		return
	}
	err.ScopeName = fields[1]
	err.CollectionName = fields[2]
}
