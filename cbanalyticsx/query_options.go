package cbanalyticsx

import (
	"encoding/json"
	"time"

	"github.com/couchbase/gocbstreamx/nativex"
)

type ScanConsistency string

const (
	ScanConsistencyUnset       ScanConsistency = ""
	ScanConsistencyNotBounded  ScanConsistency = "not_bounded"
	ScanConsistencyRequestPlus ScanConsistency = "request_plus"
)

type QueryOptions struct {
	Args            []json.RawMessage
	ClientContextId string
	Priority        int
	QueryContext    string
	ReadOnly        bool
	ScanConsistency ScanConsistency
	ScanWait        time.Duration
	Statement       string
	Timeout         time.Duration

	NamedArgs map[string]json.RawMessage
	Raw       map[string]json.RawMessage
}

// EncodeParams renders the request body. Priority is not part of the body,
// the engine sends it alongside the request.
func (o *QueryOptions) EncodeParams() (nativex.Params, error) {
	b := nativex.NewParamsBuilder()

	if len(o.Args) > 0 {
		b.Set("args", o.Args)
	}
	b.SetString("client_context_id", o.ClientContextId)
	b.SetString("query_context", o.QueryContext)
	b.SetBool("readonly", o.ReadOnly)
	b.SetString("scan_consistency", string(o.ScanConsistency))
	b.SetDuration("scan_wait", o.ScanWait)
	b.SetString("statement", o.Statement)
	b.SetDuration("timeout", o.Timeout)

	b.SetNamedArgs(o.NamedArgs)
	b.Merge(o.Raw)

	params, err := b.Build()
	if err != nil {
		return nil, contextualError{Cause: err, Description: "failed to encode analytics options"}
	}
	return params, nil
}
