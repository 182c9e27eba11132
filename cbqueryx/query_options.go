package cbqueryx

import (
	"encoding/json"
	"time"

	"github.com/couchbase/gocbstreamx/nativex"
)

type ScanConsistency string

const (
	QueryScanConsistencyUnset       ScanConsistency = ""
	QueryScanConsistencyNotBounded  ScanConsistency = "not_bounded"
	QueryScanConsistencyRequestPlus ScanConsistency = "request_plus"
)

type ProfileMode string

const (
	QueryProfileModeUnset   ProfileMode = ""
	QueryProfileModeOff     ProfileMode = "off"
	QueryProfileModePhases  ProfileMode = "phases"
	QueryProfileModeTimings ProfileMode = "timings"
)

type DurabilityLevel string

const (
	QueryDurabilityLevelUnset                    DurabilityLevel = ""
	QueryDurabilityLevelNone                     DurabilityLevel = "none"
	QueryDurabilityLevelMajority                 DurabilityLevel = "majority"
	QueryDurabilityLevelMajorityAndPersistActive DurabilityLevel = "majorityAndPersistActive"
	QueryDurabilityLevelPersistToMajority        DurabilityLevel = "persistToMajority"
)

type ScanVectorEntry struct {
	SeqNo  uint64
	VbUuid string
}

func (e ScanVectorEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.SeqNo, e.VbUuid})
}

var _ json.Marshaler = (*ScanVectorEntry)(nil)

type SparseScanVectors map[uint32]ScanVectorEntry

// Options are the typed parameters of a N1QL request. Args and NamedArgs
// must already be in their wire encoding.
type Options struct {
	Args            []json.RawMessage
	ClientContextId string
	DurabilityLevel DurabilityLevel
	FlexIndex       bool
	KvTimeout       time.Duration
	MaxParallelism  uint32
	MemoryQuota     uint32
	Metrics         bool
	PipelineBatch   uint32
	PipelineCap     uint32
	PreserveExpiry  bool
	Profile         ProfileMode
	QueryContext    string
	ReadOnly        bool
	ScanCap         uint32
	ScanConsistency ScanConsistency
	ScanVectors     map[string]SparseScanVectors
	ScanWait        time.Duration
	Signature       bool
	Statement       string
	Timeout         time.Duration
	UseCbo          bool

	NamedArgs map[string]json.RawMessage
	Raw       map[string]json.RawMessage
}

// EncodeParams renders the options into the parameter set submitted to the
// engine. Keys in Raw override the typed fields.
func (o *Options) EncodeParams() (nativex.Params, error) {
	b := nativex.NewParamsBuilder()

	if len(o.Args) > 0 {
		b.Set("args", o.Args)
	}
	b.SetString("client_context_id", o.ClientContextId)
	b.SetString("durability_level", string(o.DurabilityLevel))
	b.SetBool("use_fts", o.FlexIndex)
	b.SetDuration("kv_timeout", o.KvTimeout)
	b.SetUint32("max_parallelism", o.MaxParallelism)
	b.SetUint32("memory_quota", o.MemoryQuota)
	b.SetBool("metrics", o.Metrics)
	b.SetUint32("pipeline_batch", o.PipelineBatch)
	b.SetUint32("pipeline_cap", o.PipelineCap)
	b.SetBool("preserve_expiry", o.PreserveExpiry)
	b.SetString("profile", string(o.Profile))
	b.SetString("query_context", o.QueryContext)
	b.SetBool("readonly", o.ReadOnly)
	b.SetUint32("scan_cap", o.ScanCap)
	b.SetString("scan_consistency", string(o.ScanConsistency))
	if o.ScanVectors != nil {
		b.Set("scan_vectors", o.ScanVectors)
	}
	b.SetDuration("scan_wait", o.ScanWait)
	b.SetBool("signature", o.Signature)
	b.SetString("statement", o.Statement)
	b.SetDuration("timeout", o.Timeout)
	b.SetBool("use_cbo", o.UseCbo)

	b.SetNamedArgs(o.NamedArgs)
	b.Merge(o.Raw)

	params, err := b.Build()
	if err != nil {
		return nil, contextualError{Cause: err, Description: "failed to encode query options"}
	}
	return params, nil
}
