package nativex

import (
	"encoding/json"
	"time"

	"golang.org/x/exp/maps"
)

// Params is the immutable set of request parameters produced by a query
// builder. Values are already in their wire encoding.
type Params map[string]json.RawMessage

// Clone returns a copy of the params that can be modified independently.
func (p Params) Clone() Params {
	return maps.Clone(p)
}

// With returns a copy of the params with key set to the encoded value.
func (p Params) With(key string, value interface{}) (Params, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	out := p.Clone()
	if out == nil {
		out = make(Params)
	}
	out[key] = encoded
	return out, nil
}

// String returns the string value stored at key, or an empty string.
func (p Params) String(key string) string {
	raw, ok := p[key]
	if !ok {
		return ""
	}

	var val string
	if err := json.Unmarshal(raw, &val); err != nil {
		return ""
	}
	return val
}

// Timeout returns the request timeout encoded in the params. Timeouts are
// encoded as Go duration strings ("75s"); a bare number is read as
// microseconds.
func (p Params) Timeout() (time.Duration, bool) {
	raw, ok := p["timeout"]
	if !ok {
		return 0, false
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		d, err := time.ParseDuration(str)
		if err != nil || d <= 0 {
			return 0, false
		}
		return d, true
	}

	var micros int64
	if err := json.Unmarshal(raw, &micros); err == nil && micros > 0 {
		return time.Duration(micros) * time.Microsecond, true
	}

	return 0, false
}

// Encode renders the params as a request body.
func (p Params) Encode() (json.RawMessage, error) {
	if p == nil {
		return json.RawMessage("{}"), nil
	}
	return json.Marshal(map[string]json.RawMessage(p))
}
