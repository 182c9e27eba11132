package nativex

import (
	"encoding/json"
	"time"
)

// ParamsBuilder accumulates the wire encoding of request parameters. The
// first encoding failure is kept and turns every later call into a no-op,
// so builders can set fields unconditionally and check once in Build.
//
// The typed setters skip zero values.
type ParamsBuilder struct {
	params Params
	err    error
}

func NewParamsBuilder() *ParamsBuilder {
	return &ParamsBuilder{
		params: make(Params),
	}
}

// Set encodes value as JSON and stores it under key.
func (b *ParamsBuilder) Set(key string, value interface{}) {
	if b.err != nil {
		return
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		b.err = err
		return
	}
	b.params[key] = encoded
}

// SetRaw stores a value that is already in its wire encoding.
func (b *ParamsBuilder) SetRaw(key string, value json.RawMessage) {
	if b.err != nil || value == nil {
		return
	}
	b.params[key] = value
}

func (b *ParamsBuilder) SetString(key string, value string) {
	if value != "" {
		b.Set(key, value)
	}
}

func (b *ParamsBuilder) SetBool(key string, value bool) {
	if value {
		b.Set(key, true)
	}
}

func (b *ParamsBuilder) SetInt(key string, value int) {
	if value > 0 {
		b.Set(key, value)
	}
}

func (b *ParamsBuilder) SetUint32(key string, value uint32) {
	if value > 0 {
		b.Set(key, value)
	}
}

// SetDuration stores d as a Go duration string ("1m15s").
func (b *ParamsBuilder) SetDuration(key string, d time.Duration) {
	if d > 0 {
		b.Set(key, d.String())
	}
}

// SetMillis stores d as a whole number of milliseconds.
func (b *ParamsBuilder) SetMillis(key string, d time.Duration) {
	if d > 0 {
		b.Set(key, d.Milliseconds())
	}
}

// SetObject stores the params built by sub as a nested object. Failures of
// sub are carried over to b.
func (b *ParamsBuilder) SetObject(key string, sub *ParamsBuilder) {
	if b.err != nil {
		return
	}
	if sub.err != nil {
		b.err = sub.err
		return
	}
	b.Set(key, map[string]json.RawMessage(sub.params))
}

// SetNamedArgs stores named statement arguments, adding the $ prefix the
// services expect when it is missing.
func (b *ParamsBuilder) SetNamedArgs(args map[string]json.RawMessage) {
	for name, value := range args {
		if len(name) > 0 && name[0] == '$' {
			b.SetRaw(name, value)
			continue
		}
		b.SetRaw("$"+name, value)
	}
}

// Merge copies raw over the params built so far.
func (b *ParamsBuilder) Merge(raw map[string]json.RawMessage) {
	for key, value := range raw {
		b.SetRaw(key, value)
	}
}

// Len reports the number of params set so far.
func (b *ParamsBuilder) Len() int {
	return len(b.params)
}

func (b *ParamsBuilder) Err() error {
	return b.err
}

// Build returns the params, or the first encoding failure.
func (b *ParamsBuilder) Build() (Params, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.params, nil
}
