package gocbstreamx

import (
	"encoding/json"
)

// Serializer converts rows between their wire form and Go values.
type Serializer interface {
	Serialize(value interface{}) ([]byte, error)
	Deserialize(data []byte, valuePtr interface{}) error
}

// DefaultJSONSerializer uses encoding/json for all values.
type DefaultJSONSerializer struct{}

var _ Serializer = (*DefaultJSONSerializer)(nil)

func (s *DefaultJSONSerializer) Serialize(value interface{}) ([]byte, error) {
	return json.Marshal(value)
}

func (s *DefaultJSONSerializer) Deserialize(data []byte, valuePtr interface{}) error {
	return json.Unmarshal(data, valuePtr)
}

func serializerOrDefault(serializer Serializer) Serializer {
	if serializer == nil {
		return &DefaultJSONSerializer{}
	}
	return serializer
}
