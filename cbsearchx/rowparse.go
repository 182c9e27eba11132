package cbsearchx

import (
	"bytes"
	"encoding/json"
)

// DecodeFunc decodes a JSON document into valuePtr.
type DecodeFunc func(data []byte, valuePtr interface{}) error

// ParseRow decodes a raw search hit. Nested fields and explanation payloads
// that arrive as JSON strings are decoded a second time so callers always
// see the embedded document.
func ParseRow(data json.RawMessage, decode DecodeFunc) (*Row, error) {
	if decode == nil {
		decode = json.Unmarshal
	}

	var hit rowJson
	if err := decode(data, &hit); err != nil {
		return nil, contextualError{Cause: err, Description: "failed to decode search hit"}
	}

	fields, err := unwrapEmbeddedJson(hit.Fields, decode)
	if err != nil {
		return nil, contextualError{Cause: err, Description: "failed to decode search hit fields"}
	}

	explanation, err := unwrapEmbeddedJson(hit.Explanation, decode)
	if err != nil {
		return nil, contextualError{Cause: err, Description: "failed to decode search hit explanation"}
	}

	return &Row{
		Index:       hit.Index,
		ID:          hit.ID,
		Score:       hit.Score,
		Explanation: explanation,
		Fields:      fields,
		Fragments:   hit.Fragments,
		Sort:        hit.Sort,
		Locations:   parseLocations(hit.Locations),
	}, nil
}

func unwrapEmbeddedJson(raw json.RawMessage, decode DecodeFunc) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] != '"' {
		return trimmed, nil
	}

	var embedded string
	if err := decode(trimmed, &embedded); err != nil {
		return nil, err
	}
	if embedded == "" {
		return nil, nil
	}

	if !json.Valid([]byte(embedded)) {
		return nil, contextualError{Cause: ErrInvalidArgument, Description: "embedded payload is not valid JSON"}
	}

	return json.RawMessage(embedded), nil
}

func parseLocations(data rowLocationsJson) *Locations {
	if data == nil {
		return nil
	}

	byField := make(map[string]map[string][]HitLocation, len(data))
	for fieldName, fieldData := range data {
		terms := make(map[string][]HitLocation, len(fieldData))
		for termName, termData := range fieldData {
			locations := make([]HitLocation, len(termData))
			for locIdx, locData := range termData {
				locations[locIdx] = HitLocation{
					Field:          fieldName,
					Term:           termName,
					ArrayPositions: locData.ArrayPositions,
					End:            locData.End,
					Position:       locData.Position,
					Start:          locData.Start,
				}
			}
			terms[termName] = locations
		}
		byField[fieldName] = terms
	}

	return &Locations{byField: byField}
}
