package cbsearchx

import "encoding/json"

// Facet represents a facet for a search query.
type Facet interface {
	encodeToJSON() (json.RawMessage, error)
}

var _ Facet = (*NumericFacet)(nil)
var _ Facet = (*DateFacet)(nil)
var _ Facet = (*TermFacet)(nil)

type TermFacet struct {
	Field string `json:"field,omitempty"`
	Size  uint64 `json:"size,omitempty"`
}

func (f *TermFacet) encodeToJSON() (json.RawMessage, error) {
	return json.Marshal(f)
}

type NumericFacetRange struct {
	Name string   `json:"name"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
}

type NumericFacet struct {
	Field         string              `json:"field,omitempty"`
	Size          uint64              `json:"size,omitempty"`
	NumericRanges []NumericFacetRange `json:"numeric_ranges,omitempty"`
}

func (f *NumericFacet) encodeToJSON() (json.RawMessage, error) {
	return json.Marshal(f)
}

type DateFacetRange struct {
	Name  string `json:"name"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type DateFacet struct {
	Field      string           `json:"field,omitempty"`
	Size       uint64           `json:"size,omitempty"`
	DateRanges []DateFacetRange `json:"date_ranges,omitempty"`
}

func (f *DateFacet) encodeToJSON() (json.RawMessage, error) {
	return json.Marshal(f)
}
