package cbsearchx

import (
	"encoding/json"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// HitLocation represents the location of a row match
type HitLocation struct {
	Field          string
	Term           string
	ArrayPositions []uint32
	End            uint32
	Position       uint32
	Start          uint32
}

// Locations indexes the term locations of a search hit by field and term.
// A nil *Locations reports no locations.
type Locations struct {
	byField map[string]map[string][]HitLocation
}

// Get returns the locations of term within field.
func (l *Locations) Get(field, term string) []HitLocation {
	if l == nil {
		return nil
	}
	return l.byField[field][term]
}

// Fields returns the fields that matched, sorted.
func (l *Locations) Fields() []string {
	if l == nil {
		return nil
	}
	fields := maps.Keys(l.byField)
	slices.Sort(fields)
	return fields
}

// Terms returns the terms that matched within field, sorted.
func (l *Locations) Terms(field string) []string {
	if l == nil {
		return nil
	}
	terms := maps.Keys(l.byField[field])
	slices.Sort(terms)
	return terms
}

// All returns every location ordered by field and term.
func (l *Locations) All() []HitLocation {
	if l == nil {
		return nil
	}
	var out []HitLocation
	for _, field := range l.Fields() {
		for _, term := range l.Terms(field) {
			out = append(out, l.byField[field][term]...)
		}
	}
	return out
}

// Row represents a single hit returned from a search query.
type Row struct {
	Index       string
	ID          string
	Score       float64
	Explanation json.RawMessage
	Fields      json.RawMessage
	Fragments   map[string][]string
	Sort        []json.RawMessage

	// Locations is nil when the request did not ask for locations.
	Locations *Locations
}

// DecodeFields decodes the stored fields of the hit into valuePtr.
func (r *Row) DecodeFields(valuePtr interface{}) error {
	if len(r.Fields) == 0 {
		return ErrNoFields
	}
	return json.Unmarshal(r.Fields, valuePtr)
}

type MetaData struct {
	Errors  map[string]string
	Metrics Metrics
	Facets  map[string]FacetResult
}

type Metrics struct {
	FailedPartitionCount     uint64
	MaxScore                 float64
	SuccessfulPartitionCount uint64
	Took                     time.Duration
	TotalHits                uint64
	TotalPartitionCount      uint64
}

type TermFacetResult struct {
	Term  string
	Count int
}

type NumericRangeFacetResult struct {
	Name  string
	Min   float64
	Max   float64
	Count int
}

type DateRangeFacetResult struct {
	Name  string
	Start string
	End   string
	Count int
}

// FacetResult provides access to the result of a faceted query.
type FacetResult struct {
	Name          string
	Field         string
	Total         uint64
	Missing       uint64
	Other         uint64
	Terms         []TermFacetResult
	NumericRanges []NumericRangeFacetResult
	DateRanges    []DateRangeFacetResult
}
