package cbsearchx

import "encoding/json"

// Query represents a search query.
type Query interface {
	encodeToJSON() (json.RawMessage, error)
}

var _ Query = (*ConjunctionQuery)(nil)
var _ Query = (*DisjunctionQuery)(nil)
var _ Query = (*DocIDQuery)(nil)
var _ Query = (*MatchAllQuery)(nil)
var _ Query = (*MatchNoneQuery)(nil)
var _ Query = (*MatchPhraseQuery)(nil)
var _ Query = (*MatchQuery)(nil)
var _ Query = (*NumericRangeQuery)(nil)
var _ Query = (*PrefixQuery)(nil)
var _ Query = (*QueryStringQuery)(nil)
var _ Query = (*TermQuery)(nil)

// MatchOperator defines how the individual match terms should be logically concatenated.
type MatchOperator string

const (
	MatchOperatorOr  MatchOperator = "or"
	MatchOperatorAnd MatchOperator = "and"
)

type MatchQuery struct {
	Analyzer     string        `json:"analyzer,omitempty"`
	Boost        float32       `json:"boost,omitempty"`
	Field        string        `json:"field,omitempty"`
	Fuzziness    uint64        `json:"fuzziness,omitempty"`
	Match        string        `json:"match"`
	Operator     MatchOperator `json:"operator,omitempty"`
	PrefixLength uint64        `json:"prefix_length,omitempty"`
}

func (s *MatchQuery) encodeToJSON() (json.RawMessage, error) {
	return json.Marshal(s)
}

type MatchPhraseQuery struct {
	Analyzer string  `json:"analyzer,omitempty"`
	Boost    float32 `json:"boost,omitempty"`
	Field    string  `json:"field,omitempty"`
	Phrase   string  `json:"match_phrase"`
}

func (s *MatchPhraseQuery) encodeToJSON() (json.RawMessage, error) {
	return json.Marshal(s)
}

type QueryStringQuery struct {
	Boost float32 `json:"boost,omitempty"`
	Query string  `json:"query"`
}

func (s *QueryStringQuery) encodeToJSON() (json.RawMessage, error) {
	return json.Marshal(s)
}

type TermQuery struct {
	Boost        float32 `json:"boost,omitempty"`
	Field        string  `json:"field,omitempty"`
	Fuzziness    uint64  `json:"fuzziness,omitempty"`
	PrefixLength uint64  `json:"prefix_length,omitempty"`
	Term         string  `json:"term"`
}

func (s *TermQuery) encodeToJSON() (json.RawMessage, error) {
	return json.Marshal(s)
}

type PrefixQuery struct {
	Boost  float32 `json:"boost,omitempty"`
	Field  string  `json:"field,omitempty"`
	Prefix string  `json:"prefix"`
}

func (s *PrefixQuery) encodeToJSON() (json.RawMessage, error) {
	return json.Marshal(s)
}

// NumericRangeQuery matches numeric fields between Min and Max. A nil bound
// is left open.
type NumericRangeQuery struct {
	Boost        float32  `json:"boost,omitempty"`
	Field        string   `json:"field,omitempty"`
	Min          *float32 `json:"min,omitempty"`
	InclusiveMin *bool    `json:"inclusive_min,omitempty"`
	Max          *float32 `json:"max,omitempty"`
	InclusiveMax *bool    `json:"inclusive_max,omitempty"`
}

func (s *NumericRangeQuery) encodeToJSON() (json.RawMessage, error) {
	return json.Marshal(s)
}

type DocIDQuery struct {
	Boost  float32  `json:"boost,omitempty"`
	DocIds []string `json:"ids"`
}

func (s *DocIDQuery) encodeToJSON() (json.RawMessage, error) {
	return json.Marshal(s)
}

type MatchAllQuery struct{}

func (s *MatchAllQuery) encodeToJSON() (json.RawMessage, error) {
	return json.RawMessage(`{"match_all":null}`), nil
}

type MatchNoneQuery struct{}

func (s *MatchNoneQuery) encodeToJSON() (json.RawMessage, error) {
	return json.RawMessage(`{"match_none":null}`), nil
}

type ConjunctionQuery struct {
	Boost     float32
	Conjuncts []Query
}

func (s *ConjunctionQuery) encodeToJSON() (json.RawMessage, error) {
	conjuncts, err := encodeQueries(s.Conjuncts)
	if err != nil {
		return nil, err
	}

	return json.Marshal(struct {
		Boost     float32           `json:"boost,omitempty"`
		Conjuncts []json.RawMessage `json:"conjuncts"`
	}{s.Boost, conjuncts})
}

type DisjunctionQuery struct {
	Boost     float32
	Disjuncts []Query
	Min       uint32
}

func (s *DisjunctionQuery) encodeToJSON() (json.RawMessage, error) {
	disjuncts, err := encodeQueries(s.Disjuncts)
	if err != nil {
		return nil, err
	}

	return json.Marshal(struct {
		Boost     float32           `json:"boost,omitempty"`
		Disjuncts []json.RawMessage `json:"disjuncts"`
		Min       uint32            `json:"min,omitempty"`
	}{s.Boost, disjuncts, s.Min})
}

func encodeQueries(queries []Query) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(queries))
	for i, query := range queries {
		raw, err := query.encodeToJSON()
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}
