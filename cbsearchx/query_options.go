package cbsearchx

import (
	"encoding/json"
	"time"

	"github.com/couchbase/gocbstreamx/nativex"
)

type HighlightStyle string

const (
	DefaultHighlightStyle HighlightStyle = ""
	HTMLHighlightStyle    HighlightStyle = "html"
	AnsiHightlightStyle   HighlightStyle = "ansi"
)

// ConsistencyLevel indicates the level of data consistency desired for a search query.
type ConsistencyLevel uint

const (
	consistencyLevelNotSet ConsistencyLevel = iota
	ConsistencyLevelNotBounded
	ConsistencyLevelAtPlus
)

type ConsistencyResults string

const (
	ConsistencyResultsUnset    ConsistencyResults = ""
	ConsistencyResultsComplete ConsistencyResults = "complete"
)

type Highlight struct {
	Style  HighlightStyle
	Fields []string
}

type Consistency struct {
	Level   ConsistencyLevel
	Results ConsistencyResults
	Vectors map[string]map[string]uint64
}

type QueryOptions struct {
	Collections      []string
	Consistency      *Consistency
	Explain          bool
	Facets           map[string]Facet
	Fields           []string
	From             int
	Highlight        *Highlight
	IncludeLocations bool
	Query            Query
	Score            string
	Size             int
	Sort             []Sort
	Timeout          time.Duration

	Raw map[string]json.RawMessage
}

func (c *Consistency) encode() *nativex.ParamsBuilder {
	b := nativex.NewParamsBuilder()
	switch c.Level {
	case consistencyLevelNotSet:
	case ConsistencyLevelNotBounded:
		b.Set("level", "")
	case ConsistencyLevelAtPlus:
		b.Set("level", "at_plus")
	}
	b.SetString("results", string(c.Results))
	if len(c.Vectors) > 0 {
		b.Set("vectors", c.Vectors)
	}
	return b
}

// EncodeParams renders the search request body. The server side timeout is
// carried in ctl.timeout as milliseconds.
func (o *QueryOptions) EncodeParams() (nativex.Params, error) {
	if o.Query == nil {
		return nil, contextualError{Cause: ErrInvalidArgument, Description: "a search query must be specified"}
	}

	query, err := o.Query.encodeToJSON()
	if err != nil {
		return nil, contextualError{Cause: err, Description: "failed to encode search query"}
	}

	b := nativex.NewParamsBuilder()
	b.SetRaw("query", query)

	if len(o.Collections) > 0 {
		b.Set("collections", o.Collections)
	}

	ctl := nativex.NewParamsBuilder()
	if o.Consistency != nil {
		ctl.SetObject("consistency", o.Consistency.encode())
	}
	ctl.SetMillis("timeout", o.Timeout)
	if ctl.Len() > 0 || ctl.Err() != nil {
		b.SetObject("ctl", ctl)
	}

	b.SetBool("explain", o.Explain)

	if len(o.Facets) > 0 {
		facets := nativex.NewParamsBuilder()
		for name, facet := range o.Facets {
			raw, err := facet.encodeToJSON()
			if err != nil {
				return nil, contextualError{Cause: err, Description: "failed to encode facet " + name}
			}
			facets.SetRaw(name, raw)
		}
		b.SetObject("facets", facets)
	}

	if len(o.Fields) > 0 {
		b.Set("fields", o.Fields)
	}
	b.SetInt("from", o.From)

	if o.Highlight != nil {
		highlight := nativex.NewParamsBuilder()
		highlight.Set("fields", o.Highlight.Fields)
		highlight.SetString("style", string(o.Highlight.Style))
		b.SetObject("highlight", highlight)
	}

	b.SetBool("includeLocations", o.IncludeLocations)
	b.SetString("score", o.Score)
	b.SetInt("size", o.Size)

	if len(o.Sort) > 0 {
		sorts := make([]json.RawMessage, len(o.Sort))
		for i, sort := range o.Sort {
			raw, err := sort.encodeToJSON()
			if err != nil {
				return nil, contextualError{Cause: err, Description: "failed to encode sort"}
			}
			sorts[i] = raw
		}
		b.Set("sort", sorts)
	}

	b.Merge(o.Raw)

	params, err := b.Build()
	if err != nil {
		return nil, contextualError{Cause: err, Description: "failed to encode search options"}
	}
	return params, nil
}
