package cbsearchx

import "encoding/json"

// Sort represents an search sorting for a search query.
type Sort interface {
	encodeToJSON() (json.RawMessage, error)
}

var _ Sort = (*SortScore)(nil)
var _ Sort = (*SortID)(nil)
var _ Sort = (*SortField)(nil)

type sortJson struct {
	By      string `json:"by"`
	Desc    *bool  `json:"desc,omitempty"`
	Field   string `json:"field,omitempty"`
	Type    string `json:"type,omitempty"`
	Mode    string `json:"mode,omitempty"`
	Missing string `json:"missing,omitempty"`
}

type SortScore struct {
	Descending *bool
}

func (s *SortScore) encodeToJSON() (json.RawMessage, error) {
	return json.Marshal(sortJson{By: "score", Desc: s.Descending})
}

type SortID struct {
	Descending *bool
}

func (s *SortID) encodeToJSON() (json.RawMessage, error) {
	return json.Marshal(sortJson{By: "id", Desc: s.Descending})
}

type SortField struct {
	Descending *bool
	Field      string
	Missing    string
	Mode       string
	Type       string
}

func (s *SortField) encodeToJSON() (json.RawMessage, error) {
	return json.Marshal(sortJson{
		By:      "field",
		Desc:    s.Descending,
		Field:   s.Field,
		Type:    s.Type,
		Mode:    s.Mode,
		Missing: s.Missing,
	})
}
