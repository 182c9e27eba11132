package cbsearchx

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseMetaData(t *testing.T) {
	meta, err := ParseMetaData(json.RawMessage(`{
		"status": {"total": 6, "failed": 1, "successful": 5, "errors": {"pindex_1": "timeout"}},
		"total_hits": 120,
		"max_score": 3.5,
		"took": 1500000,
		"facets": {
			"types": {
				"field": "type",
				"total": 120,
				"missing": 2,
				"other": 0,
				"terms": [{"term": "hotel", "count": 100}, {"term": "landmark", "count": 18}]
			}
		}
	}`), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, uint64(120), meta.Metrics.TotalHits)
	assert.Equal(t, 3.5, meta.Metrics.MaxScore)
	assert.Equal(t, 1500*time.Microsecond, meta.Metrics.Took)
	assert.Equal(t, uint64(6), meta.Metrics.TotalPartitionCount)
	assert.Equal(t, uint64(1), meta.Metrics.FailedPartitionCount)
	assert.Equal(t, map[string]string{"pindex_1": "timeout"}, meta.Errors)

	require.Contains(t, meta.Facets, "types")
	facet := meta.Facets["types"]
	assert.Equal(t, "types", facet.Name)
	assert.Equal(t, "type", facet.Field)
	assert.Equal(t, []TermFacetResult{{Term: "hotel", Count: 100}, {Term: "landmark", Count: 18}}, facet.Terms)
}
