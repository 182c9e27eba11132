package cbsearchx

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

func ParseMetaData(envelope json.RawMessage, logger *zap.Logger) (*MetaData, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var epilog searchEpilogJson
	if err := json.Unmarshal(envelope, &epilog); err != nil {
		return nil, contextualError{Cause: err, Description: "failed to parse search metadata"}
	}

	if len(epilog.Status.Errors) > 0 {
		logger.Debug("search completed with partition errors",
			zap.Int("numErrors", len(epilog.Status.Errors)),
			zap.Uint64("failed", epilog.Status.Failed))
	}

	facets := make(map[string]FacetResult, len(epilog.Facets))
	for facetName, facetData := range epilog.Facets {
		facet := parseFacet(facetData)
		facet.Name = facetName
		facets[facetName] = facet
	}

	return &MetaData{
		Metrics: Metrics{
			FailedPartitionCount:     epilog.Status.Failed,
			MaxScore:                 epilog.MaxScore,
			SuccessfulPartitionCount: epilog.Status.Successful,
			Took:                     time.Duration(epilog.Took),
			TotalHits:                epilog.TotalHits,
			TotalPartitionCount:      epilog.Status.Total,
		},
		Errors: epilog.Status.Errors,
		Facets: facets,
	}, nil
}

func parseFacet(data facetJson) FacetResult {
	var result FacetResult
	result.Field = data.Field
	result.Total = data.Total
	result.Missing = data.Missing
	result.Other = data.Other
	for _, term := range data.Terms {
		result.Terms = append(result.Terms, TermFacetResult(term))
	}
	for _, nr := range data.NumericRanges {
		result.NumericRanges = append(result.NumericRanges, NumericRangeFacetResult(nr))
	}
	for _, dr := range data.DateRanges {
		result.DateRanges = append(result.DateRanges, DateRangeFacetResult(dr))
	}

	return result
}
