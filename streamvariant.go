package gocbstreamx

import (
	"encoding/json"

	"github.com/couchbase/gocbstreamx/cbanalyticsx"
	"github.com/couchbase/gocbstreamx/cbqueryx"
	"github.com/couchbase/gocbstreamx/cbsearchx"
	"github.com/couchbase/gocbstreamx/nativex"
	"go.uber.org/zap"
)

// streamVariant holds the per-service behaviour of a streaming request:
// how rows are decoded, how the response envelope is parsed and how engine
// errors are classified.
type streamVariant[RowT any, MetaT any] interface {
	Service() nativex.ServiceType
	DecodeRow(raw json.RawMessage, serializer Serializer) (RowT, error)
	ParseMetaData(envelope json.RawMessage, logger *zap.Logger) (*MetaT, error)
	ClassifyError(err error) error
}

func deserializeRow[RowT any](raw json.RawMessage, serializer Serializer) (RowT, error) {
	var row RowT
	if err := serializer.Deserialize(raw, &row); err != nil {
		return row, err
	}
	return row, nil
}

type queryVariant[RowT any] struct{}

var _ streamVariant[json.RawMessage, cbqueryx.MetaData] = queryVariant[json.RawMessage]{}

func (queryVariant[RowT]) Service() nativex.ServiceType {
	return nativex.QueryService
}

func (queryVariant[RowT]) DecodeRow(raw json.RawMessage, serializer Serializer) (RowT, error) {
	return deserializeRow[RowT](raw, serializer)
}

func (queryVariant[RowT]) ParseMetaData(envelope json.RawMessage, logger *zap.Logger) (*cbqueryx.MetaData, error) {
	return cbqueryx.ParseMetaData(envelope, logger)
}

func (queryVariant[RowT]) ClassifyError(err error) error {
	return cbqueryx.ClassifyError(err)
}

type analyticsVariant[RowT any] struct{}

var _ streamVariant[json.RawMessage, cbanalyticsx.MetaData] = analyticsVariant[json.RawMessage]{}

func (analyticsVariant[RowT]) Service() nativex.ServiceType {
	return nativex.AnalyticsService
}

func (analyticsVariant[RowT]) DecodeRow(raw json.RawMessage, serializer Serializer) (RowT, error) {
	return deserializeRow[RowT](raw, serializer)
}

func (analyticsVariant[RowT]) ParseMetaData(envelope json.RawMessage, logger *zap.Logger) (*cbanalyticsx.MetaData, error) {
	return cbanalyticsx.ParseMetaData(envelope, logger)
}

func (analyticsVariant[RowT]) ClassifyError(err error) error {
	return cbanalyticsx.ClassifyError(err)
}

// searchVariant decodes hits into cbsearchx.Row. The serializer decodes
// the hit itself and any fields or explanation embedded as strings.
type searchVariant struct{}

var _ streamVariant[cbsearchx.Row, cbsearchx.MetaData] = searchVariant{}

func (searchVariant) Service() nativex.ServiceType {
	return nativex.SearchService
}

func (searchVariant) DecodeRow(raw json.RawMessage, serializer Serializer) (cbsearchx.Row, error) {
	row, err := cbsearchx.ParseRow(raw, serializer.Deserialize)
	if err != nil {
		return cbsearchx.Row{}, err
	}
	return *row, nil
}

func (searchVariant) ParseMetaData(envelope json.RawMessage, logger *zap.Logger) (*cbsearchx.MetaData, error) {
	return cbsearchx.ParseMetaData(envelope, logger)
}

func (searchVariant) ClassifyError(err error) error {
	return cbsearchx.ClassifyError(err)
}
