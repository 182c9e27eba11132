package cbqueryx

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Metrics encapsulates various metrics gathered during a queries execution.
type Metrics struct {
	ElapsedTime   time.Duration
	ExecutionTime time.Duration
	ResultCount   uint64
	ResultSize    uint64
	MutationCount uint64
	SortCount     uint64
	ErrorCount    uint64
	WarningCount  uint64
}

// Warning encapsulates any warnings returned by a query.
type Warning struct {
	Code    uint32
	Message string
}

// MetaData provides access to the meta-data properties of a query result.
type MetaData struct {
	RequestID       string
	ClientContextID string
	Status          QueryStatus
	Metrics         *Metrics
	Signature       json.RawMessage
	Warnings        []Warning
	Profile         json.RawMessage
	Prepared        string
}

type metaDataJson struct {
	RequestID       string            `json:"requestID,omitempty"`
	ClientContextID string            `json:"clientContextID,omitempty"`
	Status          QueryStatus       `json:"status,omitempty"`
	Warnings        []warningJson     `json:"warnings,omitempty"`
	Metrics         *metricsJson      `json:"metrics,omitempty"`
	Profile         json.RawMessage   `json:"profile,omitempty"`
	Signature       json.RawMessage   `json:"signature,omitempty"`
	Prepared        string            `json:"prepared,omitempty"`
	Errors          []json.RawMessage `json:"errors,omitempty"`
}

type metricsJson struct {
	ElapsedTime   string `json:"elapsedTime,omitempty"`
	ExecutionTime string `json:"executionTime,omitempty"`
	ResultCount   uint64 `json:"resultCount,omitempty"`
	ResultSize    uint64 `json:"resultSize,omitempty"`
	MutationCount uint64 `json:"mutationCount,omitempty"`
	SortCount     uint64 `json:"sortCount,omitempty"`
	ErrorCount    uint64 `json:"errorCount,omitempty"`
	WarningCount  uint64 `json:"warningCount,omitempty"`
}

type warningJson struct {
	Code    uint32 `json:"code,omitempty"`
	Message string `json:"msg,omitempty"`
}

// ParseMetaData decodes the response envelope returned after the last row.
func ParseMetaData(envelope json.RawMessage, logger *zap.Logger) (*MetaData, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var data metaDataJson
	if err := json.Unmarshal(envelope, &data); err != nil {
		return nil, contextualError{Cause: err, Description: "failed to parse query metadata"}
	}

	warnings := make([]Warning, len(data.Warnings))
	for i, w := range data.Warnings {
		warnings[i] = Warning{
			Code:    w.Code,
			Message: w.Message,
		}
	}

	status := data.Status
	if status == "" {
		status = QueryStatusUnknown
	}

	return &MetaData{
		RequestID:       data.RequestID,
		ClientContextID: data.ClientContextID,
		Status:          status,
		Metrics:         parseMetrics(data.Metrics, logger),
		Signature:       data.Signature,
		Warnings:        warnings,
		Profile:         data.Profile,
		Prepared:        data.Prepared,
	}, nil
}

func parseMetrics(data *metricsJson, logger *zap.Logger) *Metrics {
	if data == nil {
		return nil
	}

	elapsedTime, err := time.ParseDuration(data.ElapsedTime)
	if err != nil {
		logger.Debug("failed to parse query metrics elapsed time", zap.Error(err))
	}

	executionTime, err := time.ParseDuration(data.ExecutionTime)
	if err != nil {
		logger.Debug("failed to parse query metrics execution time", zap.Error(err))
	}

	return &Metrics{
		ElapsedTime:   elapsedTime,
		ExecutionTime: executionTime,
		ResultCount:   data.ResultCount,
		ResultSize:    data.ResultSize,
		MutationCount: data.MutationCount,
		SortCount:     data.SortCount,
		ErrorCount:    data.ErrorCount,
		WarningCount:  data.WarningCount,
	}
}
