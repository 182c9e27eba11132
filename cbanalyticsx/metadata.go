package cbanalyticsx

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

type MetaData struct {
	RequestID       string
	ClientContextID string
	Status          Status
	Metrics         *Metrics
	Signature       json.RawMessage
	Warnings        []Warning
}

type Warning struct {
	Code    uint32
	Message string
}

type Metrics struct {
	ElapsedTime      time.Duration
	ExecutionTime    time.Duration
	ResultCount      uint64
	ResultSize       uint64
	MutationCount    uint64
	SortCount        uint64
	ErrorCount       uint64
	WarningCount     uint64
	ProcessedObjects uint64
}

type metaDataJson struct {
	RequestID       string          `json:"requestID,omitempty"`
	ClientContextID string          `json:"clientContextID,omitempty"`
	Status          Status          `json:"status,omitempty"`
	Warnings        []warningJson   `json:"warnings,omitempty"`
	Metrics         *metricsJson    `json:"metrics,omitempty"`
	Signature       json.RawMessage `json:"signature,omitempty"`
}

type metricsJson struct {
	ElapsedTime      string `json:"elapsedTime,omitempty"`
	ExecutionTime    string `json:"executionTime,omitempty"`
	ResultCount      uint64 `json:"resultCount,omitempty"`
	ResultSize       uint64 `json:"resultSize,omitempty"`
	MutationCount    uint64 `json:"mutationCount,omitempty"`
	SortCount        uint64 `json:"sortCount,omitempty"`
	ErrorCount       uint64 `json:"errorCount,omitempty"`
	WarningCount     uint64 `json:"warningCount,omitempty"`
	ProcessedObjects uint64 `json:"processedObjects,omitempty"`
}

type warningJson struct {
	Code    uint32 `json:"code,omitempty"`
	Message string `json:"msg,omitempty"`
}

func ParseMetaData(envelope json.RawMessage, logger *zap.Logger) (*MetaData, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var data metaDataJson
	if err := json.Unmarshal(envelope, &data); err != nil {
		return nil, contextualError{Cause: err, Description: "failed to parse analytics metadata"}
	}

	var warns []Warning
	for _, warnJson := range data.Warnings {
		warns = append(warns, Warning{
			Code:    warnJson.Code,
			Message: warnJson.Message,
		})
	}

	var metrics *Metrics
	if data.Metrics != nil {
		elapsedTime, err := time.ParseDuration(data.Metrics.ElapsedTime)
		if err != nil {
			logger.Debug("failed to parse elapsed time duration", zap.Error(err))
		}

		executionTime, err := time.ParseDuration(data.Metrics.ExecutionTime)
		if err != nil {
			logger.Debug("failed to parse execution time duration", zap.Error(err))
		}

		metrics = &Metrics{
			ElapsedTime:      elapsedTime,
			ExecutionTime:    executionTime,
			ResultCount:      data.Metrics.ResultCount,
			ResultSize:       data.Metrics.ResultSize,
			MutationCount:    data.Metrics.MutationCount,
			SortCount:        data.Metrics.SortCount,
			ErrorCount:       data.Metrics.ErrorCount,
			WarningCount:     data.Metrics.WarningCount,
			ProcessedObjects: data.Metrics.ProcessedObjects,
		}
	}

	status := data.Status
	if status == "" {
		status = StatusUnknown
	}

	return &MetaData{
		RequestID:       data.RequestID,
		ClientContextID: data.ClientContextID,
		Status:          status,
		Metrics:         metrics,
		Signature:       data.Signature,
		Warnings:        warns,
	}, nil
}
