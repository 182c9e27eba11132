package zaputils

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxStatementLen bounds how much of a statement ends up in a log line.
const maxStatementLen = 128

func Service(key string, val fmt.Stringer) zap.Field {
	return zap.Stringer(key, val)
}

func ClientContextID(key string, val string) zap.Field {
	return zap.String(key, val)
}

func IndexName(key string, val string) zap.Field {
	return zap.String(key, val)
}

type loggableStatement string

func (s loggableStatement) String() string {
	if len(s) <= maxStatementLen {
		return string(s)
	}
	return string(s[:maxStatementLen]) + "..."
}

// Statement logs a query statement, truncated to keep log lines bounded.
func Statement(key string, val string) zap.Field {
	return zap.Stringer(key, loggableStatement(val))
}

type LoggableRequest struct {
	Service         string
	ClientContextID string
	Statement       string
}

func (r LoggableRequest) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("service", r.Service)
	if r.ClientContextID != "" {
		enc.AddString("clientContextId", r.ClientContextID)
	}
	if r.Statement != "" {
		enc.AddString("statement", loggableStatement(r.Statement).String())
	}
	return nil
}

// Request logs the identifying parts of a streaming request as one object.
func Request(key string, service, clientContextID, statement string) zap.Field {
	return zap.Object(key, LoggableRequest{
		Service:         service,
		ClientContextID: clientContextID,
		Statement:       statement,
	})
}
