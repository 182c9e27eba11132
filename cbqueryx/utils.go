package cbqueryx

import (
	"encoding/json"
	"strings"
)

// EncodeIdentifier escapes an identifier for use in a N1QL statement.
func EncodeIdentifier(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "\\`") + "`"
}

// EncodeValue renders a value as a N1QL literal.
func EncodeValue(value interface{}) (string, error) {
	bytes, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// QueryContext returns the query_context value for a bucket and scope.
func QueryContext(bucketName, scopeName string) string {
	if scopeName == "" {
		return "default:" + EncodeIdentifier(bucketName)
	}
	return "default:" + EncodeIdentifier(bucketName) + "." + EncodeIdentifier(scopeName)
}
