// Package leakcheck reports http response bodies and goroutines that
// outlive a test run.
package leakcheck

import "go.uber.org/zap"

func EnableAll() {
	EnableHttpResponseTracking()
}

// ReportAll logs every detected leak and reports whether the run was clean.
func ReportAll(logger *zap.Logger) bool {
	if logger == nil {
		logger = zap.NewNop()
	}

	clean := ReportLeakedHttpResponses(logger)
	if !ReportLeakedGoroutines(logger) {
		clean = false
	}
	return clean
}
