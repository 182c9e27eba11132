package leakcheck

import (
	"bytes"
	"runtime"
	"runtime/pprof"
	"time"

	"go.uber.org/zap"
)

// ExpectedGoroutines is the number of goroutines a clean process is left
// with once the tests have finished: only the one running the check.
var ExpectedGoroutines = 1

// GoroutineCleanupPeriod bounds how long exiting goroutines are given to
// finish before they count as leaked.
var GoroutineCleanupPeriod = 1 * time.Second

func ReportLeakedGoroutines(logger *zap.Logger) bool {
	var finalGoroutineCount int
	start := time.Now()
	for time.Since(start) <= GoroutineCleanupPeriod {
		runtime.Gosched()

		finalGoroutineCount = runtime.NumGoroutine()
		if finalGoroutineCount <= ExpectedGoroutines {
			break
		}

		time.Sleep(10 * time.Millisecond)
	}

	if finalGoroutineCount > ExpectedGoroutines {
		var stacks bytes.Buffer
		_ = pprof.Lookup("goroutine").WriteTo(&stacks, 1)

		logger.Error("detected a goroutine leak",
			zap.Int("goroutines", finalGoroutineCount),
			zap.Int("expected", ExpectedGoroutines),
			zap.String("stacks", stacks.String()))
		return false
	}

	logger.Debug("no goroutines appear to have leaked",
		zap.Int("goroutines", finalGoroutineCount))
	return true
}
