package tds

import (
	"strings"
	"time"
)

// timeNow and elapsedMs isolate the two time.Now() call sites so
// QueryResult.ElapsedMs stays a single, obviously-correct computation.
func timeNow() time.Time { return time.Now() }

func elapsedMs(start time.Time) int64 { return time.Since(start).Milliseconds() }

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
