package health

import (
	"fmt"
)

// MasterStats is the view of the master the built-in checks inspect.
type MasterStats interface {
	// LogUtilization returns resident segments and the configured budget
	// (0 when unbounded).
	LogUtilization() (segments, maxSegments int)
	// TabletCount returns the number of tablets served.
	TabletCount() int
}

// LogCheck reports degraded when the log is close to its segment budget
// and unhealthy when it is exhausted.
func LogCheck(stats MasterStats) CheckFunc {
	return func() Check {
		segments, maxSegments := stats.LogUtilization()
		check := Check{
			Name:   "log",
			Status: StatusHealthy,
			Details: map[string]any{
				"segments":     segments,
				"max_segments": maxSegments,
			},
		}
		if maxSegments == 0 {
			return check
		}
		switch {
		case segments >= maxSegments:
			check.Status = StatusUnhealthy
			check.Message = "log segment budget exhausted"
		case segments*10 >= maxSegments*9:
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("log at %d of %d segments", segments, maxSegments)
		}
		return check
	}
}

// TabletCheck reports degraded when the master serves no tablets, which
// usually means enlistment or recovery has not finished.
func TabletCheck(stats MasterStats) CheckFunc {
	return func() Check {
		count := stats.TabletCount()
		check := Check{
			Name:    "tablets",
			Status:  StatusHealthy,
			Details: map[string]any{"served": count},
		}
		if count == 0 {
			check.Status = StatusDegraded
			check.Message = "no tablets assigned"
		}
		return check
	}
}
