// Package health orchestrates independent health probes and aggregates
// their results into a single system status.
package health

import "time"

// Status represents the health state of a component or the system.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// Result is the outcome of a single probe run. Produced fresh on every
// run and never mutated after return.
type Result struct {
	Name      string         `json:"name"`
	Status    Status         `json:"status"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  time.Duration  `json:"duration"`
	Error     string         `json:"error,omitempty"`
}

// Summary aggregates all probe results for one orchestration run.
type Summary struct {
	Overall        Status        `json:"overall_status"`
	TotalChecks    int           `json:"total_checks"`
	HealthyCount   int           `json:"healthy_count"`
	DegradedCount  int           `json:"degraded_count"`
	UnhealthyCount int           `json:"unhealthy_count"`
	UnknownCount   int           `json:"unknown_count"`
	Checks         []Result      `json:"checks"`
	Timestamp      time.Time     `json:"timestamp"`
	Duration       time.Duration `json:"duration"`
}

// ResultFor returns the result for a named probe in this summary.
func (s Summary) ResultFor(name string) (Result, bool) {
	for _, r := range s.Checks {
		if r.Name == name {
			return r, true
		}
	}
	return Result{}, false
}
