// Package health provides resource health monitoring and status reporting.
package health

import "context"

// Status represents the health state of the system or a resource.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusCritical Status = "critical"
)

// ResourceHealth contains the probe result for one configured resource.
type ResourceHealth struct {
	Resource string `json:"resource"`
	Status   Status `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Prober checks that a named resource is reachable and usable.
type Prober interface {
	Probe(ctx context.Context, resource string) error
}

// Check probes every configured resource and returns per-resource results.
func Check(ctx context.Context, prober Prober, resources []string) []ResourceHealth {
	report := make([]ResourceHealth, 0, len(resources))
	for _, name := range resources {
		rh := ResourceHealth{Resource: name, Status: StatusHealthy}
		if err := prober.Probe(ctx, name); err != nil {
			rh.Status = StatusCritical
			rh.Error = err.Error()
		}
		report = append(report, rh)
	}
	return report
}

// Aggregate reduces per-resource results to an overall status. Worst case
// wins.
func Aggregate(report []ResourceHealth) Status {
	for _, rh := range report {
		if rh.Status == StatusCritical {
			return StatusCritical
		}
	}
	return StatusHealthy
}
