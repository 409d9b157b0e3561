package probes

import (
	"context"
	"fmt"
	"runtime"

	"github.com/vietddude/courier/internal/health"
)

// MemoryProbe checks heap usage against warning and critical thresholds,
// expressed as fractions of a configured budget.
type MemoryProbe struct {
	health.Base
	budgetBytes       uint64
	warningThreshold  float64
	criticalThreshold float64

	readMemStats func(*runtime.MemStats)
}

// NewMemoryProbe creates a memory pressure probe. budgetBytes of 0
// defaults to 1 GiB; thresholds default to 0.80 and 0.95.
func NewMemoryProbe(budgetBytes uint64, warning, critical float64, opts health.ProbeOpts) *MemoryProbe {
	if budgetBytes == 0 {
		budgetBytes = 1 << 30
	}
	if warning <= 0 {
		warning = 0.80
	}
	if critical <= 0 {
		critical = 0.95
	}
	return &MemoryProbe{
		Base:              health.NewBase(opts, "memory"),
		budgetBytes:       budgetBytes,
		warningThreshold:  warning,
		criticalThreshold: critical,
		readMemStats:      runtime.ReadMemStats,
	}
}

func (p *MemoryProbe) Check(_ context.Context) (health.Result, error) {
	var ms runtime.MemStats
	p.readMemStats(&ms)

	usage := float64(ms.HeapAlloc) / float64(p.budgetBytes)

	var status health.Status
	var message string
	switch {
	case usage >= p.criticalThreshold:
		status = health.StatusUnhealthy
		message = fmt.Sprintf("critical memory usage: %.1f%%", usage*100)
	case usage >= p.warningThreshold:
		status = health.StatusDegraded
		message = fmt.Sprintf("high memory usage: %.1f%%", usage*100)
	default:
		status = health.StatusHealthy
		message = fmt.Sprintf("memory usage normal: %.1f%%", usage*100)
	}

	return health.Result{
		Name:    p.Name(),
		Status:  status,
		Message: message,
		Details: map[string]any{
			"heap_alloc_mb":      ms.HeapAlloc / (1 << 20),
			"heap_sys_mb":        ms.HeapSys / (1 << 20),
			"budget_mb":          p.budgetBytes / (1 << 20),
			"usage_percent":      usage,
			"warning_threshold":  p.warningThreshold,
			"critical_threshold": p.criticalThreshold,
			"num_gc":             ms.NumGC,
		},
	}, nil
}
