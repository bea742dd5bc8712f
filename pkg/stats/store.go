// Package stats implements the per-(provider, request-type) performance
// ledger used to steer routing decisions: success/failure counters and
// exponentially-weighted moving averages for latency and cost.
package stats

import (
	"context"
	"fmt"

	"github.com/queryplex/queryplex/pkg/types"
)

// Alpha is the EWMA smoothing factor: new = old*(1-Alpha) + sample*Alpha.
const Alpha = 0.1

// epsilon floors the latency denominator in ranking so untested providers
// do not divide by zero.
const epsilon = 0.001

// Metric holds the cumulative ledger for one (provider, request-type) key.
// Counts only increase within a process lifetime.
type Metric struct {
	SuccessCount int64   `json:"success_count"`
	FailureCount int64   `json:"failure_count"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	AvgCostUSD   float64 `json:"avg_cost_usd"`
}

// SuccessRate returns the observed success ratio, defaulting to 1.0 for a
// provider with zero observations so untested providers get a fair first try.
func (m Metric) SuccessRate() float64 {
	total := m.SuccessCount + m.FailureCount
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessCount) / float64(total)
}

// Score ranks a provider: higher success rate and lower latency win.
func (m Metric) Score() float64 {
	latencySec := m.AvgLatencyMs / 1000.0
	if latencySec < epsilon {
		latencySec = epsilon
	}
	return m.SuccessRate() / latencySec
}

// Store is the metrics ledger consulted by the request router.
// Implementations must be safe for concurrent use; updates are atomic per
// (provider, request-type) key.
type Store interface {
	// Record folds one provider call outcome into the ledger.
	Record(ctx context.Context, provider, requestType string, result *types.ProviderCallResult) error

	// Snapshot returns a copy of the metric for the key, and whether any
	// observation exists.
	Snapshot(ctx context.Context, provider, requestType string) (Metric, bool, error)

	// BestProvider returns the candidate with the highest score. Ties are
	// broken by lower average cost, then by candidate order (callers pass
	// candidates in registry priority order).
	BestProvider(ctx context.Context, candidates []string, requestType string) (string, error)

	// Close releases any resources held by the store.
	Close() error
}

// pickBest applies the shared ranking rule over candidate metrics.
// Candidates must be in registry priority order.
func pickBest(candidates []string, metrics []Metric) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("no candidate providers")
	}

	best := 0
	for i := 1; i < len(candidates); i++ {
		si, sb := metrics[i].Score(), metrics[best].Score()
		switch {
		case si > sb:
			best = i
		case si == sb && metrics[i].AvgCostUSD < metrics[best].AvgCostUSD:
			best = i
		}
	}
	return candidates[best], nil
}

// fold applies one call outcome to a metric in place.
// The caller must hold the per-key lock.
func fold(m *Metric, result *types.ProviderCallResult) {
	if result.Success {
		m.SuccessCount++
	} else {
		m.FailureCount++
	}

	latencyMs := float64(result.Latency.Milliseconds())
	if latencyMs > 0 {
		if m.AvgLatencyMs == 0 {
			m.AvgLatencyMs = latencyMs
		} else {
			m.AvgLatencyMs = m.AvgLatencyMs*(1-Alpha) + latencyMs*Alpha
		}
	}

	if result.Success && result.Cost > 0 {
		if m.AvgCostUSD == 0 {
			m.AvgCostUSD = result.Cost
		} else {
			m.AvgCostUSD = m.AvgCostUSD*(1-Alpha) + result.Cost*Alpha
		}
	}
}

// Key builds the ledger key for a (provider, request-type) pair.
func Key(provider, requestType string) string {
	return provider + "|" + requestType
}
