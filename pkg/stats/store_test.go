package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryplex/queryplex/pkg/types"
)

func TestSuccessRateOptimisticDefault(t *testing.T) {
	var m Metric
	assert.Equal(t, 1.0, m.SuccessRate())
}

func TestSuccessRateObserved(t *testing.T) {
	m := Metric{SuccessCount: 3, FailureCount: 1}
	assert.InDelta(t, 0.75, m.SuccessRate(), 1e-9)
}

func TestScoreFavorsLowLatency(t *testing.T) {
	fast := Metric{SuccessCount: 10, AvgLatencyMs: 100}
	slow := Metric{SuccessCount: 10, AvgLatencyMs: 1000}
	assert.Greater(t, fast.Score(), slow.Score())
}

func TestScoreFlooredLatency(t *testing.T) {
	// A provider with no latency observations must not divide by zero.
	m := Metric{SuccessCount: 1}
	assert.InDelta(t, 1.0/0.001, m.Score(), 1e-9)
}

func TestFoldCounts(t *testing.T) {
	var m Metric
	fold(&m, &types.ProviderCallResult{Success: true, Latency: 100 * time.Millisecond, Cost: 0.01})
	fold(&m, &types.ProviderCallResult{Success: false, Latency: 50 * time.Millisecond})

	assert.Equal(t, int64(1), m.SuccessCount)
	assert.Equal(t, int64(1), m.FailureCount)
}

func TestFoldLatencyEWMA(t *testing.T) {
	var m Metric
	fold(&m, &types.ProviderCallResult{Success: true, Latency: 100 * time.Millisecond})
	assert.InDelta(t, 100.0, m.AvgLatencyMs, 1e-9)

	fold(&m, &types.ProviderCallResult{Success: true, Latency: 200 * time.Millisecond})
	assert.InDelta(t, 100*0.9+200*0.1, m.AvgLatencyMs, 1e-9)
}

func TestFoldCostOnlyOnSuccess(t *testing.T) {
	var m Metric
	fold(&m, &types.ProviderCallResult{Success: false, Latency: time.Millisecond, Cost: 0.5})
	assert.Zero(t, m.AvgCostUSD)

	fold(&m, &types.ProviderCallResult{Success: true, Latency: time.Millisecond, Cost: 0.5})
	assert.InDelta(t, 0.5, m.AvgCostUSD, 1e-9)
}

func TestPickBestHighestScore(t *testing.T) {
	best, err := pickBest(
		[]string{"slow", "fast"},
		[]Metric{
			{SuccessCount: 10, AvgLatencyMs: 1000},
			{SuccessCount: 10, AvgLatencyMs: 100},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "fast", best)
}

func TestPickBestTieBrokenByCost(t *testing.T) {
	best, err := pickBest(
		[]string{"pricey", "cheap"},
		[]Metric{
			{SuccessCount: 10, AvgLatencyMs: 100, AvgCostUSD: 0.05},
			{SuccessCount: 10, AvgLatencyMs: 100, AvgCostUSD: 0.01},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "cheap", best)
}

func TestPickBestFullTieKeepsCandidateOrder(t *testing.T) {
	best, err := pickBest(
		[]string{"first", "second"},
		[]Metric{{}, {}},
	)
	require.NoError(t, err)
	assert.Equal(t, "first", best)
}

func TestPickBestNoCandidates(t *testing.T) {
	_, err := pickBest(nil, nil)
	require.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "openai|code", Key("openai", "code"))
}
