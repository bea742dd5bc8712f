package queryplex

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryplex/queryplex/caches"
	qperrors "github.com/queryplex/queryplex/pkg/errors"
	"github.com/queryplex/queryplex/pkg/provider"
	"github.com/queryplex/queryplex/pkg/stats"
	"github.com/queryplex/queryplex/pkg/types"
	"github.com/queryplex/queryplex/providers/mock"
)

func mockInfo(name string, priority int, caps ...string) provider.Info {
	if len(caps) == 0 {
		caps = []string{"code"}
	}
	return provider.Info{
		Name:            name,
		DefaultModel:    "test-model",
		InputCostPer1K:  0.001,
		OutputCostPer1K: 0.002,
		Capabilities:    caps,
		Priority:        priority,
	}
}

func TestHandleEndToEnd(t *testing.T) {
	free := mock.New("free-llm", mock.Response{
		Text:         "Use binary search. Watch the edge cases.",
		InputTokens:  100,
		OutputTokens: 200,
	})
	premium := mock.New("premium-llm", mock.Response{
		Text:         "Recursion is an option.\n```go\nfunc search() {}\n```",
		InputTokens:  100,
		OutputTokens: 300,
	})

	client, err := New(
		WithProviderInstance(mockInfo("free-llm", 1), free),
		WithProviderInstance(mockInfo("premium-llm", 2), premium),
		WithRoutingRule("code", RoutingRule{
			Chain:               []string{"free-llm", "premium-llm"},
			Enrich:              true,
			EnrichmentProviders: 2,
		}),
		WithCache(caches.NewMemoryDefault()),
	)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()

	result, err := client.Handle(ctx, "implement binary search", "code")
	require.NoError(t, err)

	assert.False(t, result.CacheHit)
	assert.True(t, strings.HasPrefix(result.Text, "Use binary search."))
	assert.Contains(t, result.Text, "Synthesis notes")
	assert.Greater(t, result.EssencesIntegrated, 0)
	assert.Greater(t, result.TotalCost, 0.0)

	// Base call on free-llm plus one fan-out call each.
	assert.Equal(t, int64(2), free.Calls())
	assert.Equal(t, int64(1), premium.Calls())

	// The repeat hits the cache: essences are reused, only the base
	// response is refreshed.
	repeat, err := client.Handle(ctx, "Implement  Binary Search", "code")
	require.NoError(t, err)

	assert.True(t, repeat.CacheHit)
	assert.Equal(t, result.EssencesIntegrated, repeat.EssencesIntegrated)
	assert.Equal(t, int64(3), free.Calls())
	assert.Equal(t, int64(1), premium.Calls())
}

func TestHandleFallsBackOnFailure(t *testing.T) {
	free := mock.New("free-llm", mock.Response{Err: qperrors.NewTransportError("free-llm", "down")})
	premium := mock.New("premium-llm", mock.Response{Text: "premium answer", InputTokens: 10, OutputTokens: 10})

	client, err := New(
		WithProviderInstance(mockInfo("free-llm", 1), free),
		WithProviderInstance(mockInfo("premium-llm", 2), premium),
		WithRoutingRule("code", RoutingRule{Chain: []string{"free-llm", "premium-llm"}}),
	)
	require.NoError(t, err)
	defer client.Close()

	result, err := client.Handle(context.Background(), "question", "code")
	require.NoError(t, err)

	assert.Equal(t, "premium answer", result.Text)
	assert.Equal(t, int64(1), free.Calls())
	assert.Equal(t, int64(1), premium.Calls())
}

func TestHandleAllProvidersExhausted(t *testing.T) {
	client, err := New(
		WithProviderInstance(mockInfo("a", 1), mock.New("a", mock.Response{Err: qperrors.NewTransportError("a", "down")})),
		WithProviderInstance(mockInfo("b", 2), mock.New("b", mock.Response{Err: qperrors.NewRateLimitedError("b", "throttled")})),
		WithRoutingRule("code", RoutingRule{Chain: []string{"a", "b"}}),
	)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Handle(context.Background(), "question", "code")
	require.Error(t, err)

	var exhausted *qperrors.AllProvidersExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Errors, 2)
}

func TestHandleEnrichmentFailureDegradesGracefully(t *testing.T) {
	// Fan-out picks the two lowest-priority-rank providers, both broken.
	// The pinned base chain still succeeds, so the request does too.
	solid := mock.New("solid", mock.Response{Text: "base answer", InputTokens: 10, OutputTokens: 10})
	brokenA := mock.New("broken-a", mock.Response{Err: qperrors.NewTransportError("broken-a", "down")})
	brokenB := mock.New("broken-b", mock.Response{Err: qperrors.NewTransportError("broken-b", "down")})

	client, err := New(
		WithProviderInstance(mockInfo("broken-a", 1), brokenA),
		WithProviderInstance(mockInfo("broken-b", 2), brokenB),
		WithProviderInstance(mockInfo("solid", 3), solid),
		WithRoutingRule("code", RoutingRule{
			Chain:               []string{"solid"},
			Enrich:              true,
			EnrichmentProviders: 2,
		}),
		WithCache(caches.NewMemoryDefault()),
	)
	require.NoError(t, err)
	defer client.Close()

	result, err := client.Handle(context.Background(), "question", "code")
	require.NoError(t, err)

	assert.Equal(t, "base answer", result.Text)
	assert.Zero(t, result.EssencesIntegrated)
	assert.False(t, result.CacheHit)
}

func TestHandleMetricsDrivenRouting(t *testing.T) {
	flaky := mock.New("flaky", mock.Response{Text: "flaky answer", InputTokens: 1, OutputTokens: 1})
	solid := mock.New("solid", mock.Response{Text: "solid answer", InputTokens: 1, OutputTokens: 1})

	store := stats.NewMemoryStore()
	ctx := context.Background()

	// Seed history: flaky fails, solid succeeds.
	for i := 0; i < 10; i++ {
		require.NoError(t, store.Record(ctx, "flaky", "code", &types.ProviderCallResult{
			Success: false,
			Latency: 100 * time.Millisecond,
		}))
		require.NoError(t, store.Record(ctx, "solid", "code", &types.ProviderCallResult{
			Success: true,
			Latency: 100 * time.Millisecond,
		}))
	}

	client, err := New(
		WithProviderInstance(mockInfo("flaky", 1), flaky),
		WithProviderInstance(mockInfo("solid", 2), solid),
		WithStatsStore(store),
	)
	require.NoError(t, err)
	defer client.Close()

	result, err := client.Handle(ctx, "question", "code")
	require.NoError(t, err)

	// Metrics put solid at the head of the chain despite flaky's better
	// priority rank.
	assert.Equal(t, "solid answer", result.Text)
	assert.Equal(t, int64(0), flaky.Calls())
	assert.Equal(t, int64(1), solid.Calls())
}

func TestHandleStaticRuleOverridesMetrics(t *testing.T) {
	cheap := mock.New("cheap", mock.Response{Text: "cheap answer", InputTokens: 1, OutputTokens: 1})
	pinned := mock.New("pinned", mock.Response{Text: "pinned answer", InputTokens: 1, OutputTokens: 1})

	store := stats.NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, store.Record(ctx, "cheap", "code", &types.ProviderCallResult{
			Success: true,
			Latency: 10 * time.Millisecond,
		}))
	}

	client, err := New(
		WithProviderInstance(mockInfo("cheap", 1), cheap),
		WithProviderInstance(mockInfo("pinned", 2), pinned),
		WithStatsStore(store),
		WithRoutingRule("code", RoutingRule{Chain: []string{"pinned"}}),
	)
	require.NoError(t, err)
	defer client.Close()

	result, err := client.Handle(ctx, "question", "code")
	require.NoError(t, err)

	assert.Equal(t, "pinned answer", result.Text)
	assert.Equal(t, int64(0), cheap.Calls())
}

func TestHandleNoCapableProviders(t *testing.T) {
	client, err := New(
		WithProviderInstance(mockInfo("a", 1, "general"), mock.New("a", mock.Response{Text: "x"})),
	)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Handle(context.Background(), "question", "vision")
	require.Error(t, err)
	assert.ErrorContains(t, err, "no providers with capability")
}

func TestHandleEmptyText(t *testing.T) {
	client, err := New()
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Handle(context.Background(), "", "code")
	require.Error(t, err)
}

func TestHandleDefaultsRequestType(t *testing.T) {
	p := mock.New("a", mock.Response{Text: "answer", InputTokens: 1, OutputTokens: 1})

	client, err := New(
		WithProviderInstance(mockInfo("a", 1, "general"), p),
	)
	require.NoError(t, err)
	defer client.Close()

	result, err := client.Handle(context.Background(), "question", "")
	require.NoError(t, err)
	assert.Equal(t, "answer", result.Text)
}

func TestSetRulesHotSwap(t *testing.T) {
	a := mock.New("a", mock.Response{Text: "from a", InputTokens: 1, OutputTokens: 1})
	b := mock.New("b", mock.Response{Text: "from b", InputTokens: 1, OutputTokens: 1})

	client, err := New(
		WithProviderInstance(mockInfo("a", 1), a),
		WithProviderInstance(mockInfo("b", 2), b),
		WithRoutingRule("code", RoutingRule{Chain: []string{"a"}}),
	)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()

	result, err := client.Handle(ctx, "question", "code")
	require.NoError(t, err)
	assert.Equal(t, "from a", result.Text)

	client.SetRules(map[string]RoutingRule{
		"code": {Chain: []string{"b"}},
	})

	result, err = client.Handle(ctx, "question", "code")
	require.NoError(t, err)
	assert.Equal(t, "from b", result.Text)
}

func TestNewWithProviderConfig(t *testing.T) {
	client, err := New(
		WithProvider(ProviderConfig{
			Name:         "remote",
			Type:         "httpjson",
			Endpoint:     "https://example.com/v1",
			Capabilities: []string{"code"},
		}),
	)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 1, client.Registry().Len())
}

func TestNewUnknownProviderType(t *testing.T) {
	_, err := New(
		WithProvider(ProviderConfig{Name: "x", Type: "carrier-pigeon"}),
	)
	require.Error(t, err)
}
