// Package fallback implements sequential fallback execution over an ordered
// provider chain. Fallback exists to bound cost: cheap providers are tried
// before expensive ones, so the chain is never raced in parallel.
package fallback

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/queryplex/queryplex/internal/metrics"
	qperrors "github.com/queryplex/queryplex/pkg/errors"
	"github.com/queryplex/queryplex/pkg/pricing"
	"github.com/queryplex/queryplex/pkg/provider"
	"github.com/queryplex/queryplex/pkg/stats"
	"github.com/queryplex/queryplex/pkg/types"
)

// DefaultCallTimeout bounds each individual provider call.
const DefaultCallTimeout = 30 * time.Second

// OperationSelector maps a request type to the provider-side operation name.
type OperationSelector func(requestType string) string

// DefaultOperation is used when no selector is configured.
func DefaultOperation(string) string { return "generate" }

// Executor invokes providers in chain order until one succeeds, recording
// every outcome in the stats store.
type Executor struct {
	registry    *provider.Registry
	stats       stats.Store
	pricing     *pricing.Calculator
	logger      *slog.Logger
	callTimeout time.Duration
	selectOp    OperationSelector

	maxTokens   int
	temperature float64
}

// Config holds Executor construction parameters.
type Config struct {
	Registry    *provider.Registry
	Stats       stats.Store
	Pricing     *pricing.Calculator
	Logger      *slog.Logger
	CallTimeout time.Duration
	SelectOp    OperationSelector
	MaxTokens   int
	Temperature float64
}

// NewExecutor creates a fallback executor.
func NewExecutor(cfg Config) *Executor {
	e := &Executor{
		registry:    cfg.Registry,
		stats:       cfg.Stats,
		pricing:     cfg.Pricing,
		logger:      cfg.Logger,
		callTimeout: cfg.CallTimeout,
		selectOp:    cfg.SelectOp,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.callTimeout <= 0 {
		e.callTimeout = DefaultCallTimeout
	}
	if e.selectOp == nil {
		e.selectOp = DefaultOperation
	}
	if e.pricing == nil {
		e.pricing = pricing.NewCalculator(nil)
	}
	if e.maxTokens <= 0 {
		e.maxTokens = 1024
	}
	return e
}

// Execute tries providers strictly in chain order. The first success wins
// and no further providers are tried. When the chain is exhausted it fails
// with AllProvidersExhaustedError carrying the ordered per-provider errors.
func (e *Executor) Execute(ctx context.Context, req types.Request, chain []string) (*types.ProviderCallResult, error) {
	var failures []qperrors.ProviderError

	for _, name := range chain {
		result, err := e.CallProvider(ctx, req, name)
		if err != nil {
			// Unknown providers are a configuration error, fatal to the request.
			var unknown *qperrors.UnknownProviderError
			if errors.As(err, &unknown) {
				return nil, err
			}

			e.logger.Warn("provider call failed, trying next in chain",
				"provider", name,
				"request_type", req.Type,
				"error", err,
			)
			failures = append(failures, qperrors.ProviderError{Provider: name, Err: err})
			continue
		}

		return result, nil
	}

	return nil, &qperrors.AllProvidersExhaustedError{Errors: failures}
}

// CallProvider performs one provider invocation bounded by the per-call
// timeout, records the outcome, and returns the result.
func (e *Executor) CallProvider(ctx context.Context, req types.Request, name string) (*types.ProviderCallResult, error) {
	prov, info, err := e.registry.Get(name)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	start := time.Now()
	genResult, err := prov.Invoke(callCtx, &provider.GenerationRequest{
		Model:       info.DefaultModel,
		Prompt:      req.Text,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
		Operation:   e.selectOp(req.Type),
	})
	latency := time.Since(start)

	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			err = qperrors.NewTimeoutError(name, "call exceeded "+e.callTimeout.String())
		}
		result := &types.ProviderCallResult{
			Provider: name,
			Success:  false,
			Latency:  latency,
			Err:      err,
		}
		e.record(ctx, req.Type, result)
		return nil, err
	}

	cost, err := e.pricing.Cost(info, genResult.InputTokens, genResult.OutputTokens)
	if err != nil {
		// Malformed token counts fail this call only.
		result := &types.ProviderCallResult{
			Provider: name,
			Success:  false,
			Latency:  latency,
			Err:      err,
		}
		e.record(ctx, req.Type, result)
		return nil, err
	}

	result := &types.ProviderCallResult{
		Provider:     name,
		Success:      true,
		Text:         genResult.Text,
		InputTokens:  genResult.InputTokens,
		OutputTokens: genResult.OutputTokens,
		Latency:      latency,
		Cost:         cost,
	}
	e.record(ctx, req.Type, result)
	return result, nil
}

func (e *Executor) record(ctx context.Context, requestType string, result *types.ProviderCallResult) {
	if err := e.stats.Record(ctx, result.Provider, requestType, result); err != nil {
		e.logger.Warn("stats record failed", "provider", result.Provider, "error", err)
	}
	metrics.RecordCall(result.Provider, requestType, result.Success, result.Latency.Seconds(), result.Cost)
}
