// Package fanout implements concurrent enrichment: a request is sent to
// several providers at once and a structured essence is extracted from each
// successful response. One provider's failure never fails the batch.
package fanout

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/queryplex/queryplex/fallback"
	"github.com/queryplex/queryplex/pkg/types"
)

// DefaultBatchTimeout bounds the whole fan-out batch.
const DefaultBatchTimeout = 45 * time.Second

// Extractor fans a request out to K providers concurrently and extracts
// essences from the successful responses.
type Extractor struct {
	executor     *fallback.Executor
	logger       *slog.Logger
	batchTimeout time.Duration
}

// Config holds Extractor construction parameters.
type Config struct {
	Executor     *fallback.Executor
	Logger       *slog.Logger
	BatchTimeout time.Duration
}

// NewExtractor creates a fan-out essence extractor. Provider invocation,
// outcome recording, and pricing reuse the fallback executor's call path.
func NewExtractor(cfg Config) *Extractor {
	e := &Extractor{
		executor:     cfg.Executor,
		logger:       cfg.Logger,
		batchTimeout: cfg.BatchTimeout,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.batchTimeout <= 0 {
		e.batchTimeout = DefaultBatchTimeout
	}
	return e
}

// batchOutcome carries one provider's contribution out of the batch.
type batchOutcome struct {
	essence types.Essence
	cost    float64
	ok      bool
}

// Extract invokes all providers concurrently under a single batch deadline.
// Failed calls are recorded and dropped; stragglers past the deadline are
// abandoned. Zero successes yields an empty essence list, not an error.
// Returned essences are sorted by provider name so downstream synthesis is
// deterministic regardless of arrival order.
func (e *Extractor) Extract(ctx context.Context, req types.Request, providerNames []string) ([]types.Essence, float64, error) {
	if len(providerNames) == 0 {
		return nil, 0, nil
	}

	batchCtx, cancel := context.WithTimeout(ctx, e.batchTimeout)
	defer cancel()

	outcomes := make([]batchOutcome, len(providerNames))

	var wg sync.WaitGroup
	for i, name := range providerNames {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()

			result, err := e.executor.CallProvider(batchCtx, req, name)
			if err != nil {
				e.logger.Debug("fan-out call dropped",
					"provider", name,
					"request_type", req.Type,
					"error", err,
				)
				return
			}

			outcomes[i] = batchOutcome{
				essence: extractEssence(name, result.Text, req.Type),
				cost:    result.Cost,
				ok:      true,
			}
		}(i, name)
	}
	wg.Wait()

	var essences []types.Essence
	var totalCost float64
	for _, o := range outcomes {
		if o.ok {
			essences = append(essences, o.essence)
			totalCost += o.cost
		}
	}

	sort.Slice(essences, func(i, j int) bool {
		return essences[i].Provider < essences[j].Provider
	})

	return essences, totalCost, nil
}
