// Package pricing implements cost accounting for provider calls.
// Costs are computed from per-1000-token rates declared at registration,
// with an optional wildcard model pricing table as a fallback.
package pricing

import (
	"strings"

	qperrors "github.com/queryplex/queryplex/pkg/errors"
	"github.com/queryplex/queryplex/pkg/provider"
)

// ModelPricing defines per-1K-token rates for a model pattern.
// Patterns ending in "*" match by prefix.
type ModelPricing struct {
	Model           string
	InputCostPer1K  float64
	OutputCostPer1K float64
}

// DefaultPricing holds fallback rates for common models, in USD per 1000
// tokens.
var DefaultPricing = []ModelPricing{
	{Model: "gpt-4o", InputCostPer1K: 0.005, OutputCostPer1K: 0.015},
	{Model: "gpt-4o-mini", InputCostPer1K: 0.00015, OutputCostPer1K: 0.0006},
	{Model: "gpt-4*", InputCostPer1K: 0.03, OutputCostPer1K: 0.06},
	{Model: "claude-3-5-sonnet*", InputCostPer1K: 0.003, OutputCostPer1K: 0.015},
	{Model: "claude-3-haiku*", InputCostPer1K: 0.00025, OutputCostPer1K: 0.00125},
	{Model: "gemini-1.5-flash*", InputCostPer1K: 0.000075, OutputCostPer1K: 0.0003},
	{Model: "deepseek-chat", InputCostPer1K: 0.00014, OutputCostPer1K: 0.00028},
	{Model: "llama-3*", InputCostPer1K: 0.0002, OutputCostPer1K: 0.0002},
	{Model: "mistral-small*", InputCostPer1K: 0.001, OutputCostPer1K: 0.003},
}

// Calculator computes the monetary cost of provider calls. It is stateless
// apart from its pricing table and safe for concurrent use after construction.
type Calculator struct {
	pricing map[string]ModelPricing
}

// NewCalculator creates a pricing calculator.
// If pricing is nil, DefaultPricing is used.
func NewCalculator(pricing []ModelPricing) *Calculator {
	if pricing == nil {
		pricing = DefaultPricing
	}

	c := &Calculator{pricing: make(map[string]ModelPricing, len(pricing))}
	for _, p := range pricing {
		c.pricing[p.Model] = p
	}
	return c
}

// Cost returns the cost of a call against the given provider:
// inputTokens/1000 * input rate + outputTokens/1000 * output rate.
// Negative token counts fail with InvalidTokenCountError.
func (c *Calculator) Cost(info provider.Info, inputTokens, outputTokens int) (float64, error) {
	if inputTokens < 0 || outputTokens < 0 {
		return 0, &qperrors.InvalidTokenCountError{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		}
	}

	inRate, outRate := info.InputCostPer1K, info.OutputCostPer1K
	if inRate == 0 && outRate == 0 {
		if p, ok := c.findPricing(info.DefaultModel); ok {
			inRate, outRate = p.InputCostPer1K, p.OutputCostPer1K
		}
	}

	return float64(inputTokens)/1000.0*inRate + float64(outputTokens)/1000.0*outRate, nil
}

// findPricing resolves rates for a model, trying exact match first and then
// the longest matching wildcard prefix.
func (c *Calculator) findPricing(model string) (ModelPricing, bool) {
	modelLower := strings.ToLower(model)

	for pattern, p := range c.pricing {
		if strings.EqualFold(pattern, model) {
			return p, true
		}
	}

	var best *ModelPricing
	var bestLen int
	for pattern, p := range c.pricing {
		if !strings.HasSuffix(pattern, "*") {
			continue
		}
		prefix := strings.ToLower(strings.TrimSuffix(pattern, "*"))
		if strings.HasPrefix(modelLower, prefix) && len(prefix) > bestLen {
			pCopy := p
			best = &pCopy
			bestLen = len(prefix)
		}
	}
	if best != nil {
		return *best, true
	}
	return ModelPricing{}, false
}

// AddPricing adds or updates rates for a model pattern.
// Not safe for concurrent use with Cost; intended for setup time.
func (c *Calculator) AddPricing(p ModelPricing) {
	c.pricing[p.Model] = p
}
