// Package mock provides a scriptable in-memory provider for tests.
package mock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/queryplex/queryplex/pkg/provider"
)

// Response scripts one Invoke outcome.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Err          error
	Delay        time.Duration
}

// Provider is a scriptable provider.Provider implementation. Responses are
// served in order; the last response repeats once the script is exhausted.
type Provider struct {
	name      string
	responses []Response
	calls     atomic.Int64
}

// New creates a mock provider serving the given responses.
func New(name string, responses ...Response) *Provider {
	return &Provider{name: name, responses: responses}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Calls returns the number of Invoke calls observed.
func (p *Provider) Calls() int64 {
	return p.calls.Load()
}

// Invoke serves the next scripted response, honoring ctx cancellation during
// any scripted delay.
func (p *Provider) Invoke(ctx context.Context, req *provider.GenerationRequest) (*provider.GenerationResult, error) {
	n := p.calls.Add(1)

	idx := int(n) - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	if idx < 0 {
		return &provider.GenerationResult{Text: "ok"}, nil
	}
	r := p.responses[idx]

	if r.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.Delay):
		}
	}

	if r.Err != nil {
		return nil, r.Err
	}
	return &provider.GenerationResult{
		Text:         r.Text,
		InputTokens:  r.InputTokens,
		OutputTokens: r.OutputTokens,
	}, nil
}
