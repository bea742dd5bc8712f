// Package httpjson provides a generic HTTP+JSON provider adapter.
// Remote generation services are addressed over a request/response protocol;
// this adapter covers every provider speaking the plain JSON shape
// {text, input_tokens, output_tokens}.
package httpjson

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	qperrors "github.com/queryplex/queryplex/pkg/errors"
	"github.com/queryplex/queryplex/pkg/provider"
)

// Provider implements provider.Provider over HTTP+JSON.
type Provider struct {
	name       string
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	headers    map[string]string
}

// Option configures the Provider.
type Option func(*Provider)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// WithRateLimit enables client-side rate limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(p *Provider) {
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithHeader adds an extra request header.
func WithHeader(key, value string) Option {
	return func(p *Provider) {
		p.headers[key] = value
	}
}

// New creates an HTTP+JSON provider adapter.
func New(name, endpoint, apiKey string, opts ...Option) *Provider {
	p := &Provider{
		name:     name,
		endpoint: endpoint,
		apiKey:   apiKey,
		headers:  make(map[string]string),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig creates a provider from a Config struct.
func NewFromConfig(cfg provider.Config) (provider.Provider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("provider %s: endpoint is required", cfg.Name)
	}

	var opts []Option
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, WithRateLimit(cfg.RatePerSecond, burst))
	}
	return New(cfg.Name, cfg.Endpoint, cfg.APIKey, opts...), nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Invoke sends a generation request and parses the response.
// All failures are mapped to the standard per-call error kinds.
func (p *Provider) Invoke(ctx context.Context, req *provider.GenerationRequest) (*provider.GenerationResult, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, qperrors.NewTimeoutError(p.name, "rate limiter wait: "+err.Error())
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(p.endpoint, "/") + "/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, qperrors.NewTimeoutError(p.name, err.Error())
		}
		return nil, qperrors.NewTransportError(p.name, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, p.mapError(resp.StatusCode, respBody)
	}

	var result provider.GenerationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, qperrors.NewInvalidResponseError(p.name, "decode response: "+err.Error())
	}
	if result.Text == "" {
		return nil, qperrors.NewInvalidResponseError(p.name, "empty response text")
	}

	return &result, nil
}

// mapError converts an HTTP error response to the standard taxonomy.
func (p *Provider) mapError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	message := fmt.Sprintf("status %d", statusCode)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return qperrors.NewRateLimitedError(p.name, message)
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return qperrors.NewTimeoutError(p.name, message)
	case statusCode >= 500:
		return qperrors.NewTransportError(p.name, message)
	default:
		return qperrors.NewInvalidResponseError(p.name, message)
	}
}
