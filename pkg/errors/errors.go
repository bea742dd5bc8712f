// Package errors defines unified error types for gateway operations.
// All provider-specific failures are mapped to these standard error types.
package errors

import (
	"fmt"
	"strings"
)

// GatewayError represents a standardized per-call failure from a provider.
// It carries everything needed for error handling, logging, and metering.
type GatewayError struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Provider  string `json:"provider"`
	Operation string `json:"operation,omitempty"`
	Retryable bool   `json:"-"`
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("[%s] %s (provider=%s)", e.Type, e.Message, e.Provider)
}

// Per-call failure kinds.
const (
	TypeTransport       = "transport_error"
	TypeTimeout         = "timeout_error"
	TypeRateLimited     = "rate_limit_error"
	TypeInvalidResponse = "invalid_response_error"
)

// NewTransportError creates a transport-level failure (network, 5xx).
func NewTransportError(provider, message string) *GatewayError {
	return &GatewayError{
		Type:      TypeTransport,
		Message:   message,
		Provider:  provider,
		Retryable: true,
	}
}

// NewTimeoutError creates a per-call timeout failure.
func NewTimeoutError(provider, message string) *GatewayError {
	return &GatewayError{
		Type:      TypeTimeout,
		Message:   message,
		Provider:  provider,
		Retryable: true,
	}
}

// NewRateLimitedError creates a rate-limit failure (429).
func NewRateLimitedError(provider, message string) *GatewayError {
	return &GatewayError{
		Type:      TypeRateLimited,
		Message:   message,
		Provider:  provider,
		Retryable: true,
	}
}

// NewInvalidResponseError creates a failure for a malformed provider response.
func NewInvalidResponseError(provider, message string) *GatewayError {
	return &GatewayError{
		Type:      TypeInvalidResponse,
		Message:   message,
		Provider:  provider,
		Retryable: false,
	}
}

// UnknownProviderError indicates routing or configuration referenced a
// provider identifier not present in the registry. Fatal to the request.
type UnknownProviderError struct {
	Provider string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider: %s", e.Provider)
}

// InvalidTokenCountError indicates a malformed token count reached cost
// accounting. Fatal to the single call only.
type InvalidTokenCountError struct {
	InputTokens  int
	OutputTokens int
}

func (e *InvalidTokenCountError) Error() string {
	return fmt.Sprintf("invalid token counts: input=%d output=%d", e.InputTokens, e.OutputTokens)
}

// ProviderError pairs a provider identifier with the error it produced.
type ProviderError struct {
	Provider string
	Err      error
}

func (e ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e ProviderError) Unwrap() error { return e.Err }

// AllProvidersExhaustedError is the terminal failure for a request: every
// provider in the fallback chain failed. It carries the ordered per-provider
// errors for diagnostics.
type AllProvidersExhaustedError struct {
	Errors []ProviderError
}

func (e *AllProvidersExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, pe := range e.Errors {
		parts = append(parts, pe.Error())
	}
	return fmt.Sprintf("all providers exhausted: [%s]", strings.Join(parts, "; "))
}

// CacheCorruptionError indicates a cache entry could not be decoded.
// Callers must treat it as a miss, never as a fatal error.
type CacheCorruptionError struct {
	Key string
	Err error
}

func (e *CacheCorruptionError) Error() string {
	return fmt.Sprintf("corrupted cache entry %s: %v", e.Key, e.Err)
}

func (e *CacheCorruptionError) Unwrap() error { return e.Err }
