// Package gateway is the adapter layer to external text-generation
// providers. A single Engine owns retry, rate limiting, caching and metrics;
// concrete providers implement only the Transport call.
package gateway

import (
	"context"
	"fmt"

	"github.com/demusis/rev-textos/internal/models"
)

// Request describes one generation call.
type Request struct {
	Prompt        string
	Context       string
	Temperature   float64
	MaxTokens     int
	StopSequences []string
	// Origin tags the caller (agent name) for logging.
	Origin string
}

// CallResult is what a transport returns on success.
type CallResult struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// Transport executes a single provider request. Implementations map provider
// failures onto *Error and do not retry.
type Transport interface {
	Call(ctx context.Context, prompt string, temperature float64, maxTokens int, stop []string) (*CallResult, error)
	ModelInfo() models.ModelInfo
	ListModels(ctx context.Context) ([]string, error)
}

// Metrics accumulates gateway usage. Counters only move on completed
// non-cache-hit attempts.
type Metrics struct {
	Requests     int     `json:"requests"`
	TokensIn     int     `json:"tokensIn"`
	TokensOut    int     `json:"tokensOut"`
	Errors       int     `json:"errors"`
	TotalSeconds float64 `json:"totalSeconds"`
}

// Gateway is the provider-agnostic generation contract used by the agents.
type Gateway interface {
	Generate(ctx context.Context, req Request) (string, error)
	Metrics() Metrics
	ClearCache()
	// Invalidate drops the cached response for exactly this request.
	Invalidate(req Request)
	ResetMetrics()
	ModelInfo() models.ModelInfo
	ListModels(ctx context.Context) ([]string, error)
}

// ErrorKind classifies gateway failures for the retry policy.
type ErrorKind int

const (
	// KindAPI is a generic provider failure, retried with backoff.
	KindAPI ErrorKind = iota
	// KindTimeout is a transport timeout, retried with backoff.
	KindTimeout
	// KindRateLimit is a provider-side quota rejection, retried with backoff.
	KindRateLimit
	// KindAuth is an authentication failure, never retried.
	KindAuth
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimit:
		return "rate_limit"
	case KindAuth:
		return "auth"
	default:
		return "api"
	}
}

// Error is a typed gateway failure.
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Provider, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure class participates in backoff.
func (e *Error) Retryable() bool { return e.Kind != KindAuth }
