package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/demusis/rev-textos/internal/models"
)

const (
	rateLimitWindow  = 60 * time.Second
	defaultMaxTokens = 8192
	mockResponse     = "[mock] Resposta simulada para desenvolvimento. Nenhuma chamada externa foi realizada."
)

// Options configures an Engine.
type Options struct {
	MaxRetries        int
	RequestsPerMinute int
	Timeout           time.Duration
	Mock              bool
	Logger            *slog.Logger
}

// Engine implements Gateway over any Transport. It owns the response cache,
// usage metrics and the sliding rate-limit window; all three are guarded by
// one mutex so agents may share an engine across goroutines.
type Engine struct {
	transport Transport
	info      models.ModelInfo

	maxRetries int
	rpm        int
	timeout    time.Duration
	mock       bool
	logger     *slog.Logger

	mu         sync.Mutex
	cache      map[string]string
	metrics    Metrics
	timestamps []time.Time

	// Injectable for tests; never sleep for real under go test.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine wraps a transport with the shared resilience behavior.
func NewEngine(transport Transport, info models.ModelInfo, opts Options) *Engine {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 60
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		transport:  transport,
		info:       info,
		maxRetries: opts.MaxRetries,
		rpm:        opts.RequestsPerMinute,
		timeout:    opts.Timeout,
		mock:       opts.Mock,
		logger:     opts.Logger,
		cache:      make(map[string]string),
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Generate runs one call through cache, rate limit and retry. A cache hit
// returns immediately and leaves the metrics untouched.
func (e *Engine) Generate(ctx context.Context, req Request) (string, error) {
	log := e.logger.With("origin", req.Origin, "model", e.info.Model)

	if e.mock {
		e.mu.Lock()
		e.metrics.Requests++
		e.mu.Unlock()
		log.Info("mock mode, returning synthetic response")
		return mockResponse, nil
	}

	key := e.cacheKey(req)
	e.mu.Lock()
	if cached, ok := e.cache[key]; ok {
		e.mu.Unlock()
		log.Debug("response served from cache")
		return cached, nil
	}
	e.mu.Unlock()

	if err := e.waitRateLimit(ctx); err != nil {
		return "", err
	}

	prompt := req.Prompt
	if req.Context != "" {
		prompt = fmt.Sprintf("Contexto:\n%s\n\nInstrução:\n%s", req.Context, req.Prompt)
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		log.Info("calling provider",
			"attempt", attempt, "maxRetries", e.maxRetries,
			"temperature", req.Temperature, "maxTokens", maxTokens,
			"promptChars", len(prompt))

		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		start := e.now()
		result, err := e.transport.Call(callCtx, prompt, req.Temperature, maxTokens, req.StopSequences)
		elapsed := e.now().Sub(start)
		cancel()

		if err == nil {
			e.mu.Lock()
			e.metrics.Requests++
			e.metrics.TokensIn += result.TokensIn
			e.metrics.TokensOut += result.TokensOut
			e.metrics.TotalSeconds += elapsed.Seconds()
			e.timestamps = append(e.timestamps, e.now())
			e.cache[key] = result.Text
			e.mu.Unlock()
			log.Info("response received", "elapsed", elapsed.Round(time.Millisecond), "chars", len(result.Text))
			return result.Text, nil
		}

		e.mu.Lock()
		e.metrics.Errors++
		e.mu.Unlock()
		lastErr = err

		var gerr *Error
		if errors.As(err, &gerr) && !gerr.Retryable() {
			log.Error("non-retryable provider failure", "error", err)
			return "", err
		}
		if attempt < e.maxRetries {
			wait := backoff(attempt)
			log.Warn("provider call failed, retrying", "error", err, "wait", wait)
			if serr := e.sleep(ctx, wait); serr != nil {
				return "", serr
			}
		}
	}

	var gerr *Error
	if errors.As(lastErr, &gerr) {
		return "", lastErr
	}
	return "", &Error{Kind: KindAPI, Provider: e.info.Provider,
		Message: fmt.Sprintf("failed after %d attempts", e.maxRetries), Err: lastErr}
}

// backoff returns the exponential delay for the given attempt number.
func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// waitRateLimit prunes the sliding window and sleeps out the remainder when
// the per-minute budget is exhausted. It waits rather than rejecting.
func (e *Engine) waitRateLimit(ctx context.Context) error {
	e.mu.Lock()
	now := e.now()
	kept := e.timestamps[:0]
	for _, ts := range e.timestamps {
		if now.Sub(ts) < rateLimitWindow {
			kept = append(kept, ts)
		}
	}
	e.timestamps = kept

	var wait time.Duration
	if len(e.timestamps) >= e.rpm {
		wait = rateLimitWindow - now.Sub(e.timestamps[0])
	}
	e.mu.Unlock()

	if wait > 0 {
		e.logger.Info("rate limit reached, waiting", "wait", wait.Round(time.Millisecond))
		return e.sleep(ctx, wait)
	}
	return nil
}

func (e *Engine) cacheKey(req Request) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%g|%s", req.Prompt, req.Context, req.Temperature, e.info.Model))
	return hex.EncodeToString(h[:])
}

// Metrics returns a snapshot of the accumulated counters.
func (e *Engine) Metrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics
}

// ClearCache drops every cached response.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	e.cache = make(map[string]string)
	e.mu.Unlock()
	e.logger.Info("response cache cleared")
}

// Invalidate drops the cached response for exactly this request, if any.
func (e *Engine) Invalidate(req Request) {
	key := e.cacheKey(req)
	e.mu.Lock()
	delete(e.cache, key)
	e.mu.Unlock()
}

// ResetMetrics zeroes all counters without touching the cache.
func (e *Engine) ResetMetrics() {
	e.mu.Lock()
	e.metrics = Metrics{}
	e.mu.Unlock()
	e.logger.Info("metrics reset")
}

// ModelInfo identifies the provider and model behind this engine.
func (e *Engine) ModelInfo() models.ModelInfo { return e.info }

// ListModels asks the provider for its available models. In mock mode a
// synthetic list is returned.
func (e *Engine) ListModels(ctx context.Context) ([]string, error) {
	if e.mock || e.transport == nil {
		return []string{e.info.Model + " (mock)"}, nil
	}
	return e.transport.ListModels(ctx)
}
