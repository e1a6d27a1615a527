package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/demusis/rev-textos/internal/models"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider          string
	Model             string
	APIKey            string
	GCPProject        string
	GCPRegion         string
	MaxRetries        int
	RequestsPerMinute int
	Timeout           time.Duration
	Mock              bool
	Logger            *slog.Logger
}

// New builds a Gateway for the configured provider. An unknown provider falls
// back to Gemini; mock mode needs no credentials and no transport.
func New(ctx context.Context, s Settings) (Gateway, error) {
	provider := strings.ToLower(strings.TrimSpace(s.Provider))
	if provider == "" {
		provider = "gemini"
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts := Options{
		MaxRetries:        s.MaxRetries,
		RequestsPerMinute: s.RequestsPerMinute,
		Timeout:           s.Timeout,
		Mock:              s.Mock,
		Logger:            logger,
	}

	if s.Mock {
		info := models.ModelInfo{Provider: provider, Model: defaultModel(provider, s.Model)}
		logger.Info("gateway running in mock mode", "provider", provider)
		return NewEngine(nil, info, opts), nil
	}

	logger.Info("creating AI gateway", "provider", provider)

	var (
		transport Transport
		err       error
	)
	switch provider {
	case "groq":
		transport = NewGroqTransport(s.APIKey, s.Model, opts.Timeout)
	case "openrouter":
		transport = NewOpenRouterTransport(s.APIKey, s.Model, opts.Timeout)
	case "gemini":
		transport, err = NewGeminiTransport(ctx, s.GCPProject, s.GCPRegion, defaultModel("gemini", s.Model))
	default:
		logger.Warn("unknown provider, falling back to gemini", "provider", provider)
		transport, err = NewGeminiTransport(ctx, s.GCPProject, s.GCPRegion, defaultModel("gemini", s.Model))
	}
	if err != nil {
		return nil, fmt.Errorf("create %s transport: %w", provider, err)
	}

	return NewEngine(transport, transport.ModelInfo(), opts), nil
}

// FallbackModels returns the curated model list for a provider, used when the
// live listing cannot be reached.
func FallbackModels(provider string) []string {
	switch strings.ToLower(provider) {
	case "groq":
		return groqFallbackModels
	case "openrouter":
		return openRouterFallbackModels
	default:
		return geminiFallbackModels
	}
}

func defaultModel(provider, configured string) string {
	if configured != "" {
		return configured
	}
	switch provider {
	case "groq":
		return groqFallbackModels[0]
	case "openrouter":
		return openRouterFallbackModels[0]
	default:
		return "gemini-2.0-flash"
	}
}
