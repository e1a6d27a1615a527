package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/demusis/rev-textos/internal/models"
)

// chatTransport speaks the OpenAI-style chat-completions protocol shared by
// Groq and OpenRouter. Providers differ only in base URL, headers and naming.
type chatTransport struct {
	provider  string
	baseURL   string
	apiKey    string
	modelName string
	headers   map[string]string
	client    *http.Client
	fallback  []string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Call implements Transport.
func (t *chatTransport) Call(ctx context.Context, prompt string, temperature float64, maxTokens int, stop []string) (*CallResult, error) {
	body, err := json.Marshal(chatRequest{
		Model:       t.modelName,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stop:        stop,
	})
	if err != nil {
		return nil, &Error{Kind: KindAPI, Provider: t.provider, Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindAPI, Provider: t.provider, Message: "build request", Err: err}
	}
	t.setHeaders(req)

	resp, err := t.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Kind: KindTimeout, Provider: t.provider, Message: "request timed out", Err: err}
		}
		return nil, &Error{Kind: KindAPI, Provider: t.provider, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindAPI, Provider: t.provider, Message: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, t.classifyStatus(resp.StatusCode, payload)
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, &Error{Kind: KindAPI, Provider: t.provider, Message: "decode response", Err: err}
	}
	if parsed.Error != nil {
		return nil, &Error{Kind: KindAPI, Provider: t.provider, Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return nil, &Error{Kind: KindAPI, Provider: t.provider, Message: "empty response from model"}
	}

	return &CallResult{
		Text:      strings.TrimSpace(parsed.Choices[0].Message.Content),
		TokensIn:  parsed.Usage.PromptTokens,
		TokensOut: parsed.Usage.CompletionTokens,
	}, nil
}

func (t *chatTransport) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
}

func (t *chatTransport) classifyStatus(status int, payload []byte) *Error {
	detail := strings.TrimSpace(string(payload))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	switch {
	case status == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimit, Provider: t.provider,
			Message: fmt.Sprintf("rate limit exceeded (HTTP %d): %s", status, detail)}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindAuth, Provider: t.provider,
			Message: fmt.Sprintf("authentication failed (HTTP %d): %s", status, detail)}
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return &Error{Kind: KindTimeout, Provider: t.provider,
			Message: fmt.Sprintf("provider timeout (HTTP %d)", status)}
	default:
		return &Error{Kind: KindAPI, Provider: t.provider,
			Message: fmt.Sprintf("HTTP %d: %s", status, detail)}
	}
}

// ModelInfo implements Transport.
func (t *chatTransport) ModelInfo() models.ModelInfo {
	return models.ModelInfo{Provider: t.provider, Model: t.modelName}
}

// ListModels queries GET /models; the curated fallback list is returned when
// the call fails.
func (t *chatTransport) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/models", nil)
	if err != nil {
		return t.fallback, nil
	}
	t.setHeaders(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return t.fallback, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return t.fallback, nil
	}

	var listing struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil || len(listing.Data) == 0 {
		return t.fallback, nil
	}

	names := make([]string, 0, len(listing.Data))
	for _, m := range listing.Data {
		names = append(names, m.ID)
	}
	sort.Strings(names)
	return names, nil
}
