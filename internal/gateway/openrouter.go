package gateway

import (
	"net/http"
	"time"
)

var openRouterFallbackModels = []string{
	"google/gemini-2.5-flash-preview-05-20",
	"meta-llama/llama-3.3-70b-instruct:free",
	"mistralai/mistral-small-3.1-24b-instruct:free",
	"qwen/qwen3-235b-a22b:free",
}

// NewOpenRouterTransport creates a transport for the OpenRouter API.
func NewOpenRouterTransport(apiKey, modelName string, timeout time.Duration) Transport {
	if modelName == "" {
		modelName = openRouterFallbackModels[0]
	}
	return &chatTransport{
		provider:  "OpenRouter",
		baseURL:   "https://openrouter.ai/api/v1",
		apiKey:    apiKey,
		modelName: modelName,
		headers: map[string]string{
			"HTTP-Referer": "https://github.com/demusis/rev-textos",
			"X-Title":      "rev-textos",
		},
		client:   &http.Client{Timeout: timeout},
		fallback: openRouterFallbackModels,
	}
}
