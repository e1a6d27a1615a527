package gateway

import (
	"net/http"
	"time"
)

var groqFallbackModels = []string{
	"llama-3.3-70b-versatile",
	"llama-3.1-8b-instant",
	"llama3-70b-8192",
	"mixtral-8x7b-32768",
}

// NewGroqTransport creates a transport for the Groq chat-completions API.
func NewGroqTransport(apiKey, modelName string, timeout time.Duration) Transport {
	if modelName == "" {
		modelName = groqFallbackModels[0]
	}
	return &chatTransport{
		provider:  "Groq",
		baseURL:   "https://api.groq.com/openai/v1",
		apiKey:    apiKey,
		modelName: modelName,
		client:    &http.Client{Timeout: timeout},
		fallback:  groqFallbackModels,
	}
}
