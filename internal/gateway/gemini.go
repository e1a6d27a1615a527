package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/demusis/rev-textos/internal/models"
)

// geminiFallbackModels is returned when the API cannot be queried.
var geminiFallbackModels = []string{
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-1.5-pro",
	"gemini-1.5-flash",
}

// GeminiTransport calls Gemini through Vertex AI.
type GeminiTransport struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGeminiTransport creates a transport bound to one Vertex AI model.
func NewGeminiTransport(ctx context.Context, projectID, region, modelName string) (*GeminiTransport, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("gemini transport: projectID and region cannot be empty")
	}
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &GeminiTransport{client: client, model: model, modelName: modelName}, nil
}

// Call executes one generation request.
func (t *GeminiTransport) Call(ctx context.Context, prompt string, temperature float64, maxTokens int, stop []string) (*CallResult, error) {
	// Shallow copy so per-request generation config does not race across calls.
	model := *t.model
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr(float32(temperature)),
		MaxOutputTokens: genai.Ptr(int32(maxTokens)),
		StopSequences:   stop,
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, classifyGeminiErr(err)
	}

	text := extractText(resp)
	if text == "" {
		return nil, &Error{Kind: KindAPI, Provider: "gemini", Message: "empty response from model"}
	}

	result := &CallResult{Text: text}
	if resp.UsageMetadata != nil {
		result.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		result.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

func classifyGeminiErr(err error) *Error {
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "deadline") || strings.Contains(msg, "timeout"):
		return &Error{Kind: KindTimeout, Provider: "gemini", Message: "request timed out", Err: err}
	case strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "resource exhausted"):
		return &Error{Kind: KindRateLimit, Provider: "gemini", Message: "provider rate limit exceeded", Err: err}
	case strings.Contains(msg, "unauthenticated") || strings.Contains(msg, "permission denied") || strings.Contains(msg, "api key"):
		return &Error{Kind: KindAuth, Provider: "gemini", Message: "authentication failed", Err: err}
	default:
		return &Error{Kind: KindAPI, Provider: "gemini", Message: "generate content failed", Err: err}
	}
}

// ModelInfo implements Transport.
func (t *GeminiTransport) ModelInfo() models.ModelInfo {
	return models.ModelInfo{Provider: "Google Gemini", Model: t.modelName}
}

// ListModels returns the known Gemini models. Vertex AI has no lightweight
// model-listing call, so the curated list stands in.
func (t *GeminiTransport) ListModels(ctx context.Context) ([]string, error) {
	return geminiFallbackModels, nil
}

// Close releases the underlying client.
func (t *GeminiTransport) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}
