package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func chatServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *chatTransport) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tr := &chatTransport{
		provider:  "Groq",
		baseURL:   srv.URL,
		apiKey:    "chave",
		modelName: "llama-3.3-70b-versatile",
		client:    srv.Client(),
		fallback:  groqFallbackModels,
	}
	return srv, tr
}

func TestChatCall_decodesResponseAndTokens(t *testing.T) {
	var gotAuth, gotModel string
	_, tr := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotModel = req.Model
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "  texto revisado  "}}},
			"usage":   map[string]int{"prompt_tokens": 12, "completion_tokens": 34},
		})
	})

	result, err := tr.Call(context.Background(), "revisar", 0.3, 256, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Text != "texto revisado" {
		t.Errorf("text = %q, want trimmed content", result.Text)
	}
	if result.TokensIn != 12 || result.TokensOut != 34 {
		t.Errorf("tokens = %d/%d, want 12/34", result.TokensIn, result.TokensOut)
	}
	if gotAuth != "Bearer chave" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotModel != "llama-3.3-70b-versatile" {
		t.Errorf("model = %q", gotModel)
	}
}

func TestChatCall_statusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusTooManyRequests, KindRateLimit},
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusGatewayTimeout, KindTimeout},
		{http.StatusInternalServerError, KindAPI},
	}
	for _, tt := range tests {
		_, tr := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		_, err := tr.Call(context.Background(), "p", 0.3, 0, nil)
		var gerr *Error
		if !errors.As(err, &gerr) {
			t.Fatalf("status %d: error = %v, want *Error", tt.status, err)
		}
		if gerr.Kind != tt.want {
			t.Errorf("status %d: kind = %s, want %s", tt.status, gerr.Kind, tt.want)
		}
	}
}

func TestChatCall_emptyChoicesIsAPIError(t *testing.T) {
	_, tr := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})
	_, err := tr.Call(context.Background(), "p", 0.3, 0, nil)
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != KindAPI {
		t.Fatalf("error = %v, want API error for empty choices", err)
	}
}

func TestChatListModels_sortsIDs(t *testing.T) {
	_, tr := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"id": "zeta"}, {"id": "alfa"}},
		})
	})
	got, err := tr.ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"alfa", "zeta"}) {
		t.Errorf("models = %v", got)
	}
}

func TestChatListModels_fallsBackOnFailure(t *testing.T) {
	_, tr := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	got, err := tr.ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, groqFallbackModels) {
		t.Errorf("models = %v, want curated fallback list", got)
	}
}
