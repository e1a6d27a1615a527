package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/demusis/rev-textos/internal/models"
)

// scriptedTransport returns canned results in order, repeating the last one.
type scriptedTransport struct {
	script []func() (*CallResult, error)
	calls  int
}

func (t *scriptedTransport) Call(ctx context.Context, prompt string, temperature float64, maxTokens int, stop []string) (*CallResult, error) {
	idx := t.calls
	if idx >= len(t.script) {
		idx = len(t.script) - 1
	}
	t.calls++
	return t.script[idx]()
}

func (t *scriptedTransport) ModelInfo() models.ModelInfo {
	return models.ModelInfo{Provider: "fake", Model: "fake-model"}
}

func (t *scriptedTransport) ListModels(ctx context.Context) ([]string, error) {
	return []string{"fake-model"}, nil
}

func ok(text string) func() (*CallResult, error) {
	return func() (*CallResult, error) {
		return &CallResult{Text: text, TokensIn: 10, TokensOut: 20}, nil
	}
}

func fail(kind ErrorKind) func() (*CallResult, error) {
	return func() (*CallResult, error) {
		return nil, &Error{Kind: kind, Provider: "fake", Message: "boom"}
	}
}

// testEngine builds an engine whose sleeps are recorded instead of executed.
func testEngine(t *scriptedTransport, opts Options) (*Engine, *[]time.Duration) {
	e := NewEngine(t, models.ModelInfo{Provider: "fake", Model: "fake-model"}, opts)
	var sleeps []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return base }
	return e, &sleeps
}

func TestGenerate_cacheHitSkipsTransportAndMetrics(t *testing.T) {
	tr := &scriptedTransport{script: []func() (*CallResult, error){ok("resposta")}}
	e, _ := testEngine(tr, Options{})

	req := Request{Prompt: "revisar", Temperature: 0.3, Origin: "teste"}
	first, err := e.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Errorf("cached response differs: %q vs %q", first, second)
	}
	if tr.calls != 1 {
		t.Errorf("transport called %d times, want 1", tr.calls)
	}
	if m := e.Metrics(); m.Requests != 1 {
		t.Errorf("requests = %d, want 1 (cache hit must not count)", m.Requests)
	}
}

func TestGenerate_distinctTemperatureMissesCache(t *testing.T) {
	tr := &scriptedTransport{script: []func() (*CallResult, error){ok("a")}}
	e, _ := testEngine(tr, Options{})

	_, _ = e.Generate(context.Background(), Request{Prompt: "p", Temperature: 0.3})
	_, _ = e.Generate(context.Background(), Request{Prompt: "p", Temperature: 0.5})

	if tr.calls != 2 {
		t.Errorf("transport called %d times, want 2", tr.calls)
	}
}

func TestGenerate_rateLimitWaitsOnce(t *testing.T) {
	tr := &scriptedTransport{script: []func() (*CallResult, error){ok("x")}}
	e, sleeps := testEngine(tr, Options{RequestsPerMinute: 2})

	for i, prompt := range []string{"um", "dois", "três"} {
		if _, err := e.Generate(context.Background(), Request{Prompt: prompt}); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
	}

	if len(*sleeps) != 1 {
		t.Fatalf("recorded %d waits, want exactly 1 before the third call", len(*sleeps))
	}
	if (*sleeps)[0] != rateLimitWindow {
		t.Errorf("wait = %v, want %v (window not yet aged)", (*sleeps)[0], rateLimitWindow)
	}
	if tr.calls != 3 {
		t.Errorf("transport calls = %d, want 3 (wait, not rejection)", tr.calls)
	}
}

func TestGenerate_retriesThenSucceeds(t *testing.T) {
	tr := &scriptedTransport{script: []func() (*CallResult, error){
		fail(KindAPI), fail(KindTimeout), ok("finalmente"),
	}}
	e, sleeps := testEngine(tr, Options{MaxRetries: 3})

	got, err := e.Generate(context.Background(), Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "finalmente" {
		t.Errorf("result = %q", got)
	}
	if len(*sleeps) != 2 {
		t.Fatalf("backoff sleeps = %d, want 2", len(*sleeps))
	}
	if (*sleeps)[0] != 2*time.Second || (*sleeps)[1] != 4*time.Second {
		t.Errorf("backoff = %v, want [2s 4s]", *sleeps)
	}
	m := e.Metrics()
	if m.Errors != 2 {
		t.Errorf("error count = %d, want 2", m.Errors)
	}
	if m.Requests != 1 {
		t.Errorf("requests = %d, want 1", m.Requests)
	}
}

func TestGenerate_exhaustedRetriesReturnsTypedError(t *testing.T) {
	tr := &scriptedTransport{script: []func() (*CallResult, error){fail(KindRateLimit)}}
	e, sleeps := testEngine(tr, Options{MaxRetries: 3})

	_, err := e.Generate(context.Background(), Request{Prompt: "p"})
	if err == nil {
		t.Fatal("Generate succeeded, want error after retries exhausted")
	}
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != KindRateLimit {
		t.Errorf("error = %v, want rate-limit gateway error", err)
	}
	if tr.calls != 3 {
		t.Errorf("transport calls = %d, want 3", tr.calls)
	}
	if len(*sleeps) != 2 {
		t.Errorf("sleeps = %d, want 2 (no sleep after last attempt)", len(*sleeps))
	}
}

func TestGenerate_authFailsImmediately(t *testing.T) {
	tr := &scriptedTransport{script: []func() (*CallResult, error){fail(KindAuth)}}
	e, sleeps := testEngine(tr, Options{MaxRetries: 3})

	_, err := e.Generate(context.Background(), Request{Prompt: "p"})
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != KindAuth {
		t.Fatalf("error = %v, want auth error", err)
	}
	if tr.calls != 1 {
		t.Errorf("transport calls = %d, want 1 (no retry on auth)", tr.calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("sleeps = %d, want 0", len(*sleeps))
	}
}

func TestGenerate_mockModeCountsRequests(t *testing.T) {
	e, _ := testEngine(&scriptedTransport{script: []func() (*CallResult, error){ok("real")}}, Options{Mock: true})

	got, err := e.Generate(context.Background(), Request{Prompt: "p"})
	if err != nil {
		t.Fatal(err)
	}
	if got != mockResponse {
		t.Errorf("mock response = %q", got)
	}
	if m := e.Metrics(); m.Requests != 1 {
		t.Errorf("requests = %d, want 1 (mock exercises the metrics path)", m.Requests)
	}
}

func TestInvalidate_dropsOnlyTheGivenEntry(t *testing.T) {
	tr := &scriptedTransport{script: []func() (*CallResult, error){ok("r")}}
	e, _ := testEngine(tr, Options{})

	a := Request{Prompt: "a"}
	b := Request{Prompt: "b"}
	_, _ = e.Generate(context.Background(), a)
	_, _ = e.Generate(context.Background(), b)
	if tr.calls != 2 {
		t.Fatalf("setup: transport calls = %d", tr.calls)
	}

	e.Invalidate(a)

	_, _ = e.Generate(context.Background(), a) // refetched
	_, _ = e.Generate(context.Background(), b) // still cached
	if tr.calls != 3 {
		t.Errorf("transport calls = %d, want 3 (only invalidated entry refetched)", tr.calls)
	}
}

func TestResetMetrics_keepsCache(t *testing.T) {
	tr := &scriptedTransport{script: []func() (*CallResult, error){ok("r")}}
	e, _ := testEngine(tr, Options{})

	_, _ = e.Generate(context.Background(), Request{Prompt: "p"})
	e.ResetMetrics()

	if m := e.Metrics(); m != (Metrics{}) {
		t.Errorf("metrics after reset = %+v, want zero", m)
	}
	_, _ = e.Generate(context.Background(), Request{Prompt: "p"})
	if tr.calls != 1 {
		t.Errorf("transport calls = %d, want 1 (cache survives metrics reset)", tr.calls)
	}
}

func TestClearCache_forcesRefetch(t *testing.T) {
	tr := &scriptedTransport{script: []func() (*CallResult, error){ok("r")}}
	e, _ := testEngine(tr, Options{})

	_, _ = e.Generate(context.Background(), Request{Prompt: "p"})
	e.ClearCache()
	_, _ = e.Generate(context.Background(), Request{Prompt: "p"})

	if tr.calls != 2 {
		t.Errorf("transport calls = %d, want 2", tr.calls)
	}
}

func TestGenerate_contextAndPromptComposed(t *testing.T) {
	var seen string
	e, _ := testEngine(&scriptedTransport{script: []func() (*CallResult, error){ok("r")}}, Options{})
	e.transport = transportFunc(func(ctx context.Context, prompt string, temperature float64, maxTokens int, stop []string) (*CallResult, error) {
		seen = prompt
		return &CallResult{Text: "r"}, nil
	})

	_, err := e.Generate(context.Background(), Request{Prompt: "instrução", Context: "contexto"})
	if err != nil {
		t.Fatal(err)
	}
	want := "Contexto:\ncontexto\n\nInstrução:\ninstrução"
	if seen != want {
		t.Errorf("composed prompt = %q, want %q", seen, want)
	}
}

// transportFunc adapts a function to the Transport interface.
type transportFunc func(ctx context.Context, prompt string, temperature float64, maxTokens int, stop []string) (*CallResult, error)

func (f transportFunc) Call(ctx context.Context, prompt string, temperature float64, maxTokens int, stop []string) (*CallResult, error) {
	return f(ctx, prompt, temperature, maxTokens, stop)
}

func (f transportFunc) ModelInfo() models.ModelInfo {
	return models.ModelInfo{Provider: "fake", Model: "fake-model"}
}

func (f transportFunc) ListModels(ctx context.Context) ([]string, error) { return nil, nil }
