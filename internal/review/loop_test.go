package review

import (
	"context"
	"errors"
	"testing"

	"github.com/demusis/rev-textos/internal/agents"
	"github.com/demusis/rev-textos/internal/models"
)

// scriptedAgent replays a sequence of iteration outcomes.
type scriptedAgent struct {
	steps []step
	calls int
	// inputs records the text each call received.
	inputs []string
}

type step struct {
	findings int
	output   string
	err      error
}

func (a *scriptedAgent) Name() string        { return "revisor_teste" }
func (a *scriptedAgent) Description() string { return "agente de teste" }

func (a *scriptedAgent) Process(ctx context.Context, section *models.Section, task agents.Task) (*models.Revision, error) {
	idx := a.calls
	if idx >= len(a.steps) {
		idx = len(a.steps) - 1
	}
	a.calls++
	a.inputs = append(a.inputs, task.InputText)

	s := a.steps[idx]
	if s.err != nil {
		return nil, s.err
	}
	rev := models.NewRevision(0, task.InputText, a.Name())
	for i := 0; i < s.findings; i++ {
		rev.AddFinding(models.Finding{
			Category: models.CategoryGrammatical,
			Snippet:  string(rune('a' + idx)) + string(rune('0' + i)),
			Severity: 1,
		})
	}
	rev.OutputText = s.output
	rev.Finalize()
	return rev, nil
}

func section(t *testing.T, content string) *models.Section {
	t.Helper()
	s, err := models.NewSection("Histórico", content, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRevise_zeroFindingsConvergesFirstIteration(t *testing.T) {
	agent := &scriptedAgent{steps: []step{{findings: 0, output: "limpo"}}}
	sec := section(t, "texto original")

	res, err := NewLoop(agent, nil).Revise(context.Background(), sec, 5, 0.95)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Error("not converged")
	}
	if res.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", res.Iterations)
	}
	if sec.Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed", sec.Status)
	}
	if last := sec.LastRevision(); last == nil || !last.Converged {
		t.Error("final revision not stamped converged")
	}
}

func TestRevise_firstFindingsNeverConverge(t *testing.T) {
	// 3 findings on a zero baseline must not converge even though the
	// reduction formula is undefined there.
	agent := &scriptedAgent{steps: []step{
		{findings: 3, output: "v2"},
		{findings: 0, output: "v3"},
	}}
	sec := section(t, "texto")

	res, err := NewLoop(agent, nil).Revise(context.Background(), sec, 5, 0.95)
	if err != nil {
		t.Fatal(err)
	}
	if res.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", res.Iterations)
	}
	if !res.Converged {
		t.Error("second iteration with zero findings must converge")
	}
}

func TestRevise_reductionBelowComplementConverges(t *testing.T) {
	// 100 -> 3 findings: reduction 0.97, complement of 0.95 is 0.05;
	// 0.97 >= 0.05 so NOT converged. 100 -> 98: reduction 0.02 < 0.05,
	// converged. The comparison is on the complement, strict.
	tests := []struct {
		name          string
		second        int
		wantConverged bool
	}{
		{"large_reduction_keeps_iterating", 3, false},
		{"tiny_reduction_converges", 98, true},
		{"exact_complement_keeps_iterating", 95, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := &scriptedAgent{steps: []step{
				{findings: 100, output: "v2"},
				{findings: tt.second, output: "v3"},
				{findings: tt.second, output: "v4"},
			}}
			sec := section(t, "texto")

			res, err := NewLoop(agent, nil).Revise(context.Background(), sec, 2, 0.95)
			if err != nil {
				t.Fatal(err)
			}
			if res.Converged != tt.wantConverged {
				t.Errorf("converged = %v, want %v", res.Converged, tt.wantConverged)
			}
		})
	}
}

func TestRevise_unusableResponseSpendsIteration(t *testing.T) {
	agent := &scriptedAgent{steps: []step{
		{err: &agents.ResponseError{Agent: "revisor_teste", Err: errors.New("JSON truncado")}},
		{findings: 0, output: "limpo"},
	}}
	sec := section(t, "texto original")

	res, err := NewLoop(agent, nil).Revise(context.Background(), sec, 5, 0.95)
	if err != nil {
		t.Fatal(err)
	}
	if res.Iterations != 2 {
		t.Errorf("iterations = %d, want 2 (first was spent)", res.Iterations)
	}
	if sec.Iterations() != 1 {
		t.Errorf("recorded revisions = %d, want 1 (spent iteration leaves no trace)", sec.Iterations())
	}
	if agent.inputs[1] != "texto original" {
		t.Errorf("second call input = %q, want original text unchanged", agent.inputs[1])
	}
}

func TestRevise_onlySpentIterationsMeansNoConvergence(t *testing.T) {
	agent := &scriptedAgent{steps: []step{
		{err: &agents.ResponseError{Agent: "revisor_teste", Err: errors.New("ruim")}},
	}}
	sec := section(t, "texto")

	res, err := NewLoop(agent, nil).Revise(context.Background(), sec, 3, 0.95)
	if err != nil {
		t.Fatal(err)
	}
	if res.Converged {
		t.Error("converged with no successful iteration")
	}
	if agent.calls != 3 {
		t.Errorf("agent calls = %d, want 3", agent.calls)
	}
	if res.FinalText != "texto" {
		t.Errorf("final text = %q, want the original content", res.FinalText)
	}
}

func TestRevise_budgetExhaustedIsSoft(t *testing.T) {
	agent := &scriptedAgent{steps: []step{
		{findings: 10, output: "v2"},
		{findings: 5, output: "v3"},
	}}
	sec := section(t, "texto")

	res, err := NewLoop(agent, nil).Revise(context.Background(), sec, 2, 0.95)
	if err != nil {
		t.Fatalf("non-convergence must not be an error: %v", err)
	}
	if res.Converged {
		t.Error("converged unexpectedly")
	}
	if res.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", res.Iterations)
	}
	if res.FinalText != "v3" {
		t.Errorf("final text = %q, want latest output", res.FinalText)
	}
	if sec.Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed even without convergence", sec.Status)
	}
}

func TestRevise_outputFeedsNextIteration(t *testing.T) {
	// Finding counts 100 and 50 keep the loop going; the empty output of
	// iteration two must not blank the working text.
	agent := &scriptedAgent{steps: []step{
		{findings: 100, output: "segunda versão"},
		{findings: 50, output: ""},
		{findings: 0, output: "final"},
	}}
	sec := section(t, "primeira versão")

	res, err := NewLoop(agent, nil).Revise(context.Background(), sec, 5, 0.95)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"primeira versão", "segunda versão", "segunda versão"}
	for i, in := range want {
		if agent.inputs[i] != in {
			t.Errorf("call %d input = %q, want %q", i+1, agent.inputs[i], in)
		}
	}
	if !res.Converged {
		t.Error("not converged")
	}
}

func TestRevise_gatewayFailureAborts(t *testing.T) {
	agent := &scriptedAgent{steps: []step{{err: errors.New("provider indisponível")}}}
	sec := section(t, "texto")

	_, err := NewLoop(agent, nil).Revise(context.Background(), sec, 5, 0.95)
	if err == nil {
		t.Fatal("Revise succeeded, want error on non-response failure")
	}
	if agent.calls != 1 {
		t.Errorf("agent calls = %d, want 1", agent.calls)
	}
}

func TestRevise_cancellationStopsBetweenIterations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	agent := &scriptedAgent{steps: []step{{findings: 1, output: "v2"}}}

	_, err := NewLoop(agent, nil).Revise(ctx, section(t, "texto"), 5, 0.95)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if agent.calls != 0 {
		t.Errorf("agent calls = %d, want 0", agent.calls)
	}
}

func TestConverged_table(t *testing.T) {
	tests := []struct {
		previous, current int
		threshold         float64
		want              bool
	}{
		{0, 0, 0.95, true},
		{10, 0, 0.95, true},
		{0, 5, 0.95, false},
		{100, 3, 0.95, false},
		{100, 98, 0.95, true},
		{100, 95, 0.95, false}, // boundary: strict inequality
		{10, 10, 0.95, true},   // no reduction at all stabilizes
	}
	for _, tt := range tests {
		if got := converged(tt.previous, tt.current, tt.threshold); got != tt.want {
			t.Errorf("converged(%d, %d, %g) = %v, want %v",
				tt.previous, tt.current, tt.threshold, got, tt.want)
		}
	}
}
