package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// mockClient satisfies completion.Client and records every prompt.
type mockClient struct {
	CompleteFunc func(ctx context.Context, prompt string) (string, error)
	prompts      []string
}

func (m *mockClient) Complete(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.CompleteFunc(ctx, prompt)
}

// scriptedClient replays responses in order; the last one repeats.
func scriptedClient(responses ...string) *mockClient {
	i := 0
	return &mockClient{
		CompleteFunc: func(ctx context.Context, prompt string) (string, error) {
			r := responses[i]
			if i < len(responses)-1 {
				i++
			}
			return r, nil
		},
	}
}

const addSource = `func add(x, y int) int {
	return x + y
}`

const clampSource = `func clamp(x int) int {
	if x < 0 {
		x = 0
	} else {
		x = x * 2
	}
	return x
}`

func TestRunSession_CoveredFirstAttempt(t *testing.T) {
	client := scriptedClient("func TestAdd() {\n\texpect(add(1, 2) == 3)\n}\n")
	ctrl := NewController(client, DefaultLoopConfig())

	session, err := ctrl.RunSession(context.Background(), NewTargetUnit("add", addSource))
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}

	if session.Status != StatusCovered {
		t.Errorf("Status = %q, want %q", session.Status, StatusCovered)
	}
	if len(session.Attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(session.Attempts))
	}
	if got := session.Attempts[0].Outcome; got != OutcomeFullCoverage {
		t.Errorf("outcome = %q, want %q", got, OutcomeFullCoverage)
	}
	if session.FinalTest == "" {
		t.Error("FinalTest is empty, want the covering test code")
	}
	if ctrl.State() != StateCovered {
		t.Errorf("controller state = %q, want %q", ctrl.State(), StateCovered)
	}
}

func TestRunSession_RefinesUncoveredBranch(t *testing.T) {
	partial := "func TestClampNegative() {\n\texpect(clamp(-3) == 0)\n}\n"
	full := partial + "\nfunc TestClampPositive() {\n\texpect(clamp(2) == 4)\n}\n"
	client := scriptedClient(partial, full)
	ctrl := NewController(client, DefaultLoopConfig())

	session, err := ctrl.RunSession(context.Background(), NewTargetUnit("clamp", clampSource))
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}

	if session.Status != StatusCovered {
		t.Fatalf("Status = %q, want %q", session.Status, StatusCovered)
	}
	if len(session.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(session.Attempts))
	}

	first := session.Attempts[0]
	if first.Outcome != OutcomePartialCoverage {
		t.Errorf("attempt 0 outcome = %q, want %q", first.Outcome, OutcomePartialCoverage)
	}
	if diff := cmp.Diff([]int{5}, first.Missing); diff != "" {
		t.Errorf("attempt 0 missing lines mismatch (-want +got):\n%s", diff)
	}

	followUp := client.prompts[1]
	if !strings.Contains(followUp, "lines 5") {
		t.Error("follow-up prompt does not name the missing line")
	}
	if !strings.Contains(followUp, "TestClampNegative") {
		t.Error("follow-up prompt does not carry the previous test code")
	}

	if got := session.Attempts[1].Outcome; got != OutcomeFullCoverage {
		t.Errorf("attempt 1 outcome = %q, want %q", got, OutcomeFullCoverage)
	}
}

func TestRunSession_FailingExpectationStillMeasured(t *testing.T) {
	// The assertion is wrong but the test still runs every target line;
	// guard must swallow the failure rather than abort the attempt.
	client := scriptedClient("func TestAdd() {\n\texpect(add(1, 2) == 7)\n}\n")
	ctrl := NewController(client, DefaultLoopConfig())

	session, err := ctrl.RunSession(context.Background(), NewTargetUnit("add", addSource))
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}

	if session.Status != StatusCovered {
		t.Fatalf("Status = %q, want %q", session.Status, StatusCovered)
	}
	if len(session.Attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(session.Attempts))
	}
	if got := session.Attempts[0].Outcome; got != OutcomeFullCoverage {
		t.Errorf("outcome = %q, want %q", got, OutcomeFullCoverage)
	}
}

func TestRunSession_UnparseableResponsesExhaustBudget(t *testing.T) {
	client := scriptedClient("I cannot write tests for that.\n")
	ctrl := NewController(client, LoopConfig{MaxAttempts: 2})

	session, err := ctrl.RunSession(context.Background(), NewTargetUnit("add", addSource))
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}

	if session.Status != StatusBudgetExhausted {
		t.Errorf("Status = %q, want %q", session.Status, StatusBudgetExhausted)
	}
	if len(session.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(session.Attempts))
	}
	for i, a := range session.Attempts {
		if a.Outcome != OutcomeUnparseable {
			t.Errorf("attempt %d outcome = %q, want %q", i, a.Outcome, OutcomeUnparseable)
		}
	}
	// With nothing kept, every re-prompt starts from scratch.
	if client.prompts[0] != client.prompts[1] {
		t.Error("second prompt differs from the first, want identical initial prompts")
	}
	if session.FinalTest != "" {
		t.Errorf("FinalTest = %q, want empty", session.FinalTest)
	}
	if ctrl.State() != StateBudgetExhausted {
		t.Errorf("controller state = %q, want %q", ctrl.State(), StateBudgetExhausted)
	}
}

func TestRunSession_InvalidGoIsRecoverable(t *testing.T) {
	broken := "func TestBad() {\n\tthis is not go\n}\n"
	good := "func TestAdd() {\n\texpect(add(1, 2) == 3)\n}\n"
	client := scriptedClient(broken, good)
	ctrl := NewController(client, DefaultLoopConfig())

	session, err := ctrl.RunSession(context.Background(), NewTargetUnit("add", addSource))
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}

	if session.Status != StatusCovered {
		t.Fatalf("Status = %q, want %q", session.Status, StatusCovered)
	}
	if got := session.Attempts[0].Outcome; got != OutcomeUnparseable {
		t.Errorf("attempt 0 outcome = %q, want %q", got, OutcomeUnparseable)
	}
}

func TestRunSession_CompletionErrorIsRecoverable(t *testing.T) {
	calls := 0
	client := &mockClient{
		CompleteFunc: func(ctx context.Context, prompt string) (string, error) {
			calls++
			if calls == 1 {
				return "", errors.New("upstream overloaded")
			}
			return "func TestAdd() {\n\texpect(add(1, 2) == 3)\n}\n", nil
		},
	}
	ctrl := NewController(client, DefaultLoopConfig())

	session, err := ctrl.RunSession(context.Background(), NewTargetUnit("add", addSource))
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}
	if session.Status != StatusCovered {
		t.Fatalf("Status = %q, want %q", session.Status, StatusCovered)
	}
	if len(session.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(session.Attempts))
	}
}

func TestRunSession_PartialThenExhausted(t *testing.T) {
	partial := "func TestClampNegative() {\n\texpect(clamp(-3) == 0)\n}\n"
	client := scriptedClient(partial)
	ctrl := NewController(client, LoopConfig{MaxAttempts: 1})

	session, err := ctrl.RunSession(context.Background(), NewTargetUnit("clamp", clampSource))
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}

	if session.Status != StatusBudgetExhausted {
		t.Errorf("Status = %q, want %q", session.Status, StatusBudgetExhausted)
	}
	if len(session.Attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(session.Attempts))
	}
	if session.FinalTest != partial {
		t.Error("FinalTest does not hold the last runnable test code")
	}
}

func TestRunSession_KeepTestOnParseFailure(t *testing.T) {
	partial := "func TestClampNegative() {\n\texpect(clamp(-3) == 0)\n}\n"
	garbage := "Sorry, here is an essay instead.\n"
	full := partial + "\nfunc TestClampPositive() {\n\texpect(clamp(2) == 4)\n}\n"
	client := scriptedClient(partial, garbage, full)
	ctrl := NewController(client, LoopConfig{MaxAttempts: 5, KeepTestOnParseFailure: true})

	session, err := ctrl.RunSession(context.Background(), NewTargetUnit("clamp", clampSource))
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}

	if session.Status != StatusCovered {
		t.Fatalf("Status = %q, want %q", session.Status, StatusCovered)
	}
	// The round after the garbage response still steers with the last
	// runnable test instead of starting over.
	third := client.prompts[2]
	if !strings.Contains(third, "TestClampNegative") {
		t.Error("post-failure prompt lost the kept test code")
	}
	if !strings.Contains(third, "lines 5") {
		t.Error("post-failure prompt lost the missing lines")
	}
}

func TestRunSession_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := scriptedClient("unused")
	ctrl := NewController(client, DefaultLoopConfig())

	_, err := ctrl.RunSession(ctx, NewTargetUnit("add", addSource))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNewController_DefaultsBudget(t *testing.T) {
	ctrl := NewController(scriptedClient(""), LoopConfig{})
	if ctrl.cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", ctrl.cfg.MaxAttempts)
	}
}

func TestController_History(t *testing.T) {
	client := scriptedClient("func TestAdd() {\n\texpect(add(1, 2) == 3)\n}\n")
	ctrl := NewController(client, DefaultLoopConfig())

	if _, err := ctrl.RunSession(context.Background(), NewTargetUnit("add", addSource)); err != nil {
		t.Fatalf("RunSession: %v", err)
	}

	var states []string
	for _, tr := range ctrl.History() {
		states = append(states, tr.To)
	}
	want := []string{StateQuerying, StateAnalyzing, StateCovered}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Errorf("transition history mismatch (-want +got):\n%s", diff)
	}
}
