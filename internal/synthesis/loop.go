package synthesis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"coverbot/internal/completion"
	"coverbot/internal/coverage"
	"coverbot/internal/logging"
)

// Controller states.
const (
	StateIdle            = "idle"
	StateQuerying        = "querying"
	StateAnalyzing       = "analyzing"
	StateCovered         = "covered"
	StateBudgetExhausted = "budget_exhausted"
)

// LoopConfig tunes a Controller.
type LoopConfig struct {
	// MaxAttempts is the per-session attempt budget.
	MaxAttempts int
	// KeepTestOnParseFailure keeps the last runnable test code as
	// steering context after an unparseable round instead of starting
	// over from the initial prompt.
	KeepTestOnParseFailure bool
}

// DefaultLoopConfig returns the standard loop settings.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxAttempts:            5,
		KeepTestOnParseFailure: false,
	}
}

// Transition records one state change of the controller.
type Transition struct {
	From   string
	To     string
	Reason string
	At     time.Time
}

// Controller runs refinement sessions. It prompts the completion client,
// composes and measures artifacts, and re-prompts with the missing lines
// until the target is covered or the budget is spent.
type Controller struct {
	client   completion.Client
	analyzer *coverage.Analyzer
	prompts  *Builder
	cfg      LoopConfig

	mu      sync.Mutex
	state   string
	history []Transition
}

// NewController builds a Controller. A non-positive MaxAttempts falls
// back to the default budget.
func NewController(client completion.Client, cfg LoopConfig) *Controller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultLoopConfig().MaxAttempts
	}
	return &Controller{
		client:   client,
		analyzer: coverage.NewAnalyzer(),
		prompts:  NewBuilder(),
		cfg:      cfg,
		state:    StateIdle,
	}
}

// State returns the controller's current state.
func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns a copy of every transition so far.
func (c *Controller) History() []Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Transition, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Controller) transition(to, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, Transition{
		From:   c.state,
		To:     to,
		Reason: reason,
		At:     time.Now(),
	})
	logging.LoopDebug("state %s -> %s (%s)", c.state, to, reason)
	c.state = to
}

// RunSession refines tests for unit until it is fully covered or the
// attempt budget is exhausted. Recoverable failures (no test functions
// in the response, artifacts that will not load, completion errors)
// consume an attempt and the loop re-prompts; only context cancellation
// and prompt rendering failures abort the session.
func (c *Controller) RunSession(ctx context.Context, unit TargetUnit) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	session := &Session{
		ID:     uuid.New(),
		Unit:   unit,
		Budget: c.cfg.MaxAttempts,
		Status: StatusBudgetExhausted,
	}
	logging.Loop("session %s: target %s (%d lines), budget %d",
		session.ID, unit.Name, unit.LineCount, session.Budget)

	var (
		testCode    string
		missing     []int
		havePartial bool
	)

	for attempt := 0; attempt < session.Budget; attempt++ {
		var (
			prompt string
			err    error
		)
		if havePartial {
			prompt, err = c.prompts.FollowUp(unit, testCode, missing)
		} else {
			prompt, err = c.prompts.Initial(unit)
		}
		if err != nil {
			return nil, err
		}

		c.transition(StateQuerying, fmt.Sprintf("attempt %d", attempt))
		response, err := c.client.Complete(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.Loop("session %s attempt %d: completion failed: %v", session.ID, attempt, err)
			session.Attempts = append(session.Attempts, Attempt{
				Index:   attempt,
				Prompt:  prompt,
				Outcome: OutcomeUnparseable,
			})
			testCode, missing, havePartial = c.afterFailure(testCode, missing, havePartial)
			continue
		}

		rec := Attempt{Index: attempt, Prompt: prompt, Response: response}

		names := ParseTestFunctions(response)
		artifact, err := Compose(unit, response, names)
		if err != nil {
			logging.Loop("session %s attempt %d: %v", session.ID, attempt, err)
			rec.Outcome = OutcomeUnparseable
			session.Attempts = append(session.Attempts, rec)
			testCode, missing, havePartial = c.afterFailure(testCode, missing, havePartial)
			continue
		}

		c.transition(StateAnalyzing, fmt.Sprintf("attempt %d", attempt))
		artifactMissing, err := c.analyzer.MissingLines(ctx, artifact.Source)
		if err != nil {
			var loadErr *coverage.LoadError
			if !errors.As(err, &loadErr) {
				return nil, err
			}
			uerr := &UnparseableResponseError{Err: loadErr}
			logging.Loop("session %s attempt %d: %v", session.ID, attempt, uerr)
			rec.Outcome = OutcomeUnparseable
			session.Attempts = append(session.Attempts, rec)
			testCode, missing, havePartial = c.afterFailure(testCode, missing, havePartial)
			continue
		}

		targetMissing := artifact.FilterToTarget(unit, artifactMissing)
		if len(targetMissing) == 0 {
			rec.Outcome = OutcomeFullCoverage
			session.Attempts = append(session.Attempts, rec)
			session.Status = StatusCovered
			session.FinalTest = response
			c.transition(StateCovered, fmt.Sprintf("attempt %d", attempt))
			logging.Loop("session %s: covered after %d attempt(s)", session.ID, attempt+1)
			return session, nil
		}

		rec.Outcome = OutcomePartialCoverage
		rec.Missing = targetMissing
		session.Attempts = append(session.Attempts, rec)
		logging.Loop("session %s attempt %d: lines %s not covered",
			session.ID, attempt, joinLines(targetMissing))

		testCode = response
		missing = targetMissing
		havePartial = true
	}

	c.transition(StateBudgetExhausted, fmt.Sprintf("budget %d spent", session.Budget))
	logging.Loop("session %s: budget exhausted", session.ID)
	if havePartial {
		session.FinalTest = testCode
	}
	return session, nil
}

// afterFailure decides what context the next prompt carries after an
// unparseable round. The default discards everything and starts over
// from the initial prompt.
func (c *Controller) afterFailure(testCode string, missing []int, havePartial bool) (string, []int, bool) {
	if c.cfg.KeepTestOnParseFailure && havePartial {
		return testCode, missing, true
	}
	return "", nil, false
}
