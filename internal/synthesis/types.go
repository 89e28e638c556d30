// Package synthesis drives the test-synthesis refinement loop: prompt a
// completion service for tests of a target unit, measure coverage of the
// composed artifact, and re-prompt with the lines still missing until the
// target is fully covered or the attempt budget runs out.
package synthesis

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TargetUnit is a self-contained piece of Go source the loop synthesizes
// tests for. Source always ends with a newline and LineCount counts the
// newline-terminated lines, so missing-line reports stay stable however
// the caller formatted the input.
type TargetUnit struct {
	Name      string
	Source    string
	LineCount int
}

// NewTargetUnit normalizes source and derives the line count.
func NewTargetUnit(name, source string) TargetUnit {
	if !strings.HasSuffix(source, "\n") {
		source += "\n"
	}
	return TargetUnit{
		Name:      name,
		Source:    source,
		LineCount: strings.Count(source, "\n"),
	}
}

// AttemptOutcome classifies a single round of the loop.
type AttemptOutcome string

const (
	// OutcomeFullCoverage means every target line executed.
	OutcomeFullCoverage AttemptOutcome = "full-coverage"
	// OutcomePartialCoverage means the artifact ran but some target
	// lines did not execute.
	OutcomePartialCoverage AttemptOutcome = "partial-coverage"
	// OutcomeUnparseable means the response could not be turned into a
	// runnable artifact.
	OutcomeUnparseable AttemptOutcome = "unparseable"
)

// Attempt records one prompt/response round.
type Attempt struct {
	Index    int
	Prompt   string
	Response string
	// Missing holds target-relative line numbers still uncovered after
	// this attempt. Only set for partial-coverage outcomes.
	Missing []int
	Outcome AttemptOutcome
}

// SessionStatus is the terminal disposition of a session.
type SessionStatus string

const (
	StatusCovered         SessionStatus = "covered"
	StatusBudgetExhausted SessionStatus = "budget-exhausted"
)

// Session is the full record of one refinement run against one target.
type Session struct {
	ID       uuid.UUID
	Unit     TargetUnit
	Budget   int
	Attempts []Attempt
	Status   SessionStatus
	// FinalTest is the last test code that produced a runnable
	// artifact. Empty when every attempt was unparseable.
	FinalTest string
}

// Transcript renders the session as plain text, one block per attempt.
func (s *Session) Transcript() string {
	var b strings.Builder
	fmt.Fprintf(&b, "TARGET %s (%d lines, budget %d)\n\n", s.Unit.Name, s.Unit.LineCount, s.Budget)
	for _, a := range s.Attempts {
		fmt.Fprintf(&b, "ATTEMPT %d [%s]\n\nPROMPT:\n%s\n\nRESPONSE:\n%s\n", a.Index, a.Outcome, a.Prompt, a.Response)
		if len(a.Missing) > 0 {
			fmt.Fprintf(&b, "\nMISSING LINES: %s\n", joinLines(a.Missing))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "STATUS: %s\n", s.Status)
	return b.String()
}
