// Package coverage measures statement coverage of self-contained Go
// artifacts. An artifact is instrumented at the AST level, executed in a
// fresh embedded interpreter, and the statement lines that never ran are
// reported back in artifact coordinates.
package coverage

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"coverbot/internal/logging"
)

// Entrypoint is the function the analyzer invokes after loading an
// artifact. Artifacts that do not declare it fail with a LoadError.
const Entrypoint = "main.RunTests()"

// LoadError reports an artifact that could not be parsed, loaded or
// executed as a unit. It is recoverable: the caller may discard the
// artifact and try again with different content.
type LoadError struct {
	Stage string // "parse", "load" or "execute"
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("artifact %s failed: %v", e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Analyzer measures statement coverage of artifacts. The zero value is
// not usable; construct with NewAnalyzer.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// MissingLines executes source under statement instrumentation and returns
// the artifact line numbers that did not execute, ascending. Every
// function-body statement in the artifact is tracked, scaffolding
// included; callers scope the result to the window they care about. A nil
// slice means every tracked statement ran.
func (a *Analyzer) MissingLines(ctx context.Context, source string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer := logging.StartTimer(logging.CategoryCoverage, "MissingLines")
	defer timer.Stop()

	instrumented, statements, err := instrument(source)
	if err != nil {
		return nil, &LoadError{Stage: "parse", Err: err}
	}
	logging.CoverageDebug("instrumented artifact with %d statement lines", len(statements))

	rec := newRecorder(statements)
	ec, err := newExecutionContext(rec)
	if err != nil {
		return nil, &LoadError{Stage: "load", Err: err}
	}
	if err := ec.run(instrumented); err != nil {
		return nil, err
	}

	missing := rec.missing()
	logging.Coverage("context %s: %d/%d statement lines covered",
		ec.ID, len(statements)-len(missing), len(statements))
	return missing, nil
}

// ExecutionContext is a single-use interpreter session. A fresh context
// per artifact guarantees no state survives from one attempt to the next.
type ExecutionContext struct {
	ID     uuid.UUID
	interp *interp.Interpreter
}

func newExecutionContext(rec *recorder) (*ExecutionContext, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loading stdlib symbols: %w", err)
	}
	err := i.Use(interp.Exports{
		coverImportPath + "/" + coverImportPath: {
			"Hit": reflect.ValueOf(rec.Hit),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("exporting recorder: %w", err)
	}
	return &ExecutionContext{ID: uuid.New(), interp: i}, nil
}

// run loads the instrumented artifact and invokes its entrypoint. Panics
// escaping interpreted code are converted to execute-stage errors.
func (ec *ExecutionContext) run(source string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.CoverageDebug("context %s: artifact panicked: %v", ec.ID, r)
			err = &LoadError{Stage: "execute", Err: fmt.Errorf("artifact panicked: %v", r)}
		}
	}()

	if _, evalErr := ec.interp.Eval(source); evalErr != nil {
		return &LoadError{Stage: "load", Err: evalErr}
	}
	if _, evalErr := ec.interp.Eval(Entrypoint); evalErr != nil {
		return &LoadError{Stage: "execute", Err: evalErr}
	}
	return nil
}
