package synthesis

import (
	"fmt"
	"strings"

	"coverbot/internal/logging"
)

// targetStart is the artifact line the target's first line lands on: the
// package clause occupies line 1 and a blank separator line 2.
const targetStart = 3

// runtimeSupport is appended to every artifact. Tests assert through
// expect, which panics with a sentinel value; guard swallows only that
// exact value by equality, so a failed expectation stops one test without
// stopping the run while genuine panics still surface. The sentinel is
// matched by value, not by type: the comparison must hold inside the
// interpreter that executes the artifact.
const runtimeSupport = `
const expectationFailed = "coverbot: expectation failed"

func expect(ok bool) {
	if !ok {
		panic(expectationFailed)
	}
}

func guard(fn func()) {
	defer func() {
		if r := recover(); r != nil && r != expectationFailed {
			panic(r)
		}
	}()
	fn()
}
`

// Artifact is a self-contained program composed from a target, its
// candidate tests, and the runtime support needed to execute them.
type Artifact struct {
	Source string
	// TargetStart is the artifact line holding the target's first line.
	TargetStart int
}

// Compose assembles an executable artifact. entryPoints come from
// ParseTestFunctions; with none to invoke there is nothing to run, so
// Compose fails with ErrNoTestFound.
func Compose(unit TargetUnit, testCode string, entryPoints []string) (*Artifact, error) {
	if len(entryPoints) == 0 {
		return nil, ErrNoTestFound
	}
	if !strings.HasSuffix(testCode, "\n") {
		testCode += "\n"
	}

	var b strings.Builder
	b.WriteString("package main\n\n")
	b.WriteString(unit.Source)
	b.WriteString("\n")
	b.WriteString(testCode)
	b.WriteString(runtimeSupport)
	b.WriteString("\nfunc RunTests() {\n")
	for _, name := range entryPoints {
		fmt.Fprintf(&b, "\tguard(%s)\n", name)
	}
	b.WriteString("}\n")

	source := b.String()
	logging.Compose("artifact for %s: %d entry point(s), %d lines",
		unit.Name, len(entryPoints), strings.Count(source, "\n"))
	return &Artifact{Source: source, TargetStart: targetStart}, nil
}

// FilterToTarget maps artifact line numbers to target-relative lines and
// drops everything outside the target window. Test code and runtime
// support never leak into the report, and the window's final line (the
// target's trailing newline) is excluded.
func (a *Artifact) FilterToTarget(unit TargetUnit, missing []int) []int {
	var out []int
	for _, ln := range missing {
		rel := ln - a.TargetStart + 1
		if rel >= 1 && rel < unit.LineCount {
			out = append(out, rel)
		}
	}
	return out
}
