package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"coverbot/internal/synthesis"
)

// Built-in demo targets. someFunction exercises branch refinement: the
// usual first test covers only one arm of each if.
const someFunctionSource = `func someFunction(x, y int) bool {
	z := 0
	if x < 0 {
		z = y - x
	} else {
		z = y + x
	}
	if z > y {
		return true
	}
	return false
}`

const someOtherFunctionSource = `func someOtherFunction(x, y int) bool {
	z := 0
	for i := 0; i < x; i++ {
		if x < 3 {
			z = y - x
		} else {
			z = y + x
		}
	}
	if z > y {
		return true
	}
	return false
}`

func builtinTargets() []synthesis.TargetUnit {
	return []synthesis.TargetUnit{
		synthesis.NewTargetUnit("someFunction", someFunctionSource),
		synthesis.NewTargetUnit("someOtherFunction", someOtherFunctionSource),
	}
}

// collectTargets builds the target list from file arguments, or the
// built-in demos when none are given. Each file holds one self-contained
// function; anything that will not parse is rejected up front.
func collectTargets(paths []string) ([]synthesis.TargetUnit, error) {
	if len(paths) == 0 {
		return builtinTargets(), nil
	}

	var units []synthesis.TargetUnit
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading target %s: %w", path, err)
		}
		source := string(data)
		if err := validateTarget(source); err != nil {
			return nil, fmt.Errorf("target %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		units = append(units, synthesis.NewTargetUnit(name, source))
	}
	return units, nil
}

// validateTarget checks that source is declaration-level Go once a
// package clause is prepended, mirroring how artifacts are assembled.
func validateTarget(source string) error {
	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, "target.go", "package main\n\n"+source, 0); err != nil {
		return fmt.Errorf("does not parse: %w", err)
	}
	return nil
}
