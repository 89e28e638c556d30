package synthesis

import (
	"fmt"
	"strings"
	"text/template"
)

const initialTemplate = `Below is a Go function.

{{.Source}}
Write tests that execute every line of it. Each test is a plain Go
function taking no arguments, named starting with Test, that calls the
function and checks each result with expect(condition). Do not import
anything. Reply with only Go code, starting with a line of the form:

func TestSomething() {
`

const followUpTemplate = `Below is a Go function.

{{.Source}}
These tests for it were executed:

{{.TestCode}}
But lines {{.Missing}} of the function did not run. Reply with only Go
code: a complete replacement set of tests, each a plain Go function
taking no arguments that uses expect(condition), so that every line of
the function runs.
`

// Builder renders the prompts sent to the completion service.
type Builder struct {
	initial  *template.Template
	followUp *template.Template
}

func NewBuilder() *Builder {
	return &Builder{
		initial:  template.Must(template.New("initial").Parse(initialTemplate)),
		followUp: template.Must(template.New("followUp").Parse(followUpTemplate)),
	}
}

// Initial renders the first prompt for a target.
func (b *Builder) Initial(unit TargetUnit) (string, error) {
	var out strings.Builder
	err := b.initial.Execute(&out, map[string]string{
		"Source": unit.Source,
	})
	if err != nil {
		return "", fmt.Errorf("rendering initial prompt: %w", err)
	}
	return out.String(), nil
}

// FollowUp renders a refinement prompt carrying the previous test code
// and the target-relative lines still uncovered.
func (b *Builder) FollowUp(unit TargetUnit, testCode string, missing []int) (string, error) {
	if !strings.HasSuffix(testCode, "\n") {
		testCode += "\n"
	}
	var out strings.Builder
	err := b.followUp.Execute(&out, map[string]string{
		"Source":   unit.Source,
		"TestCode": testCode,
		"Missing":  joinLines(missing),
	})
	if err != nil {
		return "", fmt.Errorf("rendering follow-up prompt: %w", err)
	}
	return out.String(), nil
}

// joinLines renders line numbers the way they read in prose: "7", or
// "3 and 7 and 12".
func joinLines(missing []int) string {
	parts := make([]string, len(missing))
	for i, ln := range missing {
		parts[i] = fmt.Sprintf("%d", ln)
	}
	return strings.Join(parts, " and ")
}
