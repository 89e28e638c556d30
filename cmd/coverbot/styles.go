package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"coverbot/internal/synthesis"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	coveredStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	exhaustedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

// printSession writes the full transcript of a session to stdout.
func printSession(session *synthesis.Session) {
	if pretty {
		if rendered, err := renderMarkdown(sessionMarkdown(session)); err == nil {
			fmt.Print(rendered)
			return
		}
		// Fall back to plain styling if the renderer fails.
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("TARGET %s (%d lines, budget %d)",
		session.Unit.Name, session.Unit.LineCount, session.Budget)))
	fmt.Println()

	for _, a := range session.Attempts {
		fmt.Println(headerStyle.Render(fmt.Sprintf("ATTEMPT %d [%s]", a.Index, a.Outcome)))
		fmt.Println(labelStyle.Render("PROMPT:"))
		fmt.Println(promptStyle.Render(a.Prompt))
		fmt.Println(labelStyle.Render("RESPONSE:"))
		fmt.Println(a.Response)
		if len(a.Missing) > 0 {
			fmt.Println(labelStyle.Render(fmt.Sprintf("MISSING LINES: %v", a.Missing)))
		}
		fmt.Println()
	}

	switch session.Status {
	case synthesis.StatusCovered:
		fmt.Println(coveredStyle.Render("STATUS: covered"))
	default:
		fmt.Println(exhaustedStyle.Render("STATUS: " + string(session.Status)))
	}
	fmt.Println()
}

// sessionMarkdown renders a session as markdown for the pretty printer.
func sessionMarkdown(session *synthesis.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Target %s\n\n%d lines, budget %d\n\n",
		session.Unit.Name, session.Unit.LineCount, session.Budget)
	for _, a := range session.Attempts {
		fmt.Fprintf(&b, "## Attempt %d: %s\n\n", a.Index, a.Outcome)
		fmt.Fprintf(&b, "**Prompt**\n\n```\n%s\n```\n\n", strings.TrimRight(a.Prompt, "\n"))
		fmt.Fprintf(&b, "**Response**\n\n```go\n%s\n```\n\n", strings.TrimRight(a.Response, "\n"))
		if len(a.Missing) > 0 {
			fmt.Fprintf(&b, "Missing lines: %v\n\n", a.Missing)
		}
	}
	fmt.Fprintf(&b, "**Status: %s**\n", session.Status)
	return b.String()
}

func renderMarkdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(md)
}
