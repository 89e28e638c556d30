package synthesis

import "strings"

// ParseTestFunctions scans a completion lexically for test entry points.
// Responses are not parsed as Go here; a line declares a test when, after
// leading indentation, it starts with "func Test", and the name is
// whatever sits between the keyword and the first "(". Full syntax
// checking happens later, when the composed artifact is loaded.
func ParseTestFunctions(response string) []string {
	var names []string
	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(trimmed, "func Test") {
			continue
		}
		rest := strings.TrimPrefix(trimmed, "func ")
		paren := strings.Index(rest, "(")
		if paren < 0 {
			continue
		}
		name := strings.TrimSpace(rest[:paren])
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}
