package decoder

import "strings"

// Line is one physical line of a batch file.
type Line struct {
	Number int
	Text   string
}

// SplitLines splits content on "\r\n", "\n" or "\r". Numbers are 1-based
// over physical lines, so blank lines still advance the count; whitespace-only
// lines are dropped.
func SplitLines(content string) []Line {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	raw := strings.Split(content, "\n")
	lines := make([]Line, 0, len(raw))
	for i, text := range raw {
		if strings.TrimSpace(text) == "" {
			continue
		}
		lines = append(lines, Line{Number: i + 1, Text: text})
	}
	return lines
}
