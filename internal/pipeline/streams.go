package pipeline

import (
	"regexp"
	"strings"

	"github.com/alnah/go-nb2html/internal/notebook"
)

// backspaceRun matches a character followed by a backspace.
var backspaceRun = regexp.MustCompile("[^\n\b]\b")

// CoalesceStreams merges consecutive stream outputs with the same name
// into one, as a terminal would show them. Other outputs are returned
// unchanged. The input slice is not modified.
func CoalesceStreams(outputs []notebook.Output) []notebook.Output {
	if len(outputs) == 0 {
		return outputs
	}

	merged := make([]notebook.Output, 0, len(outputs))
	for _, out := range outputs {
		if out.OutputType == notebook.OutputStream && len(merged) > 0 {
			prev := &merged[len(merged)-1]
			if prev.OutputType == notebook.OutputStream && prev.Name == out.Name {
				prev.Text += out.Text
				continue
			}
		}
		merged = append(merged, out)
	}

	for i := range merged {
		if merged[i].OutputType == notebook.OutputStream {
			merged[i].Text = notebook.MultilineString(CollapseCarriageReturns(merged[i].Text.String()))
		}
	}
	return merged
}

// CollapseCarriageReturns applies terminal overwrite semantics: text
// before a bare \r on the same line is discarded when more text follows
// it, and each backspace erases the preceding character. Progress bars
// collapse to their final state; a trailing \r keeps the line it ends.
func CollapseCarriageReturns(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	if strings.Contains(text, "\r") {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			line = strings.TrimRight(line, "\r")
			if idx := strings.LastIndex(line, "\r"); idx >= 0 {
				line = line[idx+1:]
			}
			lines[i] = line
		}
		text = strings.Join(lines, "\n")
	}

	for strings.Contains(text, "\b") {
		next := backspaceRun.ReplaceAllString(text, "")
		if next == text {
			// Leading backspaces with nothing to erase.
			next = strings.ReplaceAll(text, "\b", "")
		}
		text = next
	}
	return text
}
