package pipeline

import (
	"context"
	"html"
	"regexp"
	"strconv"
	"strings"
)

// Math placeholders use Unicode Private Use Area characters.
// They pass through Goldmark unchanged, so LaTeX is never mangled by
// emphasis or escape processing. RestoreMath swaps them back after
// HTML generation.
const (
	MathStartPlaceholder = "\uE000" // U+E000: Private Use Area start
	MathEndPlaceholder   = "\uE001" // U+E001: Private Use Area end
)

// Precompiled regex patterns for performance.
var (
	// Line ending normalization
	crlfOrCR = regexp.MustCompile(`\r\n?`)

	// Compress multiple blank lines to max 2
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)

	// Display math first so $$ is never read as two inline delimiters.
	// Inline $...$ must not start or end with whitespace.
	mathPattern = regexp.MustCompile(`\$\$[\s\S]+?\$\$|\\\[[\s\S]+?\\\]|\\\([\s\S]+?\\\)|\$[^\s$](?:[^$\n]*?[^\s$\\])?\$`)

	// Fenced code delimiter line
	fencePattern = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})")

	// Placeholder emitted by ProtectMath
	mathTokenPattern = regexp.MustCompile(MathStartPlaceholder + `(\d+)` + MathEndPlaceholder)
)

// MathSpans holds LaTeX fragments removed from markdown by ProtectMath.
type MathSpans []string

// PreprocessMarkdown prepares markdown cell source for Goldmark: line
// endings are normalized, then ProtectMath compresses blank lines and
// replaces math spans outside code with placeholders.
func PreprocessMarkdown(ctx context.Context, content string) (string, MathSpans) {
	if ctx.Err() != nil {
		return content, nil
	}

	return ProtectMath(normalizeLineEndings(content))
}

// normalizeLineEndings converts \r\n and \r to \n.
func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

// compressBlankLines limits consecutive blank lines to 2 maximum.
func compressBlankLines(content string) string {
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

// ProtectMath replaces LaTeX math with numbered placeholders. Fenced code
// blocks and inline code spans are left untouched. Escaped dollars (\$)
// never open a span. Runs of blank lines are compressed in prose only;
// fenced code keeps its blank lines verbatim.
func ProtectMath(content string) (string, MathSpans) {
	var (
		spans MathSpans
		out   strings.Builder
		prose strings.Builder
		fence string
	)
	out.Grow(len(content))

	flush := func() {
		if prose.Len() > 0 {
			out.WriteString(protectProse(compressBlankLines(prose.String()), &spans))
			prose.Reset()
		}
	}

	for _, line := range strings.SplitAfter(content, "\n") {
		marker := ""
		if m := fencePattern.FindStringSubmatch(line); m != nil {
			marker = m[1]
		}

		switch {
		case fence != "":
			out.WriteString(line)
			if marker != "" && marker[0] == fence[0] && len(marker) >= len(fence) {
				fence = ""
			}
		case marker != "":
			flush()
			fence = marker
			out.WriteString(line)
		default:
			prose.WriteString(line)
		}
	}
	flush()

	return out.String(), spans
}

// protectProse protects math in text that contains no fenced code,
// skipping inline code spans delimited by backtick runs.
func protectProse(text string, spans *MathSpans) string {
	var out strings.Builder
	for text != "" {
		start := strings.IndexByte(text, '`')
		if start < 0 {
			out.WriteString(replaceMath(text, spans))
			break
		}
		out.WriteString(replaceMath(text[:start], spans))

		run := len(text[start:]) - len(strings.TrimLeft(text[start:], "`"))
		delim := text[start : start+run]
		end := strings.Index(text[start+run:], delim)
		if end < 0 {
			out.WriteString(delim)
			text = text[start+run:]
			continue
		}
		stop := start + run + end + run
		out.WriteString(text[start:stop])
		text = text[stop:]
	}
	return out.String()
}

func replaceMath(text string, spans *MathSpans) string {
	matches := mathPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var out strings.Builder
	last := 0
	for _, m := range matches {
		if m[0] > 0 && text[m[0]-1] == '\\' && text[m[0]] == '$' {
			continue
		}
		out.WriteString(text[last:m[0]])
		out.WriteString(MathStartPlaceholder)
		out.WriteString(strconv.Itoa(len(*spans)))
		out.WriteString(MathEndPlaceholder)
		*spans = append(*spans, text[m[0]:m[1]])
		last = m[1]
	}
	out.WriteString(text[last:])
	return out.String()
}

// RestoreMath replaces placeholders in rendered HTML with the escaped
// original LaTeX. Display math is wrapped so it can be styled as a block.
func RestoreMath(content string, spans MathSpans) string {
	if len(spans) == 0 {
		return content
	}
	return mathTokenPattern.ReplaceAllStringFunc(content, func(token string) string {
		idx, err := strconv.Atoi(mathTokenPattern.FindStringSubmatch(token)[1])
		if err != nil || idx >= len(spans) {
			return token
		}
		math := spans[idx]
		escaped := html.EscapeString(math)
		if strings.HasPrefix(math, "$$") || strings.HasPrefix(math, `\[`) {
			return `<span class="nb-math-display">` + escaped + `</span>`
		}
		return escaped
	})
}
