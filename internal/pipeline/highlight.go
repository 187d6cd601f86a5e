package pipeline

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultHighlightStyle is the Chroma style used when none is configured.
const DefaultHighlightStyle = "github"

// lexerAliases maps kernel lexer names Chroma does not know to ones it does.
var lexerAliases = map[string]string{
	"ipython":  "python",
	"ipython2": "python",
	"ipython3": "python",
	"python3":  "python",
	"ir":       "r",
	"julia-1":  "julia",
}

// CodeHighlighter renders code cell sources with Chroma.
type CodeHighlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// NewCodeHighlighter creates a highlighter for the named Chroma style.
// Unknown style names fall back to Chroma's default style.
func NewCodeHighlighter(styleName string) *CodeHighlighter {
	if styleName == "" {
		styleName = DefaultHighlightStyle
	}
	return &CodeHighlighter{
		style:     styles.Get(styleName),
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
	}
}

// Highlight returns code as highlighted HTML. An empty or unknown language
// renders as plain text, so the source appears literally in the output.
func (h *CodeHighlighter) Highlight(code, language string) (string, error) {
	lexer := resolveLexer(language)
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("%w: highlighting %s: %v", ErrRender, lexer.Config().Name, err)
	}

	var buf strings.Builder
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return "", fmt.Errorf("%w: highlighting %s: %v", ErrRender, lexer.Config().Name, err)
	}
	return buf.String(), nil
}

// ThemeCSS returns the stylesheet for the highlighter's classes. It also
// covers fenced code in markdown cells, which uses the same class names.
func (h *CodeHighlighter) ThemeCSS() (string, error) {
	var buf strings.Builder
	if err := h.formatter.WriteCSS(&buf, h.style); err != nil {
		return "", fmt.Errorf("%w: theme CSS: %v", ErrRender, err)
	}
	return buf.String(), nil
}

func resolveLexer(language string) chroma.Lexer {
	name := strings.ToLower(strings.TrimSpace(language))
	if alias, ok := lexerAliases[name]; ok {
		name = alias
	}
	if name == "" {
		return lexers.Fallback
	}
	if lexer := lexers.Get(name); lexer != nil {
		return lexer
	}
	return lexers.Fallback
}
