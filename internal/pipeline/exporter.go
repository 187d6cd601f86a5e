package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"

	"github.com/alnah/go-nb2html/internal/assets"
	"github.com/alnah/go-nb2html/internal/notebook"
)

// DefaultMathJaxURL is the MathJax bundle referenced by pages containing math.
const DefaultMathJaxURL = "https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-chtml-full.js"

// DefaultTitle is used when no other title source is available.
const DefaultTitle = "Notebook"

// OutputExtension is the file extension of exported pages.
const OutputExtension = ".html"

// ExportOptions controls what the exporter renders and how.
// The zero value renders everything with the default style.
type ExportOptions struct {
	Style          string // page style name, default "default"
	Template       string // page template name, default "notebook"
	HighlightStyle string // Chroma style name, default "github"
	ExtraCSS       string // appended after the style and theme CSS

	Title        string // overrides every other title source
	NotebookName string // input file name without extension
	SourceDir    string // directory of the input notebook

	ExcludeInput        bool
	ExcludeOutput       bool
	ExcludeInputPrompt  bool
	ExcludeOutputPrompt bool
	ExcludeMarkdown     bool
	ExcludeRaw          bool
	ExcludeCode         bool

	RemoveCellTags   []string
	RemoveInputTags  []string
	RemoveOutputTags []string

	Sanitize             bool // drop raw HTML and JavaScript
	EmbedImages          bool // inline relative local images under SourceDir
	ClearExecutionCounts bool
	DisableMathJax       bool
	MathJaxURL           string
}

// Resources is the side data produced alongside the page.
type Resources struct {
	Name            string
	Title           string
	Language        string
	OutputExtension string
	InlinedCSS      string
	Outputs         map[string][]byte // extracted binary outputs by file name
	Warnings        []string          // non-fatal problems, in document order
	MathJax         bool              // the page loads MathJax
}

// Exporter renders notebooks to standalone HTML pages.
type Exporter struct {
	loader assets.AssetLoader
	css    CSSInjector
}

// NewExporter creates an Exporter that loads styles and page templates
// from loader.
func NewExporter(loader assets.AssetLoader) *Exporter {
	return &Exporter{loader: loader, css: &CSSInjection{}}
}

// pageData is the root value passed to the page template.
type pageData struct {
	Title      string
	MathJax    bool
	MathJaxURL string
	Language   string
	Cells      []cellView
}

// cellView is one rendered cell as seen by the page template.
type cellView struct {
	Type            string
	ID              string
	Tags            []string
	ShowInput       bool
	ShowInputPrompt bool
	InputPrompt     string
	Input           template.HTML
	Outputs         []outputView
}

// exportRun holds the state of a single Export call.
type exportRun struct {
	opts      *ExportOptions
	nb        *notebook.Notebook
	md        HTMLConverter
	highlight *CodeHighlighter
	res       *Resources
	usesMath  bool
	heading   string
}

// Export renders nb into a complete HTML page. The notebook is not
// modified. Unsupported cell or output types fail with ErrRender.
func (e *Exporter) Export(ctx context.Context, nb *notebook.Notebook, opts *ExportOptions) (string, *Resources, error) {
	if nb == nil {
		return "", nil, fmt.Errorf("%w: nil notebook", ErrRender)
	}
	if opts == nil {
		opts = &ExportOptions{}
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	run := &exportRun{
		opts:      opts,
		nb:        nb,
		md:        NewGoldmarkConverter(highlightStyle(opts), opts.Sanitize),
		highlight: NewCodeHighlighter(highlightStyle(opts)),
		res: &Resources{
			Name:            opts.NotebookName,
			Language:        nb.Language(),
			OutputExtension: OutputExtension,
			Outputs:         map[string][]byte{},
		},
	}

	cells, err := run.renderCells(ctx)
	if err != nil {
		return "", nil, err
	}

	css, err := e.pageCSS(opts, run.highlight)
	if err != nil {
		return "", nil, err
	}

	data := pageData{
		Title:    run.title(),
		MathJax:  run.usesMath && !opts.DisableMathJax,
		Language: run.res.Language,
		Cells:    cells,
	}
	if data.MathJax {
		data.MathJaxURL = opts.MathJaxURL
		if data.MathJaxURL == "" {
			data.MathJaxURL = DefaultMathJaxURL
		}
	}

	page, err := e.renderPage(ctx, opts, &data)
	if err != nil {
		return "", nil, err
	}
	page = e.css.InjectCSS(ctx, page, css)
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	run.res.Title = data.Title
	run.res.InlinedCSS = css
	run.res.MathJax = data.MathJax
	return page, run.res, nil
}

func highlightStyle(opts *ExportOptions) string {
	if opts.HighlightStyle != "" {
		return opts.HighlightStyle
	}
	return DefaultHighlightStyle
}

// pageCSS concatenates the page style, the highlighting theme, and any
// extra CSS.
func (e *Exporter) pageCSS(opts *ExportOptions, h *CodeHighlighter) (string, error) {
	styleName := opts.Style
	if styleName == "" {
		styleName = assets.DefaultStyleName
	}
	styleCSS, err := e.loader.LoadStyle(styleName)
	if err != nil {
		return "", fmt.Errorf("loading style %q: %w", styleName, err)
	}

	themeCSS, err := h.ThemeCSS()
	if err != nil {
		return "", err
	}

	parts := []string{styleCSS, themeCSS}
	if opts.ExtraCSS != "" {
		parts = append(parts, opts.ExtraCSS)
	}
	return strings.Join(parts, "\n"), nil
}

func (e *Exporter) renderPage(ctx context.Context, opts *ExportOptions, data *pageData) (string, error) {
	name := opts.Template
	if name == "" {
		name = assets.DefaultTemplateName
	}
	content, err := e.loader.LoadTemplate(name)
	if err != nil {
		return "", fmt.Errorf("loading template %q: %w", name, err)
	}

	tmpl, err := template.New(name).Funcs(template.FuncMap{"join": strings.Join}).Parse(content)
	if err != nil {
		return "", fmt.Errorf("%w: %w: parsing %q: %v", ErrRender, ErrTemplateRender, name, err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %w: %v", ErrRender, ErrTemplateRender, err)
	}
	return buf.String(), nil
}

// title picks the first non-empty of: explicit option, notebook metadata,
// notebook name, first markdown H1, DefaultTitle.
func (r *exportRun) title() string {
	for _, candidate := range []string{r.opts.Title, r.nb.Metadata.Title, r.opts.NotebookName, r.heading} {
		if t := strings.TrimSpace(candidate); t != "" {
			return t
		}
	}
	return DefaultTitle
}

func (r *exportRun) renderCells(ctx context.Context) ([]cellView, error) {
	views := make([]cellView, 0, len(r.nb.Cells))
	for i := range r.nb.Cells {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cell := &r.nb.Cells[i]
		view, err := r.renderCell(ctx, i, cell)
		if err != nil {
			return nil, err
		}
		if view != nil {
			views = append(views, *view)
		}
	}
	return views, nil
}

// renderCell renders one cell. A nil view with a nil error means the cell
// is hidden by the options.
func (r *exportRun) renderCell(ctx context.Context, idx int, cell *notebook.Cell) (*cellView, error) {
	switch cell.CellType {
	case notebook.CellTypeCode, notebook.CellTypeMarkdown, notebook.CellTypeRaw:
	default:
		return nil, fmt.Errorf("%w: %w: cell %d has type %q", ErrRender, ErrUnsupportedCellType, idx, cell.CellType)
	}

	if hasAnyTag(cell.Metadata, r.opts.RemoveCellTags) {
		return nil, nil
	}

	view := &cellView{
		Type: cell.CellType,
		ID:   cell.ID,
		Tags: cell.Metadata.Tags,
	}

	switch cell.CellType {
	case notebook.CellTypeCode:
		if r.opts.ExcludeCode {
			return nil, nil
		}
		return r.renderCodeCell(ctx, idx, cell, view)
	case notebook.CellTypeMarkdown:
		if r.opts.ExcludeMarkdown || hasAnyTag(cell.Metadata, r.opts.RemoveInputTags) {
			return nil, nil
		}
		fragment, err := r.markdown(ctx, cell.Source.String(), cell.Attachments)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", idx, err)
		}
		if r.heading == "" {
			r.heading = FirstHeading(fragment)
		}
		view.ShowInput = true
		view.Input = template.HTML(fragment)
		return view, nil
	default:
		if r.opts.ExcludeRaw || hasAnyTag(cell.Metadata, r.opts.RemoveInputTags) {
			return nil, nil
		}
		switch cell.Metadata.RawFormat() {
		case "", "text/html":
		default:
			return nil, nil
		}
		view.ShowInput = true
		if r.opts.Sanitize {
			view.Input = template.HTML("<pre>" + html.EscapeString(cell.Source.String()) + "</pre>")
		} else {
			view.Input = template.HTML(cell.Source.String())
		}
		return view, nil
	}
}

func (r *exportRun) renderCodeCell(ctx context.Context, idx int, cell *notebook.Cell, view *cellView) (*cellView, error) {
	sourceHidden := cell.Metadata.Jupyter != nil && cell.Metadata.Jupyter.SourceHidden
	outputsHidden := cell.Metadata.Jupyter != nil && cell.Metadata.Jupyter.OutputsHidden

	if !r.opts.ExcludeInput && !sourceHidden && !hasAnyTag(cell.Metadata, r.opts.RemoveInputTags) {
		code, err := r.highlight.Highlight(cell.Source.String(), r.nb.LexerName())
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", idx, err)
		}
		view.ShowInput = true
		view.ShowInputPrompt = !r.opts.ExcludeInputPrompt
		view.InputPrompt = r.inputPrompt(cell.ExecutionCount)
		view.Input = template.HTML(code)
	}

	if !r.opts.ExcludeOutput && !outputsHidden && !hasAnyTag(cell.Metadata, r.opts.RemoveOutputTags) {
		for outIdx, out := range CoalesceStreams(cell.Outputs) {
			ov, err := r.renderOutput(ctx, idx, outIdx, out)
			if err != nil {
				return nil, err
			}
			if ov != nil {
				view.Outputs = append(view.Outputs, *ov)
			}
		}
	} else {
		// Unsupported output types still fail when outputs are hidden.
		for outIdx, out := range cell.Outputs {
			if !knownOutputType(out.OutputType) {
				return nil, fmt.Errorf("%w: %w: cell %d output %d has type %q",
					ErrRender, ErrUnsupportedOutputType, idx, outIdx, out.OutputType)
			}
		}
	}

	if !view.ShowInput && len(view.Outputs) == 0 {
		return nil, nil
	}
	return view, nil
}

// markdown renders markdown source to an HTML fragment, resolving math
// and images.
func (r *exportRun) markdown(ctx context.Context, source string, attachments map[string]notebook.MimeBundle) (string, error) {
	prepared, spans := PreprocessMarkdown(ctx, source)
	fragment, err := r.md.ToHTML(ctx, prepared)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %w", ErrRender, err)
	}
	if len(spans) > 0 {
		r.usesMath = true
		fragment = RestoreMath(fragment, spans)
	}

	src := ImageSources{Attachments: attachments}
	if r.opts.EmbedImages {
		src.SourceDir = r.opts.SourceDir
	}
	fragment, warnings, err := RewriteImageSources(fragment, src)
	if err != nil {
		return "", fmt.Errorf("%w: rewriting images: %v", ErrRender, err)
	}
	for _, w := range warnings {
		r.warnf("%s", w)
	}
	return fragment, nil
}

func (r *exportRun) inputPrompt(count *int) string {
	if count == nil || r.opts.ClearExecutionCounts {
		return "In [ ]:"
	}
	return "In [" + strconv.Itoa(*count) + "]:"
}

// prompt returns an output prompt, or "" when the count is unknown,
// cleared, or prompts are excluded.
func (r *exportRun) prompt(label string, count *int, excluded bool) string {
	if excluded || count == nil || r.opts.ClearExecutionCounts {
		return ""
	}
	return label + "[" + strconv.Itoa(*count) + "]:"
}

func (r *exportRun) warnf(format string, args ...any) {
	r.res.Warnings = append(r.res.Warnings, fmt.Sprintf(format, args...))
}

func knownOutputType(t string) bool {
	switch t {
	case notebook.OutputStream, notebook.OutputDisplayData, notebook.OutputExecuteResult, notebook.OutputError:
		return true
	}
	return false
}

func hasAnyTag(m notebook.CellMetadata, tags []string) bool {
	for _, tag := range tags {
		if m.HasTag(tag) {
			return true
		}
	}
	return false
}
