package nb2html

import (
	"context"
	"time"

	"github.com/alnah/go-nb2html/internal/notebook"
	"github.com/alnah/go-nb2html/internal/pipeline"
)

// SchemaVersion is the nbformat major version notebooks are parsed into.
const SchemaVersion = notebook.CurrentMajor

// DefaultTimeout is used when no timeout is specified.
const DefaultTimeout = 30 * time.Second

// Notebook model, re-exported from the parser.
type (
	Notebook     = notebook.Notebook
	Metadata     = notebook.Metadata
	Cell         = notebook.Cell
	CellMetadata = notebook.CellMetadata
	Output       = notebook.Output
	MimeBundle   = notebook.MimeBundle
)

// ExportOptions and Resources are the exporter's input and side output.
type (
	ExportOptions = pipeline.ExportOptions
	Resources     = pipeline.Resources
)

// NotebookParser reads a notebook document from path and converts it to
// schemaVersion. Errors should wrap ErrParse.
type NotebookParser interface {
	Parse(path string, schemaVersion int) (*Notebook, error)
}

// HTMLExporter renders a parsed notebook to a complete HTML page.
// Implementations must not modify nb. Errors should wrap ErrRender.
type HTMLExporter interface {
	Export(ctx context.Context, nb *Notebook, opts *ExportOptions) (string, *Resources, error)
}

// RenderOptions controls what a conversion renders. The zero value renders
// every cell with prompts, highlighting, and MathJax.
type RenderOptions struct {
	Title          string // Overrides metadata title, file name, and first H1
	Template       string // Page template name (empty = "notebook")
	CSS            string // Appended after the style and highlighting CSS
	HighlightStyle string // Chroma style for code (empty = "github")

	// NotebookName and SourceDir default to the input file's base name and
	// directory in ConvertFile.
	NotebookName string
	SourceDir    string

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

	Sanitize             bool // Drop raw HTML and JavaScript outputs
	EmbedImages          bool // Inline relative local images under SourceDir
	ClearExecutionCounts bool
	DisableMathJax       bool
	MathJaxURL           string // Empty = default CDN
}

// Result is the outcome of one conversion.
type Result struct {
	HTML      []byte
	Resources *Resources
}

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	timeout       time.Duration
	styleInput    string // name, path, or CSS content from WithStyle
	styleName     string // set when styleInput names a loadable style
	resolvedStyle string // CSS content when styleInput is a path or CSS
	assetPath     string
}

// WithTimeout sets the timeout applied to each conversion.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("nb2html: WithTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timeout = d
	}
}

// WithStyle sets the page style. The value can be a style name resolved by
// the asset loader ("dark"), a CSS file path ("./custom.css"), or CSS
// content ("body { ... }").
func WithStyle(style string) Option {
	return func(c *Converter) {
		c.cfg.styleInput = style
	}
}

// WithAssetPath loads styles and templates from basePath, falling back to
// the embedded assets.
func WithAssetPath(basePath string) Option {
	return func(c *Converter) {
		c.cfg.assetPath = basePath
	}
}

// WithAssetLoader sets a custom asset loader. It takes precedence over
// WithAssetPath.
func WithAssetLoader(loader AssetLoader) Option {
	return func(c *Converter) {
		c.publicAssetLoader = loader
	}
}

// WithParser replaces the notebook parser.
func WithParser(p NotebookParser) Option {
	return func(c *Converter) {
		c.parser = p
	}
}

// WithExporter replaces the HTML exporter. Style and asset options do not
// apply to a custom exporter.
func WithExporter(e HTMLExporter) Option {
	return func(c *Converter) {
		c.exporter = e
	}
}

// toExportOptions converts the public RenderOptions to exporter options.
func toExportOptions(o *RenderOptions) *ExportOptions {
	if o == nil {
		return &ExportOptions{}
	}
	return &ExportOptions{
		Template:             o.Template,
		HighlightStyle:       o.HighlightStyle,
		ExtraCSS:             o.CSS,
		Title:                o.Title,
		NotebookName:         o.NotebookName,
		SourceDir:            o.SourceDir,
		ExcludeInput:         o.ExcludeInput,
		ExcludeOutput:        o.ExcludeOutput,
		ExcludeInputPrompt:   o.ExcludeInputPrompt,
		ExcludeOutputPrompt:  o.ExcludeOutputPrompt,
		ExcludeMarkdown:      o.ExcludeMarkdown,
		ExcludeRaw:           o.ExcludeRaw,
		ExcludeCode:          o.ExcludeCode,
		RemoveCellTags:       o.RemoveCellTags,
		RemoveInputTags:      o.RemoveInputTags,
		RemoveOutputTags:     o.RemoveOutputTags,
		Sanitize:             o.Sanitize,
		EmbedImages:          o.EmbedImages,
		ClearExecutionCounts: o.ClearExecutionCounts,
		DisableMathJax:       o.DisableMathJax,
		MathJaxURL:           o.MathJaxURL,
	}
}
