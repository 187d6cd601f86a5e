package nb2html

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alnah/go-nb2html/internal/assets"
	"github.com/alnah/go-nb2html/internal/fileutil"
	"github.com/alnah/go-nb2html/internal/notebook"
	"github.com/alnah/go-nb2html/internal/pipeline"
)

// Compile-time interface implementation checks.
// These ensure implementations satisfy their interfaces at compile time,
// catching signature mismatches before runtime.
var (
	_ NotebookParser     = fileParser{}
	_ HTMLExporter       = (*pipeline.Exporter)(nil)
	_ AssetLoader        = (*assets.AssetResolver)(nil)
	_ assets.AssetLoader = (*styleOverride)(nil)
)

// Converter orchestrates the notebook-to-HTML pipeline: parse, render, write.
// Create with NewConverter and reuse it; a Converter holds no per-notebook
// state and is safe for concurrent use if its parser and exporter are.
type Converter struct {
	cfg               converterConfig
	assetLoader       assets.AssetLoader
	publicAssetLoader AssetLoader // from WithAssetLoader
	parser            NotebookParser
	exporter          HTMLExporter
}

// fileParser is the default NotebookParser.
type fileParser struct{}

func (fileParser) Parse(path string, schemaVersion int) (*Notebook, error) {
	return notebook.ReadFile(path, schemaVersion)
}

// NewConverter creates a Converter with default configuration.
// Use options to customize behavior (e.g., WithTimeout, WithStyle, WithAssetPath).
// Returns error if the asset path is invalid or the style cannot be resolved.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg:         converterConfig{timeout: DefaultTimeout},
		assetLoader: assets.NewEmbeddedLoader(),
		parser:      fileParser{},
	}

	for _, opt := range opts {
		opt(c)
	}

	// Handle WithAssetPath: resolve to internal loader
	if c.cfg.assetPath != "" {
		resolver, err := assets.NewAssetResolver(c.cfg.assetPath)
		if err != nil {
			return nil, convertAssetError(err)
		}
		c.assetLoader = resolver
	}

	// Handle WithAssetLoader (public interface): same method set as internal
	if c.publicAssetLoader != nil {
		c.assetLoader = c.publicAssetLoader
	}

	// Resolve style input (name, path, or CSS content) to CSS content
	if err := c.resolveStyle(); err != nil {
		return nil, err
	}

	if c.exporter == nil {
		loader := c.assetLoader
		if c.cfg.styleInput != "" && c.cfg.styleName == "" {
			loader = &styleOverride{AssetLoader: c.assetLoader, css: c.cfg.resolvedStyle}
		}
		c.exporter = pipeline.NewExporter(loader)
	}

	return c, nil
}

// ConvertFile parses the notebook at inputPath, renders it, and writes the
// HTML to outputPath (created or truncated).
//
// Parsing and rendering complete before outputPath is touched, so a parse or
// render failure never creates or modifies the output file. Errors match
// ErrParse, ErrRender, or ErrWrite. A failed write may leave a truncated file.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (c *Converter) ConvertFile(ctx context.Context, inputPath, outputPath string, opts *RenderOptions) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
	defer cancel()

	nb, err := c.parse(ctx, inputPath)
	if err != nil {
		return nil, err
	}

	ro := RenderOptions{}
	if opts != nil {
		ro = *opts
	}
	if ro.NotebookName == "" {
		ro.NotebookName = fileutil.BaseName(inputPath)
	}
	if ro.SourceDir == "" {
		ro.SourceDir = filepath.Dir(inputPath)
	}

	res, err := c.render(ctx, nb, &ro)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := fileutil.WriteFile(outputPath, res.HTML); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	return res, nil
}

// Render renders an already parsed notebook. The notebook is not modified.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (c *Converter) Render(ctx context.Context, nb *Notebook, opts *RenderOptions) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
	defer cancel()

	return c.render(ctx, nb, opts)
}

func (c *Converter) parse(ctx context.Context, path string) (*Notebook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nb, err := c.parser.Parse(path, SchemaVersion)
	if err != nil {
		if !errors.Is(err, ErrParse) {
			err = fmt.Errorf("%w: %w", ErrParse, err)
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nb, nil
}

func (c *Converter) render(ctx context.Context, nb *Notebook, opts *RenderOptions) (*Result, error) {
	if nb == nil {
		return nil, fmt.Errorf("%w: nil notebook", ErrRender)
	}
	eo := toExportOptions(opts)
	eo.Style = c.cfg.styleName
	page, resources, err := c.exporter.Export(ctx, nb, eo)
	if err != nil {
		return nil, renderError(err)
	}
	return &Result{HTML: []byte(page), Resources: resources}, nil
}

// renderError classifies an exporter error. Cancellation and asset errors
// pass through; anything else is reported as ErrRender.
func renderError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isAssetError(err) {
		return convertAssetError(err)
	}
	if errors.Is(err, ErrRender) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRender, err)
}

// resolveStyle resolves the style input (name, path, or CSS content) to CSS content.
// Called during NewConverter() after options are applied and asset loader is configured.
func (c *Converter) resolveStyle() error {
	input := c.cfg.styleInput
	if input == "" {
		return nil // exporter loads the default style
	}

	// File path? (contains / or \)
	if fileutil.IsFilePath(input) {
		content, err := os.ReadFile(input) // #nosec G304 -- user-provided path
		if err != nil {
			return fmt.Errorf("%w: loading style file %q: %w", ErrStyleNotFound, input, err)
		}
		c.cfg.resolvedStyle = string(content)
		return nil
	}

	// CSS content? (contains {)
	if fileutil.IsCSS(input) {
		c.cfg.resolvedStyle = input
		return nil
	}

	// Style name -> validated now, loaded by the exporter per render
	if _, err := c.assetLoader.LoadStyle(input); err != nil {
		return fmt.Errorf("loading style %q: %w", input, convertAssetError(err))
	}
	c.cfg.styleName = input
	return nil
}

// ParseNotebook reads and parses the notebook at path under SchemaVersion.
// Every error matches ErrParse.
func ParseNotebook(path string) (*Notebook, error) {
	return notebook.ReadFile(path, SchemaVersion)
}

// ReadNotebook parses a notebook from r under SchemaVersion.
// Every error matches ErrParse.
func ReadNotebook(r io.Reader) (*Notebook, error) {
	return notebook.Read(r, SchemaVersion)
}
