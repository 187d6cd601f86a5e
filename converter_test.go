package nb2html

// Notes:
// - Tests Converter with the real parser and exporter on small notebooks
//   written to t.TempDir(), plus mocks to isolate error classification.
// - Unwritable-output tests rely on a missing parent directory rather than
//   permission bits so they also hold when running as root.

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-nb2html/internal/assets"
)

// ---------------------------------------------------------------------------
// Mock Implementations
// ---------------------------------------------------------------------------

type mockParser struct {
	nb    *Notebook
	err   error
	path  string
	calls int
}

func (m *mockParser) Parse(path string, schemaVersion int) (*Notebook, error) {
	m.calls++
	m.path = path
	if m.err != nil {
		return nil, m.err
	}
	return m.nb, nil
}

type mockExporter struct {
	html  string
	err   error
	panic bool
	opts  *ExportOptions
}

func (m *mockExporter) Export(ctx context.Context, nb *Notebook, opts *ExportOptions) (string, *Resources, error) {
	m.opts = opts
	if m.panic {
		panic("boom")
	}
	if m.err != nil {
		return "", nil, m.err
	}
	return m.html, &Resources{Name: opts.NotebookName}, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const helloNotebook = `{
  "nbformat": 4,
  "nbformat_minor": 5,
  "metadata": {},
  "cells": [
    {"cell_type": "markdown", "id": "md", "metadata": {}, "source": "Hello"},
    {"cell_type": "code", "id": "code", "metadata": {}, "source": "1+1", "execution_count": null, "outputs": []}
  ]
}`

func writeNotebook(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hello.ipynb")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

func newTestConverter(t *testing.T, opts ...Option) *Converter {
	t.Helper()
	conv, err := NewConverter(opts...)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	return conv
}

func assertNotExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("%s should not exist, stat error = %v", path, err)
	}
}

// ---------------------------------------------------------------------------
// TestConvertFile - End-to-end conversion
// ---------------------------------------------------------------------------

func TestConvertFile(t *testing.T) {
	t.Parallel()

	t.Run("writes complete page", func(t *testing.T) {
		t.Parallel()

		in := writeNotebook(t, helloNotebook)
		out := filepath.Join(t.TempDir(), "hello.html")

		res, err := newTestConverter(t).ConvertFile(context.Background(), in, out, nil)
		if err != nil {
			t.Fatalf("ConvertFile() error = %v", err)
		}

		written, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("reading output: %v", err)
		}
		if !bytes.Equal(written, res.HTML) {
			t.Error("written file differs from Result.HTML")
		}
		if !bytes.HasPrefix(written, []byte("<!DOCTYPE html>")) {
			t.Errorf("output should start with doctype, got %q", written[:min(40, len(written))])
		}
		for _, want := range []string{"Hello", "1+1"} {
			if !bytes.Contains(written, []byte(want)) {
				t.Errorf("output missing %q", want)
			}
		}
	})

	t.Run("resources describe the notebook", func(t *testing.T) {
		t.Parallel()

		in := writeNotebook(t, helloNotebook)
		out := filepath.Join(t.TempDir(), "hello.html")

		res, err := newTestConverter(t).ConvertFile(context.Background(), in, out, nil)
		if err != nil {
			t.Fatalf("ConvertFile() error = %v", err)
		}
		if res.Resources.Name != "hello" {
			t.Errorf("Resources.Name = %q, want %q", res.Resources.Name, "hello")
		}
		if res.Resources.OutputExtension != ".html" {
			t.Errorf("Resources.OutputExtension = %q, want .html", res.Resources.OutputExtension)
		}
		if res.Resources.Title != "hello" {
			t.Errorf("Resources.Title = %q, want notebook name", res.Resources.Title)
		}
	})

	t.Run("truncates existing output", func(t *testing.T) {
		t.Parallel()

		in := writeNotebook(t, helloNotebook)
		out := filepath.Join(t.TempDir(), "hello.html")
		if err := os.WriteFile(out, bytes.Repeat([]byte("stale "), 100000), 0o600); err != nil {
			t.Fatal(err)
		}

		res, err := newTestConverter(t).ConvertFile(context.Background(), in, out, nil)
		if err != nil {
			t.Fatalf("ConvertFile() error = %v", err)
		}
		written, _ := os.ReadFile(out)
		if !bytes.Equal(written, res.HTML) {
			t.Error("stale bytes remain after conversion")
		}
	})

	t.Run("deterministic output", func(t *testing.T) {
		t.Parallel()

		// No cell ids: generated ids must be stable too.
		in := writeNotebook(t, strings.NewReplacer(`"id": "md", `, "", `"id": "code", `, "").Replace(helloNotebook))
		dir := t.TempDir()
		conv := newTestConverter(t)

		first, err := conv.ConvertFile(context.Background(), in, filepath.Join(dir, "a.html"), nil)
		if err != nil {
			t.Fatalf("first ConvertFile() error = %v", err)
		}
		second, err := conv.ConvertFile(context.Background(), in, filepath.Join(dir, "b.html"), nil)
		if err != nil {
			t.Fatalf("second ConvertFile() error = %v", err)
		}
		if !bytes.Equal(first.HTML, second.HTML) {
			t.Error("two conversions of the same notebook differ")
		}
	})

	t.Run("upgrades version 3", func(t *testing.T) {
		t.Parallel()

		in := writeNotebook(t, `{
  "nbformat": 3, "nbformat_minor": 0, "metadata": {},
  "worksheets": [{"cells": [
    {"cell_type": "heading", "level": 2, "metadata": {}, "source": "Legacy"},
    {"cell_type": "code", "metadata": {}, "input": "print(1)", "prompt_number": 4,
     "outputs": [{"output_type": "stream", "stream": "stdout", "text": "1\n"}]}
  ]}]
}`)
		out := filepath.Join(t.TempDir(), "v3.html")

		res, err := newTestConverter(t).ConvertFile(context.Background(), in, out, nil)
		if err != nil {
			t.Fatalf("ConvertFile() error = %v", err)
		}
		html := string(res.HTML)
		for _, want := range []string{"<h2", "Legacy", "In [4]:"} {
			if !strings.Contains(html, want) {
				t.Errorf("output missing %q", want)
			}
		}
	})

	t.Run("render options are applied", func(t *testing.T) {
		t.Parallel()

		in := writeNotebook(t, helloNotebook)
		out := filepath.Join(t.TempDir(), "hello.html")

		res, err := newTestConverter(t).ConvertFile(context.Background(), in, out, &RenderOptions{
			Title:        "Custom Title",
			ExcludeInput: true,
			CSS:          ".marker-rule { color: red; }",
		})
		if err != nil {
			t.Fatalf("ConvertFile() error = %v", err)
		}
		html := string(res.HTML)
		if !strings.Contains(html, "<title>Custom Title</title>") {
			t.Error("title option not applied")
		}
		if !strings.Contains(html, ".marker-rule") {
			t.Error("extra CSS not injected")
		}
		if strings.Contains(html, "1+1") {
			t.Error("input should be excluded")
		}
	})
}

// ---------------------------------------------------------------------------
// TestConvertFile_Errors - Failures never touch the output
// ---------------------------------------------------------------------------

func TestConvertFile_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		notebook string // empty = input file missing
		wantErr  []error
	}{
		{
			name:    "missing input",
			wantErr: []error{ErrParse, os.ErrNotExist},
		},
		{
			name:     "invalid JSON",
			notebook: `{"nbformat": 4,`,
			wantErr:  []error{ErrParse, ErrInvalidNotebook},
		},
		{
			name:     "unsupported version",
			notebook: `{"nbformat": 5, "nbformat_minor": 0, "metadata": {}, "cells": []}`,
			wantErr:  []error{ErrParse, ErrUnsupportedVersion},
		},
		{
			name:     "unsupported cell type",
			notebook: `{"nbformat": 4, "nbformat_minor": 5, "metadata": {}, "cells": [{"cell_type": "widget", "id": "w", "metadata": {}, "source": ""}]}`,
			wantErr:  []error{ErrRender, ErrUnsupportedCellType},
		},
		{
			name: "unsupported output type",
			notebook: `{"nbformat": 4, "nbformat_minor": 5, "metadata": {}, "cells": [
  {"cell_type": "code", "id": "c", "metadata": {}, "source": "x", "execution_count": 1,
   "outputs": [{"output_type": "hologram"}]}]}`,
			wantErr: []error{ErrRender, ErrUnsupportedOutputType},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in := filepath.Join(t.TempDir(), "missing.ipynb")
			if tt.notebook != "" {
				in = writeNotebook(t, tt.notebook)
			}
			out := filepath.Join(t.TempDir(), "out.html")

			res, err := newTestConverter(t).ConvertFile(context.Background(), in, out, nil)
			if res != nil {
				t.Error("result should be nil on error")
			}
			for _, want := range tt.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("error = %v, want %v", err, want)
				}
			}
			if errors.Is(err, ErrWrite) {
				t.Error("parse or render failure must not be reported as ErrWrite")
			}
			assertNotExist(t, out)
		})
	}
}

func TestConvertFile_UnwritableOutput(t *testing.T) {
	t.Parallel()

	in := writeNotebook(t, helloNotebook)
	out := filepath.Join(t.TempDir(), "no-such-dir", "out.html")

	_, err := newTestConverter(t).ConvertFile(context.Background(), in, out, nil)
	if !errors.Is(err, ErrWrite) {
		t.Fatalf("error = %v, want ErrWrite", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, should wrap the OS error", err)
	}
	if errors.Is(err, ErrParse) || errors.Is(err, ErrRender) {
		t.Errorf("error = %v, should only be a write failure", err)
	}
}

func TestConvertFile_PreservesExistingOutputOnFailure(t *testing.T) {
	t.Parallel()

	in := writeNotebook(t, `{"nbformat": 4, "nbformat_minor": 5, "metadata": {}, "cells": [{"cell_type": "widget", "id": "w", "metadata": {}, "source": ""}]}`)
	out := filepath.Join(t.TempDir(), "out.html")
	if err := os.WriteFile(out, []byte("previous"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := newTestConverter(t).ConvertFile(context.Background(), in, out, nil); !errors.Is(err, ErrRender) {
		t.Fatalf("error = %v, want ErrRender", err)
	}

	got, _ := os.ReadFile(out)
	if string(got) != "previous" {
		t.Errorf("output modified on render failure: %q", got)
	}
}

func TestConvertFile_CanceledContext(t *testing.T) {
	t.Parallel()

	in := writeNotebook(t, helloNotebook)
	out := filepath.Join(t.TempDir(), "out.html")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestConverter(t).ConvertFile(ctx, in, out, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	assertNotExist(t, out)
}

// ---------------------------------------------------------------------------
// TestConverter_Collaborators - Error classification with mocks
// ---------------------------------------------------------------------------

func TestConverter_Collaborators(t *testing.T) {
	t.Parallel()

	t.Run("parser error is wrapped as ErrParse", func(t *testing.T) {
		t.Parallel()

		parser := &mockParser{err: errors.New("disk on fire")}
		conv := newTestConverter(t, WithParser(parser), WithExporter(&mockExporter{}))

		_, err := conv.ConvertFile(context.Background(), "in.ipynb", filepath.Join(t.TempDir(), "o.html"), nil)
		if !errors.Is(err, ErrParse) {
			t.Errorf("error = %v, want ErrParse", err)
		}
		if parser.path != "in.ipynb" {
			t.Errorf("parser path = %q, want %q", parser.path, "in.ipynb")
		}
	})

	t.Run("exporter error is wrapped as ErrRender", func(t *testing.T) {
		t.Parallel()

		conv := newTestConverter(t,
			WithParser(&mockParser{nb: &Notebook{NBFormat: 4}}),
			WithExporter(&mockExporter{err: errors.New("bad cell")}),
		)

		out := filepath.Join(t.TempDir(), "o.html")
		_, err := conv.ConvertFile(context.Background(), "in.ipynb", out, nil)
		if !errors.Is(err, ErrRender) {
			t.Errorf("error = %v, want ErrRender", err)
		}
		assertNotExist(t, out)
	})

	t.Run("exporter asset error maps to public sentinel", func(t *testing.T) {
		t.Parallel()

		conv := newTestConverter(t,
			WithParser(&mockParser{nb: &Notebook{NBFormat: 4}}),
			WithExporter(&mockExporter{err: assets.ErrTemplateNotFound}),
		)

		_, err := conv.ConvertFile(context.Background(), "in.ipynb", filepath.Join(t.TempDir(), "o.html"), nil)
		if !errors.Is(err, ErrTemplateNotFound) {
			t.Errorf("error = %v, want ErrTemplateNotFound", err)
		}
	})

	t.Run("panic is recovered", func(t *testing.T) {
		t.Parallel()

		conv := newTestConverter(t,
			WithParser(&mockParser{nb: &Notebook{NBFormat: 4}}),
			WithExporter(&mockExporter{panic: true}),
		)

		_, err := conv.ConvertFile(context.Background(), "in.ipynb", filepath.Join(t.TempDir(), "o.html"), nil)
		if err == nil || !strings.Contains(err.Error(), "internal error") {
			t.Errorf("error = %v, want recovered internal error", err)
		}
	})

	t.Run("defaults name and source dir from input path", func(t *testing.T) {
		t.Parallel()

		exporter := &mockExporter{html: "<!DOCTYPE html>"}
		conv := newTestConverter(t, WithParser(&mockParser{nb: &Notebook{NBFormat: 4}}), WithExporter(exporter))

		in := filepath.Join("notebooks", "sales.v2.ipynb")
		if _, err := conv.ConvertFile(context.Background(), in, filepath.Join(t.TempDir(), "o.html"), nil); err != nil {
			t.Fatalf("ConvertFile() error = %v", err)
		}
		if exporter.opts.NotebookName != "sales.v2" {
			t.Errorf("NotebookName = %q, want %q", exporter.opts.NotebookName, "sales.v2")
		}
		if exporter.opts.SourceDir != "notebooks" {
			t.Errorf("SourceDir = %q, want %q", exporter.opts.SourceDir, "notebooks")
		}
	})

	t.Run("explicit name wins", func(t *testing.T) {
		t.Parallel()

		exporter := &mockExporter{html: "<!DOCTYPE html>"}
		conv := newTestConverter(t, WithParser(&mockParser{nb: &Notebook{NBFormat: 4}}), WithExporter(exporter))

		_, err := conv.ConvertFile(context.Background(), "x.ipynb", filepath.Join(t.TempDir(), "o.html"), &RenderOptions{NotebookName: "Report"})
		if err != nil {
			t.Fatalf("ConvertFile() error = %v", err)
		}
		if exporter.opts.NotebookName != "Report" {
			t.Errorf("NotebookName = %q, want %q", exporter.opts.NotebookName, "Report")
		}
	})
}

// ---------------------------------------------------------------------------
// TestRender - Rendering a parsed notebook
// ---------------------------------------------------------------------------

func TestRender(t *testing.T) {
	t.Parallel()

	nb, err := ReadNotebook(strings.NewReader(helloNotebook))
	if err != nil {
		t.Fatalf("ReadNotebook() error = %v", err)
	}

	res, err := newTestConverter(t).Render(context.Background(), nb, &RenderOptions{NotebookName: "hello"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.Contains(res.HTML, []byte("Hello")) {
		t.Error("rendered HTML missing markdown content")
	}

	if _, err := newTestConverter(t).Render(context.Background(), nil, nil); !errors.Is(err, ErrRender) {
		t.Errorf("Render(nil) error = %v, want ErrRender", err)
	}
}

func TestParseNotebook(t *testing.T) {
	t.Parallel()

	nb, err := ParseNotebook(writeNotebook(t, helloNotebook))
	if err != nil {
		t.Fatalf("ParseNotebook() error = %v", err)
	}
	if len(nb.Cells) != 2 || nb.NBFormat != SchemaVersion {
		t.Errorf("ParseNotebook() = %d cells, nbformat %d", len(nb.Cells), nb.NBFormat)
	}

	if _, err := ParseNotebook(filepath.Join(t.TempDir(), "none.ipynb")); !errors.Is(err, ErrParse) {
		t.Errorf("ParseNotebook(missing) error = %v, want ErrParse", err)
	}
}

// ---------------------------------------------------------------------------
// TestNewConverter - Options and style resolution
// ---------------------------------------------------------------------------

func TestNewConverter_Style(t *testing.T) {
	t.Parallel()

	cssFile := filepath.Join(t.TempDir(), "custom.css")
	if err := os.WriteFile(cssFile, []byte(".from-file { color: teal; }"), 0o600); err != nil {
		t.Fatal(err)
	}

	darkCSS, err := assets.NewEmbeddedLoader().LoadStyle("dark")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		style   string
		want    string
		wantErr error
	}{
		{name: "style name", style: "dark", want: darkCSS},
		{name: "style file", style: cssFile, want: ".from-file"},
		{name: "css content", style: ".inline-rule { margin: 0; }", want: ".inline-rule"},
		{name: "unknown name", style: "nonexistent", wantErr: ErrStyleNotFound},
		{name: "missing file", style: filepath.Join(t.TempDir(), "none.css"), wantErr: ErrStyleNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv, err := NewConverter(WithStyle(tt.style))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewConverter() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewConverter() error = %v", err)
			}

			nb, err := ReadNotebook(strings.NewReader(helloNotebook))
			if err != nil {
				t.Fatal(err)
			}
			res, err := conv.Render(context.Background(), nb, nil)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if !strings.Contains(res.Resources.InlinedCSS, tt.want) {
				t.Errorf("inlined CSS missing %q", tt.want)
			}
		})
	}
}

func TestNewConverter_StyleReachesExporter(t *testing.T) {
	t.Parallel()

	cssFile := filepath.Join(t.TempDir(), "custom.css")
	if err := os.WriteFile(cssFile, []byte(".from-file { color: teal; }"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		style     string
		wantStyle string
	}{
		{name: "no style", style: "", wantStyle: ""},
		{name: "style name", style: "minimal", wantStyle: "minimal"},
		// Path and CSS content are served by an override loader, not by name
		{name: "style file", style: cssFile, wantStyle: ""},
		{name: "css content", style: "p { margin: 0; }", wantStyle: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exp := &mockExporter{html: "<!DOCTYPE html>"}
			opts := []Option{WithExporter(exp)}
			if tt.style != "" {
				opts = append(opts, WithStyle(tt.style))
			}
			conv := newTestConverter(t, opts...)

			nb, err := ReadNotebook(strings.NewReader(helloNotebook))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := conv.Render(context.Background(), nb, &RenderOptions{Template: "report"}); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if exp.opts.Style != tt.wantStyle {
				t.Errorf("ExportOptions.Style = %q, want %q", exp.opts.Style, tt.wantStyle)
			}
			if exp.opts.Template != "report" {
				t.Errorf("ExportOptions.Template = %q, want %q", exp.opts.Template, "report")
			}
		})
	}
}

func TestRender_Template(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "templates"), 0o755); err != nil {
		t.Fatal(err)
	}
	custom := "<!DOCTYPE html>\n<title>{{.Title}}</title>\n<p class=\"report-page\">{{len .Cells}} cells</p>\n"
	if err := os.WriteFile(filepath.Join(dir, "templates", "report.html"), []byte(custom), 0o600); err != nil {
		t.Fatal(err)
	}
	conv := newTestConverter(t, WithAssetPath(dir))

	nb, err := ReadNotebook(strings.NewReader(helloNotebook))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("custom template", func(t *testing.T) {
		t.Parallel()

		res, err := conv.Render(context.Background(), nb, &RenderOptions{Template: "report"})
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if !strings.Contains(string(res.HTML), `<p class="report-page">2 cells</p>`) {
			t.Errorf("custom template not used:\n%s", res.HTML)
		}
	})

	t.Run("missing template", func(t *testing.T) {
		t.Parallel()

		_, err := conv.Render(context.Background(), nb, &RenderOptions{Template: "nope"})
		if !errors.Is(err, ErrTemplateNotFound) {
			t.Errorf("Render() error = %v, want ErrTemplateNotFound", err)
		}
	})
}

func TestNewConverter_AssetPath(t *testing.T) {
	t.Parallel()

	t.Run("invalid path", func(t *testing.T) {
		t.Parallel()

		_, err := NewConverter(WithAssetPath(filepath.Join(t.TempDir(), "none")))
		if !errors.Is(err, ErrInvalidAssetPath) {
			t.Errorf("error = %v, want ErrInvalidAssetPath", err)
		}
	})

	t.Run("custom style with embedded template fallback", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		if err := os.MkdirAll(filepath.Join(dir, "styles"), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "styles", "brand.css"), []byte(".brand { color: navy; }"), 0o600); err != nil {
			t.Fatal(err)
		}

		conv := newTestConverter(t, WithAssetPath(dir), WithStyle("brand"))
		nb, err := ReadNotebook(strings.NewReader(helloNotebook))
		if err != nil {
			t.Fatal(err)
		}
		res, err := conv.Render(context.Background(), nb, nil)
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if !strings.Contains(string(res.HTML), ".brand") {
			t.Error("custom style not injected")
		}
	})
}

func TestWithTimeout_PanicsOnNonPositive(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("WithTimeout(0) should panic")
		}
	}()
	WithTimeout(0)
}
