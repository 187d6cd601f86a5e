package notebook_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/alnah/go-nb2html/internal/notebook"
)

const minimalV4 = `{
 "nbformat": 4,
 "nbformat_minor": 5,
 "metadata": {
  "kernelspec": {"name": "python3", "display_name": "Python 3", "language": "python"},
  "language_info": {"name": "python", "pygments_lexer": "ipython3", "codemirror_mode": {"name": "ipython", "version": 3}},
  "title": "Demo"
 },
 "cells": [
  {"cell_type": "markdown", "id": "intro", "metadata": {}, "source": ["# Hello\n", "World"]},
  {"cell_type": "code", "id": "calc", "metadata": {"tags": ["keep"]}, "execution_count": 1, "source": "1+1",
   "outputs": [
    {"output_type": "execute_result", "execution_count": 1, "metadata": {}, "data": {"text/plain": ["2"]}},
    {"output_type": "stream", "name": "stdout", "text": "done\n"}
   ]},
  {"cell_type": "raw", "id": "raw1", "metadata": {"format": "text/html"}, "source": "<b>raw</b>"}
 ]
}`

// ---------------------------------------------------------------------------
// TestParse - Version 4 documents
// ---------------------------------------------------------------------------

func TestParse_V4(t *testing.T) {
	t.Parallel()

	nb, err := notebook.Parse([]byte(minimalV4), notebook.CurrentMajor)
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	one := 1
	want := &notebook.Notebook{
		NBFormat:      4,
		NBFormatMinor: 5,
		Metadata: notebook.Metadata{
			KernelSpec:   &notebook.KernelSpec{Name: "python3", DisplayName: "Python 3", Language: "python"},
			LanguageInfo: &notebook.LanguageInfo{Name: "python", PygmentsLexer: "ipython3"},
			Title:        "Demo",
		},
		Cells: []notebook.Cell{
			{ID: "intro", CellType: "markdown", Source: "# Hello\nWorld"},
			{
				ID:             "calc",
				CellType:       "code",
				Source:         "1+1",
				Metadata:       notebook.CellMetadata{Tags: []string{"keep"}},
				ExecutionCount: &one,
				Outputs: []notebook.Output{
					{
						OutputType:     "execute_result",
						ExecutionCount: &one,
						Data:           notebook.MimeBundle{"text/plain": []byte(`["2"]`)},
					},
					{OutputType: "stream", Name: "stdout", Text: "done\n"},
				},
			},
			{ID: "raw1", CellType: "raw", Source: "<b>raw</b>", Metadata: notebook.CellMetadata{Format: "text/html"}},
		},
	}

	opts := []cmp.Option{
		cmpopts.IgnoreFields(notebook.LanguageInfo{}, "CodemirrorMode"),
		cmpopts.EquateEmpty(),
		cmp.Transformer("raw", func(b notebook.MimeBundle) map[string]string {
			out := make(map[string]string, len(b))
			for k, v := range b {
				out[k] = string(v)
			}
			return out
		}),
	}
	if diff := cmp.Diff(want, nb, opts...); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		asVersion int
		wantErr   error
	}{
		{
			name:      "empty input",
			input:     "   ",
			asVersion: 4,
			wantErr:   notebook.ErrEmptyNotebook,
		},
		{
			name:      "invalid JSON",
			input:     "{not json",
			asVersion: 4,
			wantErr:   notebook.ErrInvalidNotebook,
		},
		{
			name:      "top level array",
			input:     "[]",
			asVersion: 4,
			wantErr:   notebook.ErrInvalidNotebook,
		},
		{
			name:      "top level null",
			input:     "null",
			asVersion: 4,
			wantErr:   notebook.ErrInvalidNotebook,
		},
		{
			name:      "missing nbformat",
			input:     `{"nbformat_minor": 5, "metadata": {}, "cells": []}`,
			asVersion: 4,
			wantErr:   notebook.ErrInvalidNotebook,
		},
		{
			name:      "version 5",
			input:     `{"nbformat": 5, "nbformat_minor": 0, "metadata": {}, "cells": []}`,
			asVersion: 4,
			wantErr:   notebook.ErrUnsupportedVersion,
		},
		{
			name:      "version 2",
			input:     `{"nbformat": 2, "nbformat_minor": 0, "metadata": {}, "worksheets": []}`,
			asVersion: 4,
			wantErr:   notebook.ErrUnsupportedVersion,
		},
		{
			name:      "target version 3",
			input:     minimalV4,
			asVersion: 3,
			wantErr:   notebook.ErrUnsupportedVersion,
		},
		{
			name:      "missing cells",
			input:     `{"nbformat": 4, "nbformat_minor": 5, "metadata": {}}`,
			asVersion: 4,
			wantErr:   notebook.ErrInvalidNotebook,
		},
		{
			name:      "cells not an array",
			input:     `{"nbformat": 4, "nbformat_minor": 5, "metadata": {}, "cells": {}}`,
			asVersion: 4,
			wantErr:   notebook.ErrInvalidNotebook,
		},
		{
			name:      "cell missing source",
			input:     `{"nbformat": 4, "nbformat_minor": 5, "metadata": {}, "cells": [{"cell_type": "markdown", "metadata": {}}]}`,
			asVersion: 4,
			wantErr:   notebook.ErrInvalidNotebook,
		},
		{
			name:      "code cell missing outputs",
			input:     `{"nbformat": 4, "nbformat_minor": 5, "metadata": {}, "cells": [{"cell_type": "code", "metadata": {}, "source": ""}]}`,
			asVersion: 4,
			wantErr:   notebook.ErrInvalidNotebook,
		},
		{
			name:      "stream output missing text",
			input:     `{"nbformat": 4, "nbformat_minor": 5, "metadata": {}, "cells": [{"cell_type": "code", "metadata": {}, "source": "", "outputs": [{"output_type": "stream", "name": "stdout"}]}]}`,
			asVersion: 4,
			wantErr:   notebook.ErrInvalidNotebook,
		},
		{
			name:      "source wrong type",
			input:     `{"nbformat": 4, "nbformat_minor": 5, "metadata": {}, "cells": [{"cell_type": "markdown", "metadata": {}, "source": 42}]}`,
			asVersion: 4,
			wantErr:   notebook.ErrInvalidNotebook,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := notebook.Parse([]byte(tt.input), tt.asVersion)
			if !errors.Is(err, notebook.ErrParse) {
				t.Errorf("Parse() error = %v, want ErrParse", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParse_UnknownTypesPreserved(t *testing.T) {
	t.Parallel()

	input := `{"nbformat": 4, "nbformat_minor": 5, "metadata": {}, "cells": [
		{"cell_type": "widget", "metadata": {}, "source": "x"},
		{"cell_type": "code", "metadata": {}, "source": "", "execution_count": null,
		 "outputs": [{"output_type": "telemetry"}]}
	]}`

	nb, err := notebook.Parse([]byte(input), notebook.CurrentMajor)
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if nb.Cells[0].CellType != "widget" {
		t.Errorf("cell type = %q, want %q", nb.Cells[0].CellType, "widget")
	}
	if nb.Cells[1].Outputs[0].OutputType != "telemetry" {
		t.Errorf("output type = %q, want %q", nb.Cells[1].Outputs[0].OutputType, "telemetry")
	}
	if nb.Cells[1].ExecutionCount != nil {
		t.Errorf("execution count = %v, want nil", *nb.Cells[1].ExecutionCount)
	}
}

// ---------------------------------------------------------------------------
// TestUpgradeV3 - Version 3 documents
// ---------------------------------------------------------------------------

func TestParse_UpgradeV3(t *testing.T) {
	t.Parallel()

	input := `{
	 "nbformat": 3,
	 "nbformat_minor": 0,
	 "metadata": {"name": "legacy"},
	 "worksheets": [
	  {"cells": [
	   {"cell_type": "heading", "level": 2, "metadata": {}, "source": ["Section\n", "Title"]},
	   {"cell_type": "code", "collapsed": true, "input": "print(1)", "language": "python", "metadata": {}, "prompt_number": 3,
	    "outputs": [
	     {"output_type": "stream", "stream": "stderr", "text": ["warn\n"]},
	     {"output_type": "pyout", "prompt_number": 3, "text": ["1"], "html": "<b>1</b>", "metadata": {"png": {"width": 10}}},
	     {"output_type": "pyerr", "ename": "ValueError", "evalue": "bad", "traceback": ["tb"]}
	    ]}
	  ]},
	  {"cells": [
	   {"cell_type": "markdown", "metadata": {}, "source": "second worksheet"}
	  ]}
	 ]
	}`

	nb, err := notebook.Parse([]byte(input), notebook.CurrentMajor)
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	if nb.NBFormat != notebook.CurrentMajor || nb.NBFormatMinor != notebook.CurrentMinor {
		t.Errorf("version = %d.%d, want %d.%d", nb.NBFormat, nb.NBFormatMinor, notebook.CurrentMajor, notebook.CurrentMinor)
	}
	if len(nb.Cells) != 3 {
		t.Fatalf("len(cells) = %d, want 3", len(nb.Cells))
	}

	heading := nb.Cells[0]
	if heading.CellType != notebook.CellTypeMarkdown || heading.Source != "## Section Title" {
		t.Errorf("heading cell = %q %q, want markdown %q", heading.CellType, heading.Source, "## Section Title")
	}

	code := nb.Cells[1]
	if code.Source != "print(1)" {
		t.Errorf("code source = %q, want %q", code.Source, "print(1)")
	}
	if code.ExecutionCount == nil || *code.ExecutionCount != 3 {
		t.Errorf("execution count = %v, want 3", code.ExecutionCount)
	}
	if code.Metadata.Collapsed == nil || !*code.Metadata.Collapsed {
		t.Error("collapsed flag not moved to metadata")
	}

	gotTypes := []string{}
	for _, out := range code.Outputs {
		gotTypes = append(gotTypes, out.OutputType)
	}
	wantTypes := []string{notebook.OutputStream, notebook.OutputExecuteResult, notebook.OutputError}
	if diff := cmp.Diff(wantTypes, gotTypes); diff != "" {
		t.Errorf("output types mismatch (-want +got):\n%s", diff)
	}

	if code.Outputs[0].Name != "stderr" || code.Outputs[0].Text != "warn\n" {
		t.Errorf("stream output = %q %q", code.Outputs[0].Name, code.Outputs[0].Text)
	}

	result := code.Outputs[1]
	if diff := cmp.Diff([]string{"text/html", "text/plain"}, result.Data.Types()); diff != "" {
		t.Errorf("data types mismatch (-want +got):\n%s", diff)
	}
	if _, ok := result.Metadata["image/png"]; !ok {
		t.Errorf("metadata keys not upgraded: %v", result.Metadata)
	}

	if code.Outputs[2].EName != "ValueError" || code.Outputs[2].EValue != "bad" {
		t.Errorf("error output = %q %q", code.Outputs[2].EName, code.Outputs[2].EValue)
	}

	if nb.Cells[2].Source != "second worksheet" {
		t.Errorf("second worksheet cell = %q", nb.Cells[2].Source)
	}
}

// ---------------------------------------------------------------------------
// TestReadFile - File access
// ---------------------------------------------------------------------------

func TestReadFile(t *testing.T) {
	t.Parallel()

	t.Run("valid file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "demo.ipynb")
		if err := os.WriteFile(path, []byte(minimalV4), 0o600); err != nil {
			t.Fatal(err)
		}

		nb, err := notebook.ReadFile(path, notebook.CurrentMajor)
		if err != nil {
			t.Fatalf("ReadFile() unexpected error: %v", err)
		}
		if len(nb.Cells) != 3 {
			t.Errorf("len(cells) = %d, want 3", len(nb.Cells))
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := notebook.ReadFile(filepath.Join(t.TempDir(), "missing.ipynb"), notebook.CurrentMajor)
		if !errors.Is(err, notebook.ErrParse) {
			t.Errorf("ReadFile() error = %v, want ErrParse", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("ReadFile() error = %v, want os.ErrNotExist", err)
		}
	})

	t.Run("invalid content names path", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "broken.ipynb")
		if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
			t.Fatal(err)
		}

		_, err := notebook.ReadFile(path, notebook.CurrentMajor)
		if !errors.Is(err, notebook.ErrInvalidNotebook) {
			t.Fatalf("ReadFile() error = %v, want ErrInvalidNotebook", err)
		}
		if !strings.Contains(err.Error(), "broken.ipynb") {
			t.Errorf("error %q should name the file", err)
		}
	})
}

func TestRead_TooLarge(t *testing.T) {
	// Modifies the package-level MaxInputSize; not parallel.
	original := notebook.MaxInputSize
	notebook.MaxInputSize = 16
	t.Cleanup(func() { notebook.MaxInputSize = original })

	_, err := notebook.Read(strings.NewReader(minimalV4), notebook.CurrentMajor)
	if !errors.Is(err, notebook.ErrInputTooLarge) {
		t.Errorf("Read() error = %v, want ErrInputTooLarge", err)
	}
}
