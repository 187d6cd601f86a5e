package notebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Schema versions produced by the parser.
const (
	CurrentMajor = 4
	CurrentMinor = 5
)

// Cell types defined by nbformat 4.
const (
	CellTypeCode     = "code"
	CellTypeMarkdown = "markdown"
	CellTypeRaw      = "raw"
)

// Output types defined by nbformat 4.
const (
	OutputStream        = "stream"
	OutputDisplayData   = "display_data"
	OutputExecuteResult = "execute_result"
	OutputError         = "error"
)

// Notebook is a parsed notebook document.
type Notebook struct {
	NBFormat      int      `json:"nbformat"`
	NBFormatMinor int      `json:"nbformat_minor"`
	Metadata      Metadata `json:"metadata"`
	Cells         []Cell   `json:"cells"`
}

// Metadata holds the notebook-level metadata the exporter uses.
// Unknown keys are ignored.
type Metadata struct {
	KernelSpec   *KernelSpec   `json:"kernelspec,omitempty"`
	LanguageInfo *LanguageInfo `json:"language_info,omitempty"`
	Title        string        `json:"title,omitempty"`
	Authors      []Author      `json:"authors,omitempty"`
}

// KernelSpec describes the kernel the notebook was last run with.
type KernelSpec struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Language    string `json:"language,omitempty"`
}

// LanguageInfo describes the kernel language.
type LanguageInfo struct {
	Name           string          `json:"name"`
	Version        string          `json:"version,omitempty"`
	PygmentsLexer  string          `json:"pygments_lexer,omitempty"`
	FileExtension  string          `json:"file_extension,omitempty"`
	MimeType       string          `json:"mimetype,omitempty"`
	CodemirrorMode json.RawMessage `json:"codemirror_mode,omitempty"` // string or {"name": ...}
}

// Author is an entry of metadata.authors.
type Author struct {
	Name string `json:"name"`
}

// Cell is a single notebook cell.
type Cell struct {
	ID             string                `json:"id,omitempty"`
	CellType       string                `json:"cell_type"`
	Source         MultilineString       `json:"source"`
	Metadata       CellMetadata          `json:"metadata"`
	Attachments    map[string]MimeBundle `json:"attachments,omitempty"`
	ExecutionCount *int                  `json:"execution_count,omitempty"`
	Outputs        []Output              `json:"outputs,omitempty"`
}

// CellMetadata holds the cell metadata keys that affect rendering.
type CellMetadata struct {
	Tags        []string         `json:"tags,omitempty"`
	Jupyter     *JupyterMetadata `json:"jupyter,omitempty"`
	Collapsed   *bool            `json:"collapsed,omitempty"`
	Format      string           `json:"format,omitempty"`       // raw cell target format
	RawMimetype string           `json:"raw_mimetype,omitempty"` // legacy spelling of format
}

// JupyterMetadata is the "jupyter" namespace of cell metadata.
type JupyterMetadata struct {
	SourceHidden  bool `json:"source_hidden,omitempty"`
	OutputsHidden bool `json:"outputs_hidden,omitempty"`
}

// HasTag reports whether the cell carries tag.
func (m CellMetadata) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RawFormat returns the target MIME type of a raw cell, lowercased.
func (m CellMetadata) RawFormat() string {
	if m.Format != "" {
		return strings.ToLower(m.Format)
	}
	return strings.ToLower(m.RawMimetype)
}

// Output is one entry of a code cell's outputs.
type Output struct {
	OutputType     string                     `json:"output_type"`
	Name           string                     `json:"name,omitempty"` // stream: stdout or stderr
	Text           MultilineString            `json:"text,omitempty"`
	Data           MimeBundle                 `json:"data,omitempty"`
	Metadata       map[string]json.RawMessage `json:"metadata,omitempty"`
	ExecutionCount *int                       `json:"execution_count,omitempty"`
	EName          string                     `json:"ename,omitempty"`
	EValue         string                     `json:"evalue,omitempty"`
	Traceback      []string                   `json:"traceback,omitempty"`
}

// Language returns the kernel language name, or "" when unknown.
func (nb *Notebook) Language() string {
	if li := nb.Metadata.LanguageInfo; li != nil && li.Name != "" {
		return li.Name
	}
	if ks := nb.Metadata.KernelSpec; ks != nil {
		return ks.Language
	}
	return ""
}

// LexerName returns the best syntax highlighter name for code cells.
// Preference: pygments_lexer, codemirror_mode, language name.
func (nb *Notebook) LexerName() string {
	if li := nb.Metadata.LanguageInfo; li != nil {
		if li.PygmentsLexer != "" {
			return li.PygmentsLexer
		}
		if mode := codemirrorModeName(li.CodemirrorMode); mode != "" {
			return mode
		}
	}
	return nb.Language()
}

func codemirrorModeName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Name
	}
	return ""
}

// MultilineString is an nbformat text value, stored in JSON either as a
// string or as an array of lines that are concatenated without separators.
type MultilineString string

// UnmarshalJSON accepts a string, an array of strings, or null.
func (m *MultilineString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*m = ""
		return nil
	case len(data) > 0 && data[0] == '[':
		var lines []string
		if err := json.Unmarshal(data, &lines); err != nil {
			return fmt.Errorf("multiline string: %w", err)
		}
		*m = MultilineString(strings.Join(lines, ""))
		return nil
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("multiline string: %w", err)
		}
		*m = MultilineString(s)
		return nil
	}
}

// String returns the joined text.
func (m MultilineString) String() string {
	return string(m)
}

// MimeBundle maps MIME types to their JSON-encoded payloads.
type MimeBundle map[string]json.RawMessage

// Has reports whether the bundle contains mimeType.
func (b MimeBundle) Has(mimeType string) bool {
	_, ok := b[mimeType]
	return ok
}

// Types returns the MIME types in the bundle, sorted.
func (b MimeBundle) Types() []string {
	types := make([]string, 0, len(b))
	for t := range b {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Text returns the payload for mimeType as text. Strings and line arrays are
// joined; JSON payloads (objects, numbers) are returned indented.
func (b MimeBundle) Text(mimeType string) (string, error) {
	raw, ok := b[mimeType]
	if !ok {
		return "", fmt.Errorf("%w: missing %s payload", ErrInvalidNotebook, mimeType)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '"' || (trimmed[0] == '[' && !IsJSONMimeType(mimeType))) {
		var text MultilineString
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return "", fmt.Errorf("%w: %s payload: %v", ErrInvalidNotebook, mimeType, err)
		}
		return text.String(), nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return "", fmt.Errorf("%w: %s payload: %v", ErrInvalidNotebook, mimeType, err)
	}
	return buf.String(), nil
}

// IsJSONMimeType reports whether payloads of mimeType are stored as JSON
// values rather than text (application/json and any "+json" type).
func IsJSONMimeType(mimeType string) bool {
	return mimeType == "application/json" || strings.HasSuffix(mimeType, "+json")
}
