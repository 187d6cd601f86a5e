package notebook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// v3MimeKeys maps the short data keys of nbformat 3 outputs to MIME types.
var v3MimeKeys = map[string]string{
	"text":       "text/plain",
	"html":       "text/html",
	"svg":        "image/svg+xml",
	"png":        "image/png",
	"jpeg":       "image/jpeg",
	"latex":      "text/latex",
	"javascript": "application/javascript",
	"json":       "application/json",
	"pdf":        "application/pdf",
	"markdown":   "text/markdown",
}

// v3OutputTypes maps renamed nbformat 3 output types.
var v3OutputTypes = map[string]string{
	"pyout": OutputExecuteResult,
	"pyerr": OutputError,
}

type v3Notebook struct {
	Metadata   Metadata `json:"metadata"`
	Worksheets []struct {
		Cells []json.RawMessage `json:"cells"`
	} `json:"worksheets"`
}

type v3Cell struct {
	CellType     string            `json:"cell_type"`
	Input        MultilineString   `json:"input"`
	Source       MultilineString   `json:"source"`
	Level        int               `json:"level"`
	Collapsed    bool              `json:"collapsed"`
	PromptNumber *int              `json:"prompt_number"`
	Metadata     CellMetadata      `json:"metadata"`
	Outputs      []json.RawMessage `json:"outputs"`
}

// upgradeV3 converts an nbformat 3 document to the version 4 model.
// Cells of all worksheets are concatenated in order.
func upgradeV3(top map[string]json.RawMessage) (*Notebook, error) {
	encoded, err := json.Marshal(top)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotebook, err)
	}

	var v3 v3Notebook
	if err := json.Unmarshal(encoded, &v3); err != nil {
		return nil, fmt.Errorf("%w: v3: %v", ErrInvalidNotebook, err)
	}

	nb := &Notebook{
		NBFormat:      CurrentMajor,
		NBFormatMinor: CurrentMinor,
		Metadata:      v3.Metadata,
		Cells:         []Cell{},
	}

	index := 0
	for _, ws := range v3.Worksheets {
		for _, raw := range ws.Cells {
			cell, err := upgradeV3Cell(raw)
			if err != nil {
				return nil, fmt.Errorf("cell %d: %w", index, err)
			}
			nb.Cells = append(nb.Cells, cell)
			index++
		}
	}

	return nb, nil
}

func upgradeV3Cell(raw json.RawMessage) (Cell, error) {
	var old v3Cell
	if err := json.Unmarshal(raw, &old); err != nil {
		return Cell{}, fmt.Errorf("%w: %v", ErrInvalidNotebook, err)
	}
	if old.CellType == "" {
		return Cell{}, fmt.Errorf("%w: cell missing \"cell_type\"", ErrInvalidNotebook)
	}

	cell := Cell{
		CellType: old.CellType,
		Source:   old.Source,
		Metadata: old.Metadata,
	}

	switch old.CellType {
	case CellTypeCode:
		cell.Source = old.Input
		cell.ExecutionCount = old.PromptNumber
		if old.Collapsed {
			collapsed := true
			cell.Metadata.Collapsed = &collapsed
		}
		cell.Outputs = make([]Output, 0, len(old.Outputs))
		for i, rawOut := range old.Outputs {
			out, err := upgradeV3Output(rawOut)
			if err != nil {
				return Cell{}, fmt.Errorf("output %d: %w", i, err)
			}
			cell.Outputs = append(cell.Outputs, out)
		}
	case "heading":
		level := old.Level
		if level < 1 {
			level = 1
		}
		text := strings.Join(strings.Fields(strings.ReplaceAll(old.Source.String(), "\n", " ")), " ")
		cell.CellType = CellTypeMarkdown
		cell.Source = MultilineString(strings.Repeat("#", level) + " " + text)
	}

	return cell, nil
}

// upgradeV3Output renames output types and moves top-level data keys into
// a MIME bundle.
func upgradeV3Output(raw json.RawMessage) (Output, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Output{}, fmt.Errorf("%w: output must be an object", ErrInvalidNotebook)
	}

	var outputType string
	if err := json.Unmarshal(fields["output_type"], &outputType); err != nil || outputType == "" {
		return Output{}, fmt.Errorf("%w: output missing \"output_type\"", ErrInvalidNotebook)
	}
	if renamed, ok := v3OutputTypes[outputType]; ok {
		outputType = renamed
	}

	out := Output{OutputType: outputType}

	switch outputType {
	case OutputStream:
		out.Name = "stdout"
		if rawName, ok := fields["stream"]; ok {
			if err := json.Unmarshal(rawName, &out.Name); err != nil {
				return Output{}, fmt.Errorf("%w: stream: %v", ErrInvalidNotebook, err)
			}
		}
		if rawText, ok := fields["text"]; ok {
			if err := json.Unmarshal(rawText, &out.Text); err != nil {
				return Output{}, fmt.Errorf("%w: text: %v", ErrInvalidNotebook, err)
			}
		}
	case OutputError:
		var e struct {
			EName     string   `json:"ename"`
			EValue    string   `json:"evalue"`
			Traceback []string `json:"traceback"`
		}
		if err := json.Unmarshal(raw, &e); err != nil {
			return Output{}, fmt.Errorf("%w: %v", ErrInvalidNotebook, err)
		}
		out.EName, out.EValue, out.Traceback = e.EName, e.EValue, e.Traceback
	default:
		if rawCount, ok := fields["prompt_number"]; ok && outputType == OutputExecuteResult {
			if err := json.Unmarshal(rawCount, &out.ExecutionCount); err != nil {
				return Output{}, fmt.Errorf("%w: prompt_number: %v", ErrInvalidNotebook, err)
			}
		}
		out.Data = MimeBundle{}
		for key, value := range fields {
			if mimeType, ok := v3MimeKeys[key]; ok {
				out.Data[mimeType] = value
			} else if strings.Contains(key, "/") {
				out.Data[key] = value
			}
		}
		if rawMeta, ok := fields["metadata"]; ok {
			if err := upgradeV3OutputMetadata(rawMeta, &out); err != nil {
				return Output{}, err
			}
		}
	}

	return out, nil
}

// upgradeV3OutputMetadata renames short MIME keys in output metadata.
func upgradeV3OutputMetadata(raw json.RawMessage, out *Output) error {
	var meta map[string]json.RawMessage
	if err := json.Unmarshal(raw, &meta); err != nil {
		return fmt.Errorf("%w: output metadata: %v", ErrInvalidNotebook, err)
	}
	if len(meta) == 0 {
		return nil
	}
	out.Metadata = make(map[string]json.RawMessage, len(meta))
	for key, value := range meta {
		if mimeType, ok := v3MimeKeys[key]; ok {
			key = mimeType
		}
		out.Metadata[key] = value
	}
	return nil
}
