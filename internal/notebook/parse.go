package notebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// MaxInputSize limits notebook input to prevent memory exhaustion (default 256MB).
var MaxInputSize int64 = 256 << 20

// requiredOutputKeys lists the keys each known output type must carry.
var requiredOutputKeys = map[string][]string{
	OutputStream:        {"name", "text"},
	OutputDisplayData:   {"data", "metadata"},
	OutputExecuteResult: {"data", "metadata", "execution_count"},
	OutputError:         {"ename", "evalue", "traceback"},
}

// ReadFile parses the notebook at path, converting it to asVersion.
// Every error wraps ErrParse; a missing file also matches os.ErrNotExist.
func ReadFile(path string, asVersion int) (*Notebook, error) {
	f, err := os.Open(path) // #nosec G304 -- path is user-provided
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer func() { _ = f.Close() }()

	nb, err := Read(f, asVersion)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return nb, nil
}

// Read parses a notebook from r, converting it to asVersion.
func Read(r io.Reader, asVersion int) (*Notebook, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxInputSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if int64(len(data)) > MaxInputSize {
		return nil, fmt.Errorf("%w: %w: more than %d bytes", ErrParse, ErrInputTooLarge, MaxInputSize)
	}
	return Parse(data, asVersion)
}

// Parse decodes notebook JSON and converts it to asVersion.
// Only version 4 is a valid target; version 3 input is upgraded.
func Parse(data []byte, asVersion int) (*Notebook, error) {
	nb, err := parse(data, asVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return nb, nil
}

func parse(data []byte, asVersion int) (*Notebook, error) {
	if asVersion != CurrentMajor {
		return nil, fmt.Errorf("%w: cannot convert to version %d", ErrUnsupportedVersion, asVersion)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyNotebook
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotebook, err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidNotebook)
	}

	major, minor, err := readVersion(top)
	if err != nil {
		return nil, err
	}

	var nb *Notebook
	switch major {
	case 4:
		nb, err = parseV4(top, minor)
	case 3:
		nb, err = upgradeV3(top)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, major)
	}
	if err != nil {
		return nil, err
	}

	EnsureCellIDs(nb.Cells)
	return nb, nil
}

// readVersion extracts nbformat and nbformat_minor.
func readVersion(top map[string]json.RawMessage) (major, minor int, err error) {
	raw, ok := top["nbformat"]
	if !ok {
		return 0, 0, fmt.Errorf("%w: missing \"nbformat\"", ErrInvalidNotebook)
	}
	if err := json.Unmarshal(raw, &major); err != nil {
		return 0, 0, fmt.Errorf("%w: nbformat: %v", ErrInvalidNotebook, err)
	}
	if raw, ok := top["nbformat_minor"]; ok {
		if err := json.Unmarshal(raw, &minor); err != nil {
			return 0, 0, fmt.Errorf("%w: nbformat_minor: %v", ErrInvalidNotebook, err)
		}
	}
	return major, minor, nil
}

func parseV4(top map[string]json.RawMessage, minor int) (*Notebook, error) {
	if err := requireKeys(top, "top level", "metadata", "nbformat_minor", "cells"); err != nil {
		return nil, err
	}

	nb := &Notebook{NBFormat: 4, NBFormatMinor: minor}
	if err := json.Unmarshal(top["metadata"], &nb.Metadata); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidNotebook, err)
	}

	var rawCells []map[string]json.RawMessage
	if err := json.Unmarshal(top["cells"], &rawCells); err != nil {
		return nil, fmt.Errorf("%w: cells: %v", ErrInvalidNotebook, err)
	}

	nb.Cells = make([]Cell, 0, len(rawCells))
	for i, raw := range rawCells {
		cell, err := decodeCell(raw)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		nb.Cells = append(nb.Cells, cell)
	}

	return nb, nil
}

// decodeCell checks the keys required for the cell type, then decodes it.
func decodeCell(raw map[string]json.RawMessage) (Cell, error) {
	var cell Cell
	if raw == nil {
		return cell, fmt.Errorf("%w: cell must be an object", ErrInvalidNotebook)
	}
	if err := requireKeys(raw, "cell", "cell_type", "metadata", "source"); err != nil {
		return cell, err
	}

	var cellType string
	if err := json.Unmarshal(raw["cell_type"], &cellType); err != nil {
		return cell, fmt.Errorf("%w: cell_type: %v", ErrInvalidNotebook, err)
	}

	if cellType == CellTypeCode {
		if err := requireKeys(raw, "code cell", "outputs"); err != nil {
			return cell, err
		}
		if err := checkOutputs(raw["outputs"]); err != nil {
			return cell, err
		}
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return cell, fmt.Errorf("%w: %v", ErrInvalidNotebook, err)
	}
	if err := json.Unmarshal(encoded, &cell); err != nil {
		return cell, fmt.Errorf("%w: %v", ErrInvalidNotebook, err)
	}
	return cell, nil
}

// checkOutputs verifies each output has an output_type and, for known
// types, the keys that type requires. Unknown types are left to the exporter.
func checkOutputs(raw json.RawMessage) error {
	var outputs []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outputs); err != nil {
		return fmt.Errorf("%w: outputs: %v", ErrInvalidNotebook, err)
	}

	for i, out := range outputs {
		if out == nil {
			return fmt.Errorf("%w: output %d must be an object", ErrInvalidNotebook, i)
		}
		if err := requireKeys(out, fmt.Sprintf("output %d", i), "output_type"); err != nil {
			return err
		}
		var outputType string
		if err := json.Unmarshal(out["output_type"], &outputType); err != nil {
			return fmt.Errorf("%w: output %d: output_type: %v", ErrInvalidNotebook, i, err)
		}
		if keys, ok := requiredOutputKeys[outputType]; ok {
			if err := requireKeys(out, fmt.Sprintf("%s output %d", outputType, i), keys...); err != nil {
				return err
			}
		}
	}
	return nil
}

// requireKeys returns ErrInvalidNotebook naming the first missing key.
func requireKeys(obj map[string]json.RawMessage, where string, keys ...string) error {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return fmt.Errorf("%w: %s missing %q", ErrInvalidNotebook, where, k)
		}
	}
	return nil
}
