package pipeline

import "errors"

// Sentinel errors for export failures.
var (
	ErrRender                = errors.New("render failed")
	ErrUnsupportedCellType   = errors.New("unsupported cell type")
	ErrUnsupportedOutputType = errors.New("unsupported output type")
	ErrHTMLConversion        = errors.New("HTML conversion failed")
	ErrTemplateRender        = errors.New("page template rendering failed")
)
