package nb2html

import (
	"errors"

	"github.com/alnah/go-nb2html/internal/notebook"
	"github.com/alnah/go-nb2html/internal/pipeline"
)

// Sentinel errors for library operations.
//
// Parse and render sentinels are shared with the internal packages, so
// errors.Is matches them through any wrapping.
var (
	// Parse errors. Every parse failure matches ErrParse.
	ErrParse              = notebook.ErrParse
	ErrEmptyNotebook      = notebook.ErrEmptyNotebook
	ErrNotebookTooLarge   = notebook.ErrInputTooLarge
	ErrUnsupportedVersion = notebook.ErrUnsupportedVersion
	ErrInvalidNotebook    = notebook.ErrInvalidNotebook

	// Render errors. Every render failure matches ErrRender.
	ErrRender                = pipeline.ErrRender
	ErrUnsupportedCellType   = pipeline.ErrUnsupportedCellType
	ErrUnsupportedOutputType = pipeline.ErrUnsupportedOutputType
	ErrTemplateRender        = pipeline.ErrTemplateRender

	// ErrWrite indicates the output file could not be created or written.
	ErrWrite = errors.New("writing output failed")

	// Asset loading errors.
	ErrStyleNotFound    = errors.New("style not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidAssetPath = errors.New("invalid asset path")
)
