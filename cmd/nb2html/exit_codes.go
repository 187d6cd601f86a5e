package main

import (
	"errors"
	"os"

	nb2html "github.com/alnah/go-nb2html"
	"github.com/alnah/go-nb2html/internal/config"
)

// Exit codes for nb2html CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful conversion
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid arguments, flags, config, or assets
	ExitIO      = 3 // Input not found, output not writable
	ExitParse   = 4 // Input is not a usable notebook
	ExitRender  = 5 // Notebook could not be rendered
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrInvalidArgs) ||
		errors.Is(err, ErrSamePath) ||
		errors.Is(err, ErrInvalidTimeout) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, nb2html.ErrStyleNotFound) ||
		errors.Is(err, nb2html.ErrTemplateNotFound) ||
		errors.Is(err, nb2html.ErrInvalidAssetPath) {
		return ExitUsage
	}

	// I/O errors (exit 3). A parse failure caused by a missing or
	// unreadable input is an I/O error, not a malformed notebook.
	if errors.Is(err, nb2html.ErrWrite) ||
		errors.Is(err, ErrReadCSS) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) {
		return ExitIO
	}

	// Parse errors (exit 4)
	if errors.Is(err, nb2html.ErrParse) {
		return ExitParse
	}

	// Render errors (exit 5)
	if errors.Is(err, nb2html.ErrRender) {
		return ExitRender
	}

	return ExitGeneral
}
