package notebook

import "errors"

// Sentinel errors for notebook parsing.
var (
	// ErrParse wraps every failure to read or decode a notebook.
	ErrParse = errors.New("notebook parse failed")

	// ErrEmptyNotebook indicates the input contained no bytes.
	ErrEmptyNotebook = errors.New("notebook content is empty")

	// ErrInputTooLarge indicates the input exceeds MaxInputSize.
	ErrInputTooLarge = errors.New("notebook exceeds maximum size")

	// ErrUnsupportedVersion indicates an nbformat major version that cannot be
	// read or converted to the requested version.
	ErrUnsupportedVersion = errors.New("unsupported nbformat version")

	// ErrInvalidNotebook indicates the document does not match the schema.
	ErrInvalidNotebook = errors.New("invalid notebook structure")
)
