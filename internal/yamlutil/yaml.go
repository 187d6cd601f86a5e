// Package yamlutil wraps YAML parsing to isolate the external dependency.
// This allows swapping the underlying YAML library without modifying callers.
package yamlutil

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits YAML input to prevent memory exhaustion (default 1MB).
var MaxInputSize = 1 << 20

var (
	ErrNilData        = errors.New("yamlutil: nil or empty data")
	ErrNilDestination = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge  = errors.New("yamlutil: input exceeds maximum size")
	ErrSyntax         = errors.New("yamlutil: invalid YAML")
	ErrUnknownField   = errors.New("yamlutil: unknown field")
)

func validateInput(data []byte, v any) error {
	if len(data) == 0 {
		return ErrNilData
	}
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	if v == nil {
		return ErrNilDestination
	}
	return nil
}

// UnmarshalStrict rejects unknown fields in the input.
func UnmarshalStrict(data []byte, v any) error {
	if err := validateInput(data, v); err != nil {
		return err
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return wrapError(err)
	}
	return nil
}

// wrapError classifies a decoder error and renders it with its source
// position, so config mistakes point at the offending line.
func wrapError(err error) error {
	kind := ErrSyntax
	var unknown *yaml.UnknownFieldError
	if errors.As(err, &unknown) {
		kind = ErrUnknownField
	}
	return fmt.Errorf("%w: %s", kind, yaml.FormatError(err, false, true))
}
