// Package fileutil provides file and path utility functions.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmptyPath indicates a write was requested without a destination.
var ErrEmptyPath = errors.New("path cannot be empty")

// OutputFileMode is the permission used when WriteFile creates a file.
const OutputFileMode os.FileMode = 0o644

// WriteFile creates path, or truncates it if it exists, and writes content
// in full. The handle is closed on every path; a close error is returned
// only when the write itself succeeded. A failed write may leave a
// truncated file behind.
func WriteFile(path string, content []byte) (err error) {
	if path == "" {
		return ErrEmptyPath
	}

	// #nosec G304 G302 -- output path is user-provided; pages are meant to be readable
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, OutputFileMode)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, closeErr)
		}
	}()

	if _, err := f.Write(content); err != nil {
		return err
	}
	return nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists returns true if the path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// IsFilePath returns true if the string looks like a file path rather than a name.
// A string containing path separators (/, \) is treated as a path.
//
// Examples:
//   - "default" -> false (name)
//   - "./nb2html.yaml" -> true (relative path)
//   - "../shared/config.yaml" -> true (parent path)
//   - "/etc/nb2html.yaml" -> true (absolute)
//   - "C:\config\nb2html.yaml" -> true (Windows)
//   - "my-config" -> false (hyphenated name)
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// IsCSS returns true if the string looks like CSS content rather than a
// style name or path.
func IsCSS(s string) bool {
	return strings.Contains(s, "{")
}

// IsURL returns true if the string looks like a URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// BaseName returns the last element of path without its extension.
//
// Examples:
//   - "notebooks/analysis.ipynb" -> "analysis"
//   - "report.v2.ipynb" -> "report.v2"
//   - "README" -> "README"
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
