package nb2html

import (
	"errors"

	"github.com/alecthomas/chroma/v2/styles"

	"github.com/alnah/go-nb2html/internal/assets"
)

// Asset name constants for built-in styles and templates.
const (
	// DefaultStyle is the name of the built-in CSS style.
	DefaultStyle = assets.DefaultStyleName

	// DefaultTemplate is the name of the built-in page template.
	DefaultTemplate = assets.DefaultTemplateName
)

// AssetLoader defines the contract for loading CSS styles and page templates.
// Implementations may load from filesystem, embedded assets, S3, database, etc.
//
// The library provides NewAssetLoader() for filesystem-based loading with
// fallback to embedded defaults. Implement this interface for custom backends.
type AssetLoader interface {
	// LoadStyle loads a CSS style by name (without .css extension).
	// Returns ErrStyleNotFound if the style doesn't exist.
	LoadStyle(name string) (string, error)

	// LoadTemplate loads an html/template page by name (without .html
	// extension). Returns ErrTemplateNotFound if the template doesn't exist.
	LoadTemplate(name string) (string, error)
}

// NewAssetLoader creates an AssetLoader for the given base path.
// If basePath is empty, returns a loader using only embedded assets.
// If basePath is set, custom assets take precedence with fallback to embedded.
//
// The basePath directory should contain:
//   - styles/{name}.css for CSS styles
//   - templates/{name}.html for page templates
//
// Returns ErrInvalidAssetPath if basePath is set but not a valid, readable directory.
func NewAssetLoader(basePath string) (AssetLoader, error) {
	resolver, err := assets.NewAssetResolver(basePath)
	if err != nil {
		return nil, convertAssetError(err)
	}
	return &assetLoaderAdapter{resolver: resolver}, nil
}

// AvailableStyles returns the names of the embedded page styles, sorted.
func AvailableStyles() []string {
	return assets.AvailableStyles()
}

// HighlightStyles returns the names of the registered code highlighting
// styles, sorted.
func HighlightStyles() []string {
	return styles.Names()
}

// assetLoaderAdapter wraps internal AssetResolver to return public errors.
type assetLoaderAdapter struct {
	resolver *assets.AssetResolver
}

func (a *assetLoaderAdapter) LoadStyle(name string) (string, error) {
	content, err := a.resolver.LoadStyle(name)
	if err != nil {
		return "", convertAssetError(err)
	}
	return content, nil
}

func (a *assetLoaderAdapter) LoadTemplate(name string) (string, error) {
	content, err := a.resolver.LoadTemplate(name)
	if err != nil {
		return "", convertAssetError(err)
	}
	return content, nil
}

// styleOverride serves one resolved stylesheet for every style name and
// delegates templates to the wrapped loader.
type styleOverride struct {
	assets.AssetLoader
	css string
}

func (s *styleOverride) LoadStyle(string) (string, error) {
	return s.css, nil
}

// convertAssetError maps internal asset errors to public errors.
func convertAssetError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isError(err, assets.ErrStyleNotFound):
		return wrapError(ErrStyleNotFound, err)
	case isError(err, assets.ErrTemplateNotFound):
		return wrapError(ErrTemplateNotFound, err)
	case isError(err, assets.ErrInvalidBasePath):
		return wrapError(ErrInvalidAssetPath, err)
	case isError(err, assets.ErrPathTraversal):
		return wrapError(ErrInvalidAssetPath, err)
	case isError(err, assets.ErrInvalidAssetName):
		return wrapError(ErrStyleNotFound, err) // Invalid name means not found
	default:
		return err
	}
}

// isAssetError reports whether err comes from the internal asset loaders.
func isAssetError(err error) bool {
	for _, target := range []error{
		assets.ErrStyleNotFound,
		assets.ErrTemplateNotFound,
		assets.ErrInvalidBasePath,
		assets.ErrPathTraversal,
		assets.ErrInvalidAssetName,
	} {
		if isError(err, target) {
			return true
		}
	}
	return false
}

// isError checks if err wraps or equals target using errors.Is semantics.
func isError(err, target error) bool {
	return errors.Is(err, target)
}

// wrapError creates a new error that wraps the original with a public sentinel.
// The resulting error preserves the original message via Error() and supports
// errors.Is() matching against the public sentinel via Unwrap().
func wrapError(sentinel, original error) error {
	return &wrappedAssetError{sentinel: sentinel, original: original}
}

type wrappedAssetError struct {
	sentinel error
	original error
}

func (e *wrappedAssetError) Error() string {
	return e.original.Error()
}

// Unwrap returns the public sentinel for errors.Is() matching.
// Internal errors are not exposed since they're in internal/ packages.
func (e *wrappedAssetError) Unwrap() error {
	return e.sentinel
}
