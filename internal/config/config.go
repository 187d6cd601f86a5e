package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-nb2html/internal/fileutil"
	"github.com/alnah/go-nb2html/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits for multi-tenant safety.
const (
	MaxNameLength  = 100  // Style, highlight theme, tag names
	MaxTitleLength = 200  // Page title
	MaxPathLength  = 4096 // PATH_MAX on Linux
	MaxURLLength   = 2048 // Browser limit
	MaxTags        = 64   // Per remove-tags list
)

// AppDirName is the directory searched under the user config directory.
const AppDirName = "go-nb2html"

// Config holds all configuration for notebook rendering.
type Config struct {
	CSS     CSSConfig     `yaml:"css"`
	Assets  AssetsConfig  `yaml:"assets"`
	Page    PageConfig    `yaml:"page"`
	Cells   CellsConfig   `yaml:"cells"`
	HTML    HTMLConfig    `yaml:"html"`
	MathJax MathJaxConfig `yaml:"mathjax"`
	Timeout string        `yaml:"timeout"` // Go duration, e.g. "45s" (empty = default)
}

// CSSConfig defines CSS styling options.
type CSSConfig struct {
	Style     string `yaml:"style"`     // Name or path of page style (empty = default)
	Highlight string `yaml:"highlight"` // Chroma theme for code (empty = "github")
	File      string `yaml:"file"`      // Extra CSS file appended after the style
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Empty = use embedded assets
}

// PageConfig defines document-level options.
type PageConfig struct {
	Title    string `yaml:"title"`    // Empty = metadata title, file name, first H1
	Template string `yaml:"template"` // Page template name (empty = "notebook")
}

// CellsConfig defines which parts of the notebook are rendered.
type CellsConfig struct {
	ExcludeInput         bool     `yaml:"excludeInput"`
	ExcludeOutput        bool     `yaml:"excludeOutput"`
	ExcludePrompts       bool     `yaml:"excludePrompts"`
	ExcludeMarkdown      bool     `yaml:"excludeMarkdown"`
	ExcludeRaw           bool     `yaml:"excludeRaw"`
	ExcludeCode          bool     `yaml:"excludeCode"`
	RemoveTags           []string `yaml:"removeTags"`       // Drop whole cells
	RemoveInputTags      []string `yaml:"removeInputTags"`  // Drop inputs only
	RemoveOutputTags     []string `yaml:"removeOutputTags"` // Drop outputs only
	ClearExecutionCounts bool     `yaml:"clearExecutionCounts"`
}

// HTMLConfig defines HTML safety and embedding options.
type HTMLConfig struct {
	Sanitize    bool `yaml:"sanitize"`    // Drop raw HTML and scripts
	EmbedImages bool `yaml:"embedImages"` // Inline local images as data URIs
}

// MathJaxConfig defines math rendering options.
type MathJaxConfig struct {
	Disabled bool   `yaml:"disabled"`
	URL      string `yaml:"url"` // Empty = default CDN
}

// Validate checks field lengths and value formats.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually (e.g., API adapters, library users).
func (c *Config) Validate() error {
	// Validate CSS fields
	if err := validateFieldLength("css.style", c.CSS.Style, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("css.highlight", c.CSS.Highlight, MaxNameLength); err != nil {
		return err
	}
	if err := validateFieldLength("css.file", c.CSS.File, MaxPathLength); err != nil {
		return err
	}

	if err := validateFieldLength("assets.basePath", c.Assets.BasePath, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("page.title", c.Page.Title, MaxTitleLength); err != nil {
		return err
	}
	if err := validateFieldLength("page.template", c.Page.Template, MaxNameLength); err != nil {
		return err
	}

	// Validate tag lists
	tagLists := []struct {
		field string
		tags  []string
	}{
		{"cells.removeTags", c.Cells.RemoveTags},
		{"cells.removeInputTags", c.Cells.RemoveInputTags},
		{"cells.removeOutputTags", c.Cells.RemoveOutputTags},
	}
	for _, list := range tagLists {
		if len(list.tags) > MaxTags {
			return fmt.Errorf("%w: %s (%d tags, max %d)", ErrFieldTooLong, list.field, len(list.tags), MaxTags)
		}
		for i, tag := range list.tags {
			if err := validateFieldLength(fmt.Sprintf("%s[%d]", list.field, i), tag, MaxNameLength); err != nil {
				return err
			}
		}
	}

	// Validate MathJax fields
	if err := validateFieldLength("mathjax.url", c.MathJax.URL, MaxURLLength); err != nil {
		return err
	}
	if c.MathJax.URL != "" && !fileutil.IsURL(c.MathJax.URL) {
		return fmt.Errorf("%w: mathjax.url: must start with http:// or https://, got %q", ErrInvalidValue, c.MathJax.URL)
	}

	if c.Timeout != "" {
		if _, err := c.TimeoutDuration(); err != nil {
			return err
		}
	}

	return nil
}

// TimeoutDuration parses Timeout. It returns zero when Timeout is empty.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: timeout: %v", ErrInvalidValue, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: timeout: must be positive, got %s", ErrInvalidValue, c.Timeout)
	}
	return d, nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns a neutral configuration: everything rendered,
// embedded assets, MathJax enabled.
func DefaultConfig() *Config {
	return &Config{
		CSS:     CSSConfig{Style: ""},
		Assets:  AssetsConfig{BasePath: ""},
		Cells:   CellsConfig{},
		HTML:    HTMLConfig{Sanitize: false, EmbedImages: false},
		MathJax: MathJaxConfig{Disabled: false},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SearchPaths lists the candidate files for a config name, in lookup order:
// current directory first, then the user config directory, each trying
// .yaml before .yml.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2) // 2 locations

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, AppDirName, name+ext))
		}
	}

	return paths
}

// resolveConfigPath searches for a config file by name in standard locations.
func resolveConfigPath(name string) (string, error) {
	triedPaths := SearchPaths(name)
	for _, p := range triedPaths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
