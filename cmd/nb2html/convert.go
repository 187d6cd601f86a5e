package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	nb2html "github.com/alnah/go-nb2html"
	"github.com/alnah/go-nb2html/internal/config"
	"github.com/alnah/go-nb2html/internal/fileutil"
	"github.com/alnah/go-nb2html/internal/hints"
)

// Sentinel errors for CLI operations.
var (
	ErrInvalidArgs    = errors.New("expected exactly two arguments: <input.ipynb> <output.html>")
	ErrSamePath       = errors.New("output path must differ from input path")
	ErrInvalidTimeout = errors.New("invalid timeout")
	ErrReadCSS        = errors.New("failed to read CSS file")
)

// requiredArgs is the number of positional arguments.
const requiredArgs = 2

// Converter is the interface for the conversion service.
type Converter interface {
	ConvertFile(ctx context.Context, inputPath, outputPath string, opts *nb2html.RenderOptions) (*nb2html.Result, error)
}

// Compile-time interface implementation check.
var _ Converter = (*nb2html.Converter)(nil)

// newConverter builds the conversion service from functional options.
var newConverter = func(opts ...nb2html.Option) (Converter, error) {
	return nb2html.NewConverter(opts...)
}

// cliArgs holds the validated positional arguments.
type cliArgs struct {
	inputPath  string
	outputPath string
}

// parseArgs validates positional arguments. It touches no files.
func parseArgs(positional []string) (*cliArgs, error) {
	if len(positional) != requiredArgs {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidArgs, len(positional))
	}
	args := &cliArgs{inputPath: positional[0], outputPath: positional[1]}
	if args.inputPath == "" || args.outputPath == "" {
		return nil, fmt.Errorf("%w (empty path)", ErrInvalidArgs)
	}
	if filepath.Clean(args.inputPath) == filepath.Clean(args.outputPath) {
		return nil, fmt.Errorf("%w: %s", ErrSamePath, args.inputPath)
	}
	return args, nil
}

// runMain parses flags, runs the conversion, reports errors, and returns
// the process exit code.
func runMain(ctx context.Context, args []string, env *Environment) int {
	flags, positional, err := parseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		printUsage(env.Stdout)
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		fmt.Fprintln(env.Stderr, "Run 'nb2html --help' for usage.")
		return ExitUsage
	}

	if flags.common.version {
		printVersion(env.Stdout)
		return ExitSuccess
	}

	if err := runConvert(ctx, positional, flags, env); err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err, configName(flags.common.config)))
		if errors.Is(err, ErrInvalidArgs) {
			fmt.Fprintln(env.Stderr)
			printUsage(env.Stderr)
		}
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// runConvert orchestrates a single conversion.
func runConvert(ctx context.Context, positional []string, flags *cliFlags, env *Environment) error {
	// Validate arguments before any file access
	args, err := parseArgs(positional)
	if err != nil {
		return err
	}

	warnUnknownEnvVars(env.Stderr)
	envCfg := loadEnvConfig(env.Stderr)

	// Load configuration
	cfg, err := loadConfig(flags.common.config, envCfg.ConfigPath, env)
	if err != nil {
		return err
	}

	// Apply overrides: env over config file, CLI flags over both
	applyEnvConfig(envCfg, cfg)
	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if path := cfg.Assets.BasePath; path != "" && !fileutil.DirExists(path) {
		return fmt.Errorf("%w: %s is not a directory", nb2html.ErrInvalidAssetPath, path)
	}

	timeout, err := resolveTimeout(flags.timeout, envCfg.Timeout, cfg)
	if err != nil {
		return err
	}

	extraCSS, err := readCSSFile(cfg.CSS.File)
	if err != nil {
		return err
	}

	opts := []nb2html.Option{nb2html.WithTimeout(timeout)}
	if cfg.CSS.Style != "" {
		opts = append(opts, nb2html.WithStyle(cfg.CSS.Style))
	}
	if cfg.Assets.BasePath != "" {
		opts = append(opts, nb2html.WithAssetPath(cfg.Assets.BasePath))
	}
	conv, err := newConverter(opts...)
	if err != nil {
		return err
	}

	verbose := flags.common.verbose
	if verbose {
		fmt.Fprintf(env.Stderr, "Converting %s (timeout %v)\n", args.inputPath, timeout)
	}

	start := env.Now()
	result, err := conv.ConvertFile(ctx, args.inputPath, args.outputPath, buildRenderOptions(cfg, extraCSS))
	if err != nil {
		return err
	}
	elapsed := env.Now().Sub(start)

	if verbose && result.Resources != nil {
		for _, w := range result.Resources.Warnings {
			fmt.Fprintf(env.Stderr, "warning: %s\n", w)
		}
	}

	switch {
	case flags.common.quiet:
	case verbose:
		fmt.Fprintf(env.Stdout, "%s -> %s (%v)\n", args.inputPath, args.outputPath, elapsed.Round(time.Millisecond))
	default:
		fmt.Fprintf(env.Stdout, "Created %s\n", args.outputPath)
	}
	return nil
}

// loadConfig loads the config named by the flag, else by NB2HTML_CONFIG,
// else returns the environment's baseline config.
func loadConfig(flagValue, envValue string, env *Environment) (*config.Config, error) {
	name := flagValue
	if name == "" {
		name = envValue
	}
	if name == "" {
		cfg := *env.Config
		return &cfg, nil
	}

	cfg, err := config.LoadConfig(name)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// mergeFlags applies explicitly set CLI flags to the config (CLI wins).
// Boolean flags only ever turn a feature on; tag lists are appended.
func mergeFlags(flags *cliFlags, cfg *config.Config) {
	// Styling flags
	if flags.style.style != "" {
		cfg.CSS.Style = flags.style.style
	}
	if flags.style.highlight != "" {
		cfg.CSS.Highlight = flags.style.highlight
	}
	if flags.style.css != "" {
		cfg.CSS.File = flags.style.css
	}
	if flags.style.assetPath != "" {
		cfg.Assets.BasePath = flags.style.assetPath
	}
	if flags.title != "" {
		cfg.Page.Title = flags.title
	}
	if flags.template != "" {
		cfg.Page.Template = flags.template
	}

	// Cell flags
	c := &cfg.Cells
	c.ExcludeInput = c.ExcludeInput || flags.cells.excludeInput
	c.ExcludeOutput = c.ExcludeOutput || flags.cells.excludeOutput
	c.ExcludePrompts = c.ExcludePrompts || flags.cells.noPrompt
	c.ExcludeMarkdown = c.ExcludeMarkdown || flags.cells.excludeMarkdown
	c.ExcludeRaw = c.ExcludeRaw || flags.cells.excludeRaw
	c.ExcludeCode = c.ExcludeCode || flags.cells.excludeCode
	c.ClearExecutionCounts = c.ClearExecutionCounts || flags.cells.clearExecutionCounts
	c.RemoveTags = append(c.RemoveTags, flags.cells.removeTags...)
	c.RemoveInputTags = append(c.RemoveInputTags, flags.cells.removeInputTags...)
	c.RemoveOutputTags = append(c.RemoveOutputTags, flags.cells.removeOutputTags...)

	// HTML flags
	cfg.HTML.Sanitize = cfg.HTML.Sanitize || flags.html.sanitize
	cfg.HTML.EmbedImages = cfg.HTML.EmbedImages || flags.html.embedImages
	cfg.MathJax.Disabled = cfg.MathJax.Disabled || flags.html.noMathJax
	if flags.html.mathJaxURL != "" {
		cfg.MathJax.URL = flags.html.mathJaxURL
	}
}

// resolveTimeout picks the timeout: flag > env > config > default.
func resolveTimeout(flagValue string, envValue time.Duration, cfg *config.Config) (time.Duration, error) {
	if flagValue != "" {
		d, err := time.ParseDuration(flagValue)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimeout, flagValue, err)
		}
		if d <= 0 {
			return 0, fmt.Errorf("%w: %q: must be positive", ErrInvalidTimeout, flagValue)
		}
		return d, nil
	}
	if envValue > 0 {
		return envValue, nil
	}
	d, err := cfg.TimeoutDuration()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidTimeout, err)
	}
	if d > 0 {
		return d, nil
	}
	return nb2html.DefaultTimeout, nil
}

// readCSSFile reads the extra CSS file, if one is configured.
func readCSSFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	content, err := os.ReadFile(path) // #nosec G304 -- user-provided path
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReadCSS, err)
	}
	return string(content), nil
}

// buildRenderOptions maps the merged config to library render options.
func buildRenderOptions(cfg *config.Config, extraCSS string) *nb2html.RenderOptions {
	return &nb2html.RenderOptions{
		Title:                cfg.Page.Title,
		Template:             cfg.Page.Template,
		CSS:                  extraCSS,
		HighlightStyle:       cfg.CSS.Highlight,
		ExcludeInput:         cfg.Cells.ExcludeInput,
		ExcludeOutput:        cfg.Cells.ExcludeOutput,
		ExcludeInputPrompt:   cfg.Cells.ExcludePrompts,
		ExcludeOutputPrompt:  cfg.Cells.ExcludePrompts,
		ExcludeMarkdown:      cfg.Cells.ExcludeMarkdown,
		ExcludeRaw:           cfg.Cells.ExcludeRaw,
		ExcludeCode:          cfg.Cells.ExcludeCode,
		RemoveCellTags:       cfg.Cells.RemoveTags,
		RemoveInputTags:      cfg.Cells.RemoveInputTags,
		RemoveOutputTags:     cfg.Cells.RemoveOutputTags,
		Sanitize:             cfg.HTML.Sanitize,
		EmbedImages:          cfg.HTML.EmbedImages,
		ClearExecutionCounts: cfg.Cells.ClearExecutionCounts,
		DisableMathJax:       cfg.MathJax.Disabled,
		MathJaxURL:           cfg.MathJax.URL,
	}
}

// configName returns the config name in effect: the flag, else NB2HTML_CONFIG.
func configName(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envConfigPath)
}

// hintFor returns an actionable hint for common failures, or "".
func hintFor(err error, cfgName string) string {
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		var searched []string
		if cfgName != "" && !fileutil.IsFilePath(cfgName) {
			searched = config.SearchPaths(cfgName)
		}
		return hints.ForConfigNotFound(searched)
	case errors.Is(err, nb2html.ErrStyleNotFound):
		return hints.ForStyleNotFound(nb2html.AvailableStyles())
	case errors.Is(err, nb2html.ErrUnsupportedVersion):
		return hints.ForUnsupportedVersion()
	case errors.Is(err, nb2html.ErrInvalidNotebook), errors.Is(err, nb2html.ErrEmptyNotebook):
		return hints.ForParse()
	case errors.Is(err, nb2html.ErrWrite):
		return hints.ForOutputDirectory()
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	}
	return ""
}
