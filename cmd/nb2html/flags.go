package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags controlling configuration and output verbosity.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
	version bool
}

// styleFlags holds styling and asset flags.
type styleFlags struct {
	style     string // Name or path of the page style
	highlight string // Chroma style for code
	assetPath string // Override asset directory
	css       string // Extra CSS file appended after the style
}

// cellFlags holds flags selecting what parts of the notebook are rendered.
type cellFlags struct {
	excludeInput         bool
	excludeOutput        bool
	noPrompt             bool
	excludeMarkdown      bool
	excludeRaw           bool
	excludeCode          bool
	removeTags           []string
	removeInputTags      []string
	removeOutputTags     []string
	clearExecutionCounts bool
}

// htmlFlags holds HTML safety, embedding, and math flags.
type htmlFlags struct {
	sanitize    bool
	embedImages bool
	noMathJax   bool
	mathJaxURL  string
}

// cliFlags holds all flags of the nb2html command.
type cliFlags struct {
	common  commonFlags
	timeout  string
	title    string
	template string
	style   styleFlags
	cells   cellFlags
	html    htmlFlags
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show warnings and timing")
	fs.BoolVar(&f.version, "version", false, "show version information")
}

// addStyleFlags adds styling flags to a FlagSet.
func addStyleFlags(fs *flag.FlagSet, f *styleFlags) {
	fs.StringVar(&f.style, "style", "", "page style name or CSS file path")
	fs.StringVar(&f.highlight, "highlight-style", "", "code highlighting style (default: github)")
	fs.StringVar(&f.assetPath, "asset-path", "", "custom asset directory")
	fs.StringVar(&f.css, "css", "", "extra CSS file")
}

// addCellFlags adds cell selection flags to a FlagSet.
func addCellFlags(fs *flag.FlagSet, f *cellFlags) {
	fs.BoolVar(&f.excludeInput, "exclude-input", false, "hide code cell inputs")
	fs.BoolVar(&f.excludeOutput, "exclude-output", false, "hide code cell outputs")
	fs.BoolVar(&f.noPrompt, "no-prompt", false, "hide In/Out prompts")
	fs.BoolVar(&f.excludeMarkdown, "exclude-markdown", false, "drop markdown cells")
	fs.BoolVar(&f.excludeRaw, "exclude-raw", false, "drop raw cells")
	fs.BoolVar(&f.excludeCode, "exclude-code", false, "drop code cells")
	fs.StringSliceVar(&f.removeTags, "remove-tag", nil, "drop cells with this tag (repeatable)")
	fs.StringSliceVar(&f.removeInputTags, "remove-input-tag", nil, "hide inputs of cells with this tag (repeatable)")
	fs.StringSliceVar(&f.removeOutputTags, "remove-output-tag", nil, "hide outputs of cells with this tag (repeatable)")
	fs.BoolVar(&f.clearExecutionCounts, "clear-execution-counts", false, "render blank execution counts")
}

// addHTMLFlags adds HTML output flags to a FlagSet.
func addHTMLFlags(fs *flag.FlagSet, f *htmlFlags) {
	fs.BoolVar(&f.sanitize, "sanitize", false, "drop raw HTML and JavaScript")
	fs.BoolVar(&f.embedImages, "embed-images", false, "inline local images as data URIs")
	fs.BoolVar(&f.noMathJax, "no-mathjax", false, "do not load MathJax")
	fs.StringVar(&f.mathJaxURL, "mathjax-url", "", "MathJax script URL")
}

// parseFlags parses command-line flags and returns positional args.
// Returns flag.ErrHelp when -h or --help is given.
func parseFlags(args []string) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet("nb2html", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // errors are reported by runMain
	fs.SortFlags = false
	f := &cliFlags{}

	fs.StringVarP(&f.timeout, "timeout", "t", "", "conversion timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.title, "title", "", "page title (\"\" = metadata, file name, first H1)")
	fs.StringVar(&f.template, "template", "", "page template name (default: notebook)")

	// Flag groups
	addCommonFlags(fs, &f.common)
	addStyleFlags(fs, &f.style)
	addCellFlags(fs, &f.cells)
	addHTMLFlags(fs, &f.html)

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return f, fs.Args(), nil
}
