package main

import (
	"fmt"
	"io"
	"strings"

	nb2html "github.com/alnah/go-nb2html"
)

// printUsage prints the usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: nb2html [flags] <input.ipynb> <output.html>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert a Jupyter notebook to a static HTML page.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input     Notebook file (nbformat 4, or 3 which is upgraded)")
	fmt.Fprintln(w, "  output    HTML file to create or overwrite")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "General:")
	fmt.Fprintln(w, "  -c, --config <name>          Config file name or path")
	fmt.Fprintln(w, "  -t, --timeout <d>            Conversion timeout (default 30s)")
	fmt.Fprintln(w, "      --title <s>              Page title (\"\" = metadata, file name, first H1)")
	fmt.Fprintln(w, "      --template <name>        Page template from --asset-path (default: notebook)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Styling:")
	fmt.Fprintf(w, "      --style <name|path>      Page style: %s\n", strings.Join(nb2html.AvailableStyles(), ", "))
	fmt.Fprintln(w, "      --highlight-style <s>    Code highlighting style (default: github)")
	fmt.Fprintln(w, "      --asset-path <dir>       Custom styles/ and templates/ directory")
	fmt.Fprintln(w, "      --css <path>             Extra CSS file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Cells:")
	fmt.Fprintln(w, "      --exclude-input          Hide code cell inputs")
	fmt.Fprintln(w, "      --exclude-output         Hide code cell outputs")
	fmt.Fprintln(w, "      --no-prompt              Hide In/Out prompts")
	fmt.Fprintln(w, "      --exclude-markdown       Drop markdown cells")
	fmt.Fprintln(w, "      --exclude-raw            Drop raw cells")
	fmt.Fprintln(w, "      --exclude-code           Drop code cells")
	fmt.Fprintln(w, "      --remove-tag <t>         Drop cells tagged t (repeatable)")
	fmt.Fprintln(w, "      --remove-input-tag <t>   Hide inputs of cells tagged t")
	fmt.Fprintln(w, "      --remove-output-tag <t>  Hide outputs of cells tagged t")
	fmt.Fprintln(w, "      --clear-execution-counts Render blank execution counts")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "HTML:")
	fmt.Fprintln(w, "      --sanitize               Drop raw HTML and JavaScript")
	fmt.Fprintln(w, "      --embed-images           Inline local images as data URIs")
	fmt.Fprintln(w, "      --no-mathjax             Do not load MathJax")
	fmt.Fprintln(w, "      --mathjax-url <url>      MathJax script URL")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet                  Only show errors")
	fmt.Fprintln(w, "  -v, --verbose                Show warnings and timing")
	fmt.Fprintln(w, "      --version                Show version information")
	fmt.Fprintln(w, "  -h, --help                   Show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  NB2HTML_CONFIG, NB2HTML_STYLE, NB2HTML_TIMEOUT,")
	fmt.Fprintln(w, "  NB2HTML_ASSET_PATH, NB2HTML_MATHJAX_URL")
	fmt.Fprintln(w, "  Precedence: flags > environment > config file > defaults")
}

// printVersion prints the version line.
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "nb2html %s\n", Version)
}
