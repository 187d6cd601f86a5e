// Package nb2html converts Jupyter notebooks (.ipynb) to static HTML pages.
//
// # Quick Start
//
// Create a converter and convert a notebook file:
//
//	conv, err := nb2html.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := conv.ConvertFile(ctx, "analysis.ipynb", "analysis.html", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(len(result.HTML), "bytes written")
//
// The result carries the HTML and a Resources bundle: the inlined CSS,
// extracted image outputs, and non-fatal warnings. Resources are returned,
// never written to disk.
//
// # Conversion Pipeline
//
// The conversion process follows these stages:
//
//  1. Parse the nbformat JSON at schema version 4 (version 3 is upgraded)
//  2. Render cells: markdown via Goldmark, code via Chroma, outputs by MIME
//     priority, ANSI escape sequences to styled spans
//  3. Execute the page template and inject CSS
//  4. Write the HTML to the output path
//
// Stages 1 and 2 complete before the output file is opened, so a notebook
// that fails to parse or render leaves the output path untouched.
//
// # Configuration
//
// Use functional options to customize the converter:
//
//	conv, err := nb2html.NewConverter(
//	    nb2html.WithTimeout(2 * time.Minute),
//	    nb2html.WithStyle("dark"),
//	    nb2html.WithAssetPath("/path/to/custom/assets"),
//	)
//
// Per-conversion options are passed via RenderOptions:
//
//	result, err := conv.ConvertFile(ctx, in, out, &nb2html.RenderOptions{
//	    Title:          "Quarterly Report",
//	    ExcludeInput:   true,
//	    RemoveCellTags: []string{"scratch"},
//	    Sanitize:       true,
//	})
//
// # Errors
//
// Failures match one of ErrParse, ErrRender, or ErrWrite with errors.Is.
// More specific sentinels (ErrUnsupportedVersion, ErrUnsupportedCellType,
// ...) are wrapped alongside them.
//
// # Custom Assets
//
// Override the built-in styles and page template using AssetLoader:
//
//	loader, err := nb2html.NewAssetLoader("/path/to/assets")
//	conv, err := nb2html.NewConverter(nb2html.WithAssetLoader(loader))
//
// Asset directory structure:
//
//	assets/
//	├── styles/
//	│   └── custom.css
//	└── templates/
//	    └── notebook.html
package nb2html
