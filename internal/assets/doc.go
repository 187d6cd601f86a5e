// Package assets provides the CSS styles and the page template used to
// render notebooks as HTML.
//
// # Loader Architecture
//
// The package implements a layered loading system:
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (built-in styles)
//	    ├── FilesystemLoader  - loads from custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// EmbeddedLoader provides the built-in styles (default, dark, minimal) and
// the notebook page template, embedded at compile time.
//
// FilesystemLoader allows users to provide custom assets from a directory,
// with path traversal protection and symlink resolution.
//
// AssetResolver tries the custom FilesystemLoader first and falls back to
// EmbeddedLoader when the asset is not found, so a custom directory may
// override a single style without shipping the page template.
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── {name}.css           # Page style (e.g., dark.css)
//	└── templates/
//	    └── {name}.html          # html/template page (e.g., notebook.html)
//
// # Security
//
// Asset names are validated to prevent path traversal attacks.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
