// Package pipeline implements the notebook-to-HTML export pipeline.
//
// This package turns a parsed notebook into a standalone HTML page:
//   - Markdown cell preprocessing (line normalization, math protection)
//   - Markdown to HTML conversion via Goldmark
//   - Code cell highlighting via Chroma
//   - Output rendering by MIME priority, ANSI color conversion, stream coalescing
//   - Attachment and local image embedding as data URIs
//   - Page template rendering and CSS injection
//
// Parsing lives in internal/notebook and writing the page to disk is
// handled by the root nb2html package. The exporter never touches the
// filesystem except to read local images when image embedding is enabled.
package pipeline
