package pipeline

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-nb2html/internal/notebook"
)

// MaxEmbeddedImageSize caps the size of a local image read for embedding.
const MaxEmbeddedImageSize int64 = 20 << 20

// attachmentPrefix marks image sources that refer to cell attachments.
const attachmentPrefix = "attachment:"

// attachmentMimeTypes lists attachment payload types in preference order.
var attachmentMimeTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp", "image/svg+xml"}

// ImageSources describes where img[src] values in a markdown fragment may
// be resolved from.
type ImageSources struct {
	// Attachments of the cell the fragment was rendered from.
	Attachments map[string]notebook.MimeBundle

	// SourceDir enables embedding of relative local images found under it.
	// Empty disables local embedding.
	SourceDir string
}

// RewriteImageSources replaces img[src] values with data URIs:
//   - "attachment:NAME" is resolved from the cell attachments
//   - relative paths are read from SourceDir when it is set
//
// Unresolvable sources are left unchanged and reported as warnings.
//
// Does NOT rewrite (by design):
//   - absolute paths or URLs (left for the browser)
//   - paths escaping SourceDir, including through symlinks
//   - srcset attributes and CSS url() references
func RewriteImageSources(htmlContent string, src ImageSources) (string, []string, error) {
	if len(src.Attachments) == 0 && src.SourceDir == "" {
		return htmlContent, nil, nil
	}
	if !strings.Contains(strings.ToLower(htmlContent), "<img") {
		return htmlContent, nil, nil
	}

	absSourceDir := ""
	if src.SourceDir != "" {
		dir, err := filepath.Abs(src.SourceDir)
		if err != nil {
			return "", nil, err
		}
		absSourceDir = dir
	}

	doc, isFragment, err := parseHTML(htmlContent)
	if err != nil {
		return "", nil, err
	}

	rw := &imageRewriter{attachments: src.Attachments, sourceDir: absSourceDir}
	rw.rewriteNode(doc)

	out, err := renderHTML(doc, isFragment)
	if err != nil {
		return "", nil, err
	}
	return out, rw.warnings, nil
}

// parseHTML parses HTML content, handling both full documents and fragments.
// Returns the parsed node, whether it was a fragment, and any error.
func parseHTML(content string) (*html.Node, bool, error) {
	trimmed := strings.TrimSpace(content)

	// Full document: starts with <!DOCTYPE or <html
	if strings.HasPrefix(strings.ToLower(trimmed), "<!doctype") ||
		strings.HasPrefix(strings.ToLower(trimmed), "<html") {
		doc, err := html.Parse(strings.NewReader(content))
		return doc, false, err
	}

	// Fragment: parse with body context to avoid wrapping
	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), context)
	if err != nil {
		return nil, true, err
	}

	// Wrap nodes in a container for uniform traversal
	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}

	return container, true, nil
}

// renderHTML renders the document back to string.
// For fragments, only renders the children (avoids adding <html><body> wrapper).
func renderHTML(doc *html.Node, isFragment bool) (string, error) {
	var buf strings.Builder

	if isFragment {
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}

	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type imageRewriter struct {
	attachments map[string]notebook.MimeBundle
	sourceDir   string
	warnings    []string
}

// rewriteNode traverses the DOM and rewrites img sources.
func (rw *imageRewriter) rewriteNode(n *html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Img {
		for i, attr := range n.Attr {
			if attr.Key != "src" {
				continue
			}
			if uri, ok := rw.resolve(attr.Val); ok {
				n.Attr[i].Val = uri
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rw.rewriteNode(c)
	}
}

// resolve returns a data URI for src, or false to leave it unchanged.
func (rw *imageRewriter) resolve(src string) (string, bool) {
	if name, ok := strings.CutPrefix(src, attachmentPrefix); ok {
		return rw.fromAttachment(name)
	}
	if rw.sourceDir != "" && isRelativePath(src) {
		return rw.fromFile(src)
	}
	return "", false
}

func (rw *imageRewriter) fromAttachment(name string) (string, bool) {
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}

	bundle, ok := rw.attachments[name]
	if !ok {
		rw.warnf("attachment %q not found", name)
		return "", false
	}

	for _, mimeType := range attachmentMimeTypes {
		if !bundle.Has(mimeType) {
			continue
		}
		payload, err := bundle.Text(mimeType)
		if err != nil {
			rw.warnf("attachment %q: %v", name, err)
			return "", false
		}
		if mimeType == "image/svg+xml" {
			payload = base64.StdEncoding.EncodeToString([]byte(payload))
		} else {
			payload = strings.Join(strings.Fields(payload), "")
		}
		return dataURI(mimeType, payload), true
	}

	rw.warnf("attachment %q has no image payload (%v)", name, bundle.Types())
	return "", false
}

func (rw *imageRewriter) fromFile(src string) (string, bool) {
	rel := src
	if i := strings.IndexAny(rel, "?#"); i >= 0 {
		rel = rel[:i]
	}
	if decoded, err := url.PathUnescape(rel); err == nil {
		rel = decoded
	}

	absPath := filepath.Join(rw.sourceDir, filepath.FromSlash(rel))

	// Security: validate path is under sourceDir (prevent traversal)
	if !isPathUnderDir(absPath, rw.sourceDir) {
		rw.warnf("image %q is outside the notebook directory", src)
		return "", false
	}
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		realDir, dirErr := filepath.EvalSymlinks(rw.sourceDir)
		if dirErr != nil || !isPathUnderDir(resolved, realDir) {
			rw.warnf("image %q is outside the notebook directory", src)
			return "", false
		}
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(absPath)))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !strings.HasPrefix(mimeType, "image/") {
		rw.warnf("image %q has no image file extension", src)
		return "", false
	}

	info, err := os.Stat(absPath)
	if err != nil {
		rw.warnf("image %q: %v", src, err)
		return "", false
	}
	if info.Size() > MaxEmbeddedImageSize {
		rw.warnf("image %q exceeds %d bytes", src, MaxEmbeddedImageSize)
		return "", false
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- path contained under sourceDir
	if err != nil {
		rw.warnf("image %q: %v", src, err)
		return "", false
	}
	return dataURI(mimeType, base64.StdEncoding.EncodeToString(data)), true
}

func (rw *imageRewriter) warnf(format string, args ...any) {
	rw.warnings = append(rw.warnings, fmt.Sprintf(format, args...))
}

func dataURI(mimeType, base64Payload string) string {
	return "data:" + mimeType + ";base64," + base64Payload
}

// isRelativePath returns true if the path should be resolved locally.
func isRelativePath(path string) bool {
	if path == "" {
		return false
	}

	// Skip anything with a scheme (http, https, file, data, attachment)
	if u, err := url.Parse(path); err == nil && u.Scheme != "" {
		return false
	}

	// Skip protocol-relative URLs and anchors
	if strings.HasPrefix(path, "//") || strings.HasPrefix(path, "#") {
		return false
	}

	// Skip absolute paths
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return false
	}

	return true
}

// isPathUnderDir checks if absPath is under dir (prevents path traversal).
func isPathUnderDir(absPath, dir string) bool {
	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(dir)

	// Ensure dir ends with separator for correct prefix matching
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}

	// Path is under dir if it starts with dir/ or equals dir
	return strings.HasPrefix(cleanPath+string(filepath.Separator), cleanDir)
}
