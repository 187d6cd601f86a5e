package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"

	"github.com/alnah/go-nb2html/internal/notebook"
)

// MimePriority is the display order for rich outputs: the first type
// present in a bundle is rendered.
var MimePriority = []string{
	"application/javascript",
	"text/html",
	"text/markdown",
	"image/svg+xml",
	"text/latex",
	"image/png",
	"image/jpeg",
	"image/gif",
	"application/json",
	"text/plain",
}

// unsafeMimeTypes are skipped when sanitizing.
var unsafeMimeTypes = map[string]bool{
	"application/javascript": true,
	"text/html":              true,
}

// imageExtensions maps extractable MIME types to file extensions.
var imageExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
}

// outputView is one rendered output as seen by the page template.
type outputView struct {
	Type   string
	Class  string
	Prompt string
	Body   template.HTML
}

// imageSize holds the optional per-image display metadata.
type imageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// renderOutput renders a single output. A nil view with a nil error means
// the output was skipped.
func (r *exportRun) renderOutput(ctx context.Context, cellIdx, outIdx int, out notebook.Output) (*outputView, error) {
	switch out.OutputType {
	case notebook.OutputStream:
		view := &outputView{
			Type: "stream",
			Body: template.HTML("<pre>" + ANSIToHTML(out.Text.String()) + "</pre>"),
		}
		if out.Name == "stderr" {
			view.Class = "nb-stderr"
		}
		return view, nil

	case notebook.OutputError:
		text := strings.Join(out.Traceback, "\n")
		if text == "" {
			text = out.EName + ": " + out.EValue
		}
		return &outputView{
			Type: "error",
			Body: template.HTML("<pre>" + ANSIToHTML(text) + "</pre>"),
		}, nil

	case notebook.OutputDisplayData, notebook.OutputExecuteResult:
		body, ok, err := r.renderBundle(ctx, cellIdx, outIdx, out)
		if err != nil {
			return nil, err
		}
		if !ok {
			r.warnf("cell %d output %d: no renderable MIME type in %v", cellIdx, outIdx, out.Data.Types())
			return nil, nil
		}
		view := &outputView{
			Type: strings.ReplaceAll(out.OutputType, "_", "-"),
			Body: body,
		}
		if out.OutputType == notebook.OutputExecuteResult {
			view.Prompt = r.prompt("Out", out.ExecutionCount, r.opts.ExcludeOutputPrompt)
		}
		return view, nil

	default:
		return nil, fmt.Errorf("%w: %w: cell %d output %d has type %q",
			ErrRender, ErrUnsupportedOutputType, cellIdx, outIdx, out.OutputType)
	}
}

// selectMimeType returns the highest-priority type in bundle that the
// current options allow.
func (r *exportRun) selectMimeType(bundle notebook.MimeBundle) (string, bool) {
	for _, mimeType := range MimePriority {
		if r.opts.Sanitize && unsafeMimeTypes[mimeType] {
			continue
		}
		if bundle.Has(mimeType) {
			return mimeType, true
		}
	}
	return "", false
}

// renderBundle renders the preferred representation of a rich output.
func (r *exportRun) renderBundle(ctx context.Context, cellIdx, outIdx int, out notebook.Output) (template.HTML, bool, error) {
	mimeType, ok := r.selectMimeType(out.Data)
	if !ok {
		return "", false, nil
	}

	text, err := out.Data.Text(mimeType)
	if err != nil {
		return "", false, fmt.Errorf("%w: cell %d output %d: %w", ErrRender, cellIdx, outIdx, err)
	}

	switch mimeType {
	case "application/javascript":
		script := strings.ReplaceAll(text, "</script", `<\/script`)
		return template.HTML(`<script type="text/javascript">` + script + `</script>`), true, nil

	case "text/html":
		return template.HTML(text), true, nil

	case "text/markdown":
		fragment, err := r.markdown(ctx, text, nil)
		if err != nil {
			return "", false, fmt.Errorf("cell %d output %d: %w", cellIdx, outIdx, err)
		}
		return template.HTML(fragment), true, nil

	case "text/latex":
		r.usesMath = true
		return template.HTML(`<div class="nb-latex">` + html.EscapeString(text) + `</div>`), true, nil

	case "image/svg+xml":
		r.extract(cellIdx, outIdx, mimeType, []byte(text))
		if r.opts.Sanitize {
			encoded := base64.StdEncoding.EncodeToString([]byte(text))
			return r.imageTag(mimeType, encoded, out), true, nil
		}
		return template.HTML(text), true, nil

	case "image/png", "image/jpeg", "image/gif":
		encoded := strings.Join(strings.Fields(text), "")
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return "", false, fmt.Errorf("%w: cell %d output %d: decoding %s: %v", ErrRender, cellIdx, outIdx, mimeType, err)
		}
		r.extract(cellIdx, outIdx, mimeType, data)
		return r.imageTag(mimeType, encoded, out), true, nil

	case "application/json":
		return template.HTML(`<pre class="nb-json">` + html.EscapeString(text) + `</pre>`), true, nil

	default: // text/plain
		return template.HTML("<pre>" + ANSIToHTML(text) + "</pre>"), true, nil
	}
}

// imageTag builds an <img> with a data URI, sized from output metadata and
// labeled with the text/plain representation when present.
func (r *exportRun) imageTag(mimeType, encoded string, out notebook.Output) template.HTML {
	var b strings.Builder
	b.WriteString(`<img src="data:`)
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(encoded)
	b.WriteString(`"`)

	if raw, ok := out.Metadata[mimeType]; ok {
		var size imageSize
		if err := json.Unmarshal(raw, &size); err == nil {
			if size.Width > 0 {
				b.WriteString(` width="` + strconv.FormatFloat(size.Width, 'f', -1, 64) + `"`)
			}
			if size.Height > 0 {
				b.WriteString(` height="` + strconv.FormatFloat(size.Height, 'f', -1, 64) + `"`)
			}
		}
	}
	if alt, err := out.Data.Text("text/plain"); err == nil && alt != "" {
		b.WriteString(` alt="` + html.EscapeString(StripANSI(alt)) + `"`)
	}

	b.WriteString(">")
	return template.HTML(b.String())
}

// extract records a binary output in the resource bundle.
func (r *exportRun) extract(cellIdx, outIdx int, mimeType string, data []byte) {
	name := fmt.Sprintf("output_%d_%d%s", cellIdx, outIdx, imageExtensions[mimeType])
	r.res.Outputs[name] = data
}
