package pipeline

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// token builds the placeholder ProtectMath emits for span i.
func token(i string) string {
	return MathStartPlaceholder + i + MathEndPlaceholder
}

func TestProtectMath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		want      string
		wantSpans MathSpans
	}{
		{
			name:  "no math",
			input: "plain *text*",
			want:  "plain *text*",
		},
		{
			name:      "inline dollars",
			input:     `Euler: $e^{i\pi}+1=0$.`,
			want:      "Euler: " + token("0") + ".",
			wantSpans: MathSpans{`$e^{i\pi}+1=0$`},
		},
		{
			name:      "display dollars across lines",
			input:     "$$\n\\int_0^1 x\\,dx\n$$\n",
			want:      token("0") + "\n",
			wantSpans: MathSpans{"$$\n\\int_0^1 x\\,dx\n$$"},
		},
		{
			name:      "bracket delimiters",
			input:     `inline \(a_1\) and display \[b^2\]`,
			want:      "inline " + token("0") + " and display " + token("1"),
			wantSpans: MathSpans{`\(a_1\)`, `\[b^2\]`},
		},
		{
			name:  "escaped dollars are prose",
			input: `costs \$5 and \$6`,
			want:  `costs \$5 and \$6`,
		},
		{
			name:  "currency with spaces is prose",
			input: "between $5 and $ 6",
			want:  "between $5 and $ 6",
		},
		{
			name:  "inline code untouched",
			input: "use `$x$` literally",
			want:  "use `$x$` literally",
		},
		{
			name:      "math around inline code",
			input:     "$a$ `$b$` $c$",
			want:      token("0") + " `$b$` " + token("1"),
			wantSpans: MathSpans{"$a$", "$c$"},
		},
		{
			name:  "fenced code untouched",
			input: "```python\nx = '$y$'\n```\n",
			want:  "```python\nx = '$y$'\n```\n",
		},
		{
			name:      "math after fence closes",
			input:     "~~~\n$no$\n~~~\n$yes$\n",
			want:      "~~~\n$no$\n~~~\n" + token("0") + "\n",
			wantSpans: MathSpans{"$yes$"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, spans := ProtectMath(tt.input)
			if got != tt.want {
				t.Errorf("ProtectMath() text = %q, want %q", got, tt.want)
			}
			if diff := cmp.Diff(tt.wantSpans, spans, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("ProtectMath() spans mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRestoreMath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		html  string
		spans MathSpans
		want  string
	}{
		{
			name: "no spans",
			html: "<p>x</p>",
			want: "<p>x</p>",
		},
		{
			name:  "inline escaped",
			html:  "<p>" + token("0") + "</p>",
			spans: MathSpans{"$a<b$"},
			want:  "<p>$a&lt;b$</p>",
		},
		{
			name:  "display wrapped",
			html:  "<p>" + token("0") + "</p>",
			spans: MathSpans{"$$x$$"},
			want:  `<p><span class="nb-math-display">$$x$$</span></p>`,
		},
		{
			name:  "out of range index kept",
			html:  token("7"),
			spans: MathSpans{"$a$"},
			want:  token("7"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := RestoreMath(tt.html, tt.spans); got != tt.want {
				t.Errorf("RestoreMath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreprocessMarkdown(t *testing.T) {
	t.Parallel()

	t.Run("normalizes and protects", func(t *testing.T) {
		t.Parallel()

		got, spans := PreprocessMarkdown(context.Background(), "a\r\n\r\n\r\n\r\nb $x$\r")
		want := "a\n\nb " + token("0") + "\n"
		if got != want {
			t.Errorf("PreprocessMarkdown() = %q, want %q", got, want)
		}
		if len(spans) != 1 || spans[0] != "$x$" {
			t.Errorf("PreprocessMarkdown() spans = %v", spans)
		}
	})

	t.Run("fenced code keeps blank lines", func(t *testing.T) {
		t.Parallel()

		in := "```\na\n\n\n\nb\n```\n"
		got, spans := PreprocessMarkdown(context.Background(), in)
		if got != in {
			t.Errorf("PreprocessMarkdown() = %q, want %q", got, in)
		}
		if len(spans) != 0 {
			t.Errorf("PreprocessMarkdown() spans = %v, want none", spans)
		}
	})

	t.Run("prose around fence is compressed", func(t *testing.T) {
		t.Parallel()

		in := "x\n\n\n\n```\na\n\n\n\nb\n```\n\n\n\ny"
		want := "x\n\n```\na\n\n\n\nb\n```\n\ny"
		got, _ := PreprocessMarkdown(context.Background(), in)
		if got != want {
			t.Errorf("PreprocessMarkdown() = %q, want %q", got, want)
		}
	})

	t.Run("cancelled context returns input", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		got, spans := PreprocessMarkdown(ctx, "$x$")
		if got != "$x$" || spans != nil {
			t.Errorf("PreprocessMarkdown() = %q, %v; want input unchanged", got, spans)
		}
	})
}
