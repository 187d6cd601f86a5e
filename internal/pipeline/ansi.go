package pipeline

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

// ansiColors are the base color names, indexed by SGR offset (30-37, 40-47).
var ansiColors = [8]string{"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white"}

// ansiEscape matches CSI sequences. Only SGR (final byte 'm') is rendered;
// cursor movement and the like are dropped.
var ansiEscape = regexp.MustCompile(`\x1b\[([0-9;?]*)([A-Za-z])`)

// ansiState is the text attribute state between SGR sequences.
type ansiState struct {
	fg, bg          string // class suffix or "" for default
	fgRGB, bgRGB    string // inline color for 256-color and truecolor
	bold, underline bool
	italic          bool
}

func (s ansiState) isZero() bool {
	return s == ansiState{}
}

// open returns the <span> opening tag for s.
func (s ansiState) open() string {
	var classes, styles []string
	if s.fg != "" {
		classes = append(classes, "ansi-"+s.fg+"-fg")
	}
	if s.bg != "" {
		classes = append(classes, "ansi-"+s.bg+"-bg")
	}
	if s.bold {
		classes = append(classes, "ansi-bold")
	}
	if s.underline {
		classes = append(classes, "ansi-underline")
	}
	if s.italic {
		classes = append(classes, "ansi-italic")
	}
	if s.fgRGB != "" {
		styles = append(styles, "color: "+s.fgRGB)
	}
	if s.bgRGB != "" {
		styles = append(styles, "background-color: "+s.bgRGB)
	}

	var b strings.Builder
	b.WriteString("<span")
	if len(classes) > 0 {
		b.WriteString(` class="` + strings.Join(classes, " ") + `"`)
	}
	if len(styles) > 0 {
		b.WriteString(` style="` + strings.Join(styles, "; ") + `"`)
	}
	b.WriteString(">")
	return b.String()
}

// ANSIToHTML escapes text for HTML and converts ANSI SGR color and style
// sequences into <span> elements with ansi-* classes.
func ANSIToHTML(text string) string {
	var (
		out   strings.Builder
		state ansiState
		last  int
	)

	write := func(chunk string) {
		if chunk == "" {
			return
		}
		if state.isZero() {
			out.WriteString(html.EscapeString(chunk))
			return
		}
		out.WriteString(state.open())
		out.WriteString(html.EscapeString(chunk))
		out.WriteString("</span>")
	}

	for _, m := range ansiEscape.FindAllStringSubmatchIndex(text, -1) {
		write(text[last:m[0]])
		last = m[1]
		if text[m[4]:m[5]] == "m" {
			state = applySGR(state, text[m[2]:m[3]])
		}
	}
	write(text[last:])

	return out.String()
}

// StripANSI removes all CSI escape sequences from text.
func StripANSI(text string) string {
	return ansiEscape.ReplaceAllString(text, "")
}

// applySGR applies the semicolon-separated SGR parameters to s.
func applySGR(s ansiState, params string) ansiState {
	if params == "" {
		return ansiState{}
	}

	codes := strings.Split(params, ";")
	for i := 0; i < len(codes); i++ {
		code, err := strconv.Atoi(codes[i])
		if err != nil {
			continue
		}

		switch {
		case code == 0:
			s = ansiState{}
		case code == 1:
			s.bold = true
		case code == 3:
			s.italic = true
		case code == 4:
			s.underline = true
		case code == 22:
			s.bold = false
		case code == 23:
			s.italic = false
		case code == 24:
			s.underline = false
		case code >= 30 && code <= 37:
			s.fg, s.fgRGB = ansiColors[code-30], ""
		case code == 39:
			s.fg, s.fgRGB = "", ""
		case code >= 40 && code <= 47:
			s.bg, s.bgRGB = ansiColors[code-40], ""
		case code == 49:
			s.bg, s.bgRGB = "", ""
		case code >= 90 && code <= 97:
			s.fg, s.fgRGB = ansiColors[code-90]+"-intense", ""
		case code >= 100 && code <= 107:
			s.bg, s.bgRGB = ansiColors[code-100]+"-intense", ""
		case code == 38 || code == 48:
			color, consumed := extendedColor(codes[i+1:])
			i += consumed
			if color == "" {
				continue
			}
			if code == 38 {
				s.fg, s.fgRGB = "", color
			} else {
				s.bg, s.bgRGB = "", color
			}
		}
	}
	return s
}

// extendedColor parses the arguments following 38 or 48: either
// "5;n" (256-color palette) or "2;r;g;b". It returns a CSS color and the
// number of parameters consumed.
func extendedColor(args []string) (string, int) {
	if len(args) == 0 {
		return "", 0
	}
	switch args[0] {
	case "5":
		if len(args) < 2 {
			return "", len(args)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 || n > 255 {
			return "", 2
		}
		return palette256(n), 2
	case "2":
		if len(args) < 4 {
			return "", len(args)
		}
		var rgb [3]int
		for i := range rgb {
			v, err := strconv.Atoi(args[i+1])
			if err != nil || v < 0 || v > 255 {
				return "", 4
			}
			rgb[i] = v
		}
		return fmt.Sprintf("rgb(%d, %d, %d)", rgb[0], rgb[1], rgb[2]), 4
	}
	return "", 1
}

// palette256 returns the xterm 256-color palette entry n as a CSS color.
func palette256(n int) string {
	switch {
	case n < 16:
		// System colors; approximate with the xterm defaults.
		system := [16][3]int{
			{0, 0, 0}, {205, 0, 0}, {0, 205, 0}, {205, 205, 0},
			{0, 0, 238}, {205, 0, 205}, {0, 205, 205}, {229, 229, 229},
			{127, 127, 127}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
			{92, 92, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
		}
		c := system[n]
		return fmt.Sprintf("rgb(%d, %d, %d)", c[0], c[1], c[2])
	case n < 232:
		n -= 16
		level := func(v int) int {
			if v == 0 {
				return 0
			}
			return 55 + v*40
		}
		return fmt.Sprintf("rgb(%d, %d, %d)", level(n/36), level((n/6)%6), level(n%6))
	default:
		gray := 8 + (n-232)*10
		return fmt.Sprintf("rgb(%d, %d, %d)", gray, gray, gray)
	}
}
