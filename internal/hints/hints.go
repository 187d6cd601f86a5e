// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"
)

// TimeoutEnvVar is consulted by ForTimeout to avoid suggesting a variable
// the user already set.
const TimeoutEnvVar = "NB2HTML_TIMEOUT"

// ForTimeout returns a hint about increasing timeout for slow operations.
func ForTimeout() string {
	hints := []string{"for large notebooks, use --timeout flag"}
	if os.Getenv(TimeoutEnvVar) == "" {
		hints = append(hints, "or set "+TimeoutEnvVar)
	}
	return format(strings.Join(hints, " "))
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-nb2html/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	// Find a user config path (contains .config/go-nb2html) to suggest
	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-nb2html") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForStyleNotFound returns hints for style not found errors.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForParse returns hints for notebooks that are not valid nbformat JSON.
func ForParse() string {
	return formatHints([]string{
		"check the file is a Jupyter notebook (.ipynb)",
		"open and re-save it in Jupyter to repair the JSON",
	})
}

// ForUnsupportedVersion returns hints for notebooks with an unsupported
// nbformat major version.
func ForUnsupportedVersion() string {
	return format("upgrade the notebook with: jupyter nbconvert --to notebook --nbformat 4")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
