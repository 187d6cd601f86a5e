package notebook

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// cellIDLength matches the length nbformat uses for generated ids.
const cellIDLength = 8

// validCellID is the nbformat 4.5 cell id pattern.
var validCellID = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// cellIDNamespace seeds generated ids so they are stable across runs.
var cellIDNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://jupyter.org/nbformat/cell-id"))

// EnsureCellIDs gives every cell a valid id that is unique within cells.
// Existing valid ids are kept; missing, malformed, or repeated ids are
// replaced with ids derived from the cell position and source.
func EnsureCellIDs(cells []Cell) {
	seen := make(map[string]bool, len(cells))
	for i := range cells {
		id := cells[i].ID
		if id == "" || !validCellID.MatchString(id) || seen[id] {
			id = deriveCellID(i, &cells[i], seen)
			cells[i].ID = id
		}
		seen[id] = true
	}
}

// deriveCellID hashes the cell index, type, and source. On the rare
// collision with an existing id, an attempt counter is mixed in.
func deriveCellID(index int, cell *Cell, seen map[string]bool) string {
	for attempt := 0; ; attempt++ {
		name := fmt.Sprintf("%d\x00%d\x00%s\x00%s", index, attempt, cell.CellType, cell.Source)
		id := strings.ReplaceAll(uuid.NewSHA1(cellIDNamespace, []byte(name)).String(), "-", "")[:cellIDLength]
		if !seen[id] {
			return id
		}
	}
}
