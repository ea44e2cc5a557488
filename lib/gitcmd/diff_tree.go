package gitcmd

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pescuma/pushguard/lib/model"
)

var diffTreeRE = regexp.MustCompile(`^:(\d{6}) (\d{6}) ([0-9a-f]{40}|[0-9a-f]{64}) ([0-9a-f]{40}|[0-9a-f]{64}) ([ACDMRTUX])(\d{0,3})\t(.*)$`)

// DiffTreeHandler reads the raw output of git diff-tree -r, grouping changes by the commit
// header lines that precede them. Deletions are kept.
type DiffTreeHandler struct {
	maxPerCommit int

	current model.ObjectID
	changes map[model.ObjectID][]model.Change
	skipped map[model.ObjectID]int
}

// NewDiffTreeHandler creates a handler that keeps at most maxPerCommit changes per commit. Zero
// means no limit.
func NewDiffTreeHandler(maxPerCommit int) *DiffTreeHandler {
	return &DiffTreeHandler{
		maxPerCommit: maxPerCommit,
		changes:      make(map[model.ObjectID][]model.Change),
		skipped:      make(map[model.ObjectID]int),
	}
}

func (h *DiffTreeHandler) Process(r io.Reader) error {
	return forEachLine(r, func(line string) error {
		if !strings.HasPrefix(line, ":") {
			h.processHeader(line)
			return nil
		}

		m := diffTreeRE.FindStringSubmatch(line)
		if m == nil {
			return nil
		}

		if h.maxPerCommit > 0 && len(h.changes[h.current]) >= h.maxPerCommit {
			h.skipped[h.current]++
			return nil
		}

		// Renames and copies list source and destination
		paths := strings.Split(m[7], "\t")

		h.changes[h.current] = append(h.changes[h.current], model.Change{
			Path:      unquotePath(paths[len(paths)-1]),
			ContentID: model.ObjectID(m[4]),
			Type:      model.ParseChangeType(m[5][0]),
		})
		return nil
	})
}

func (h *DiffTreeHandler) processHeader(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 || !model.IsObjectID(fields[0]) {
		return
	}

	h.current = model.ObjectID(fields[0])
	if _, ok := h.changes[h.current]; !ok {
		h.changes[h.current] = nil
	}
}

// Output returns the changes by commit. Changes that came before any commit header are under
// the empty id.
func (h *DiffTreeHandler) Output() map[model.ObjectID][]model.Change {
	return h.changes
}

// Skipped returns how many changes were dropped per commit because of the limit.
func (h *DiffTreeHandler) Skipped() map[model.ObjectID]int {
	return h.skipped
}

func unquotePath(path string) string {
	if !strings.HasPrefix(path, `"`) {
		return path
	}

	result, err := strconv.Unquote(path)
	if err != nil {
		return path
	}
	return result
}
