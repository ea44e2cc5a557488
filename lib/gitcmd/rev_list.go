package gitcmd

import (
	"io"
	"strings"

	"github.com/pescuma/pushguard/lib/model"
)

// RevListHandler reads the output of git rev-list --parents.
type RevListHandler struct {
	commits []model.Commit
}

func NewRevListHandler() *RevListHandler {
	return &RevListHandler{}
}

func (h *RevListHandler) Process(r io.Reader) error {
	return forEachLine(r, func(line string) error {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil
		}

		ids := make([]model.ObjectID, 0, len(fields))
		for _, f := range fields {
			if !model.IsObjectID(f) {
				return nil
			}
			ids = append(ids, model.ObjectID(f))
		}

		h.commits = append(h.commits, model.NewCommit(ids[0], ids[1:]...))
		return nil
	})
}

func (h *RevListHandler) Output() []model.Commit {
	return h.commits
}
