package gitcmd

import (
	"io"
	"strings"

	"github.com/pescuma/pushguard/lib/model"
)

const RefsFormat = "--format=%(objectname) %(refname)"

// RefsHandler reads the output of git for-each-ref with RefsFormat.
type RefsHandler struct {
	refs []model.Ref
}

func NewRefsHandler() *RefsHandler {
	return &RefsHandler{}
}

func (h *RefsHandler) Process(r io.Reader) error {
	return forEachLine(r, func(line string) error {
		id, name, ok := strings.Cut(line, " ")
		if !ok || !model.IsObjectID(id) || name == "" {
			return nil
		}

		h.refs = append(h.refs, model.Ref{
			Name:   name,
			Target: model.ObjectID(id),
		})
		return nil
	})
}

func (h *RefsHandler) Output() []model.Ref {
	return h.refs
}
