package gitcmd

import (
	"io"
)

// FirstLineHandler keeps the first line of output and drains the rest.
type FirstLineHandler struct {
	line  string
	found bool
}

func NewFirstLineHandler() *FirstLineHandler {
	return &FirstLineHandler{}
}

func (h *FirstLineHandler) Process(r io.Reader) error {
	return forEachLine(r, func(line string) error {
		if !h.found {
			h.line = line
			h.found = true
		}
		return nil
	})
}

func (h *FirstLineHandler) Output() (string, bool) {
	return h.line, h.found
}
