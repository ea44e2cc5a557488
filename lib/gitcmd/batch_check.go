package gitcmd

import (
	"io"
	"strconv"
	"strings"

	"github.com/pescuma/pushguard/lib/model"
)

// BatchCheckHandler reads the output of git cat-file --batch-check.
type BatchCheckHandler struct {
	sizes map[model.ObjectID]int64
}

func NewBatchCheckHandler() *BatchCheckHandler {
	return &BatchCheckHandler{
		sizes: make(map[model.ObjectID]int64),
	}
}

func (h *BatchCheckHandler) Process(r io.Reader) error {
	return forEachLine(r, func(line string) error {
		fields := strings.Fields(line)

		// Only blobs are files. Trees, missing objects and garbage are dropped.
		if len(fields) != 3 || fields[1] != "blob" || !model.IsObjectID(fields[0]) {
			return nil
		}

		size, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil || size < 0 {
			return nil
		}

		h.sizes[model.ObjectID(fields[0])] = size
		return nil
	})
}

func (h *BatchCheckHandler) Output() map[model.ObjectID]int64 {
	return h.sizes
}
