package policy

import (
	"fmt"
	"io"
	"strings"

	"github.com/aquilax/truncate"
	"github.com/dustin/go-humanize"
	"github.com/gertd/go-pluralize"
)

const maxPathLength = 200

// WriteReport writes the message shown to the pusher when the push breaks any rule. It writes
// nothing for a push that passed.
func WriteReport(w io.Writer, result *Result) error {
	if result.Passed() {
		return nil
	}

	pc := pluralize.NewClient()
	b := strings.Builder{}

	for _, maxSize := range result.MaxSizes() {
		vs := result.SizeViolationsOf(maxSize)

		b.WriteString("=== File Size Hook ===\n")
		b.WriteString("\n")
		for _, v := range vs {
			b.WriteString(fmt.Sprintf("File [%v] is too large. Maximum allowed file size is %v bytes (%v), file has %v.\n",
				shortPath(v.Path), v.MaxSize, humanize.Bytes(uint64(v.MaxSize)), humanize.Bytes(uint64(v.Size))))
		}
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%v over the limit. You may want to use Git Large File Storage for them.\n",
			pc.Pluralize("file", len(vs), true)))
		b.WriteString("======================\n")
	}

	if len(result.NameViolations) > 0 {
		b.WriteString("=================================\n")
		for _, v := range result.NameViolations {
			v.Path = shortPath(v.Path)
			b.WriteString(v.String())
			b.WriteString("\n")
		}
		b.WriteString("=================================\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func shortPath(path string) string {
	return truncate.Truncate(path, maxPathLength, "...", truncate.PositionMiddle)
}
