package model

import (
	"strings"
)

type ChangeType int

const (
	ChangeUnknown ChangeType = iota
	ChangeAdd
	ChangeModify
	ChangeDelete
	ChangeRename
	ChangeCopy
	ChangeTypeChange
	ChangeUnmerged
)

// ParseChangeType maps a git raw diff status letter to a ChangeType.
func ParseChangeType(status byte) ChangeType {
	switch status {
	case 'A':
		return ChangeAdd
	case 'M':
		return ChangeModify
	case 'D':
		return ChangeDelete
	case 'R':
		return ChangeRename
	case 'C':
		return ChangeCopy
	case 'T':
		return ChangeTypeChange
	case 'U':
		return ChangeUnmerged
	default:
		return ChangeUnknown
	}
}

func (t ChangeType) String() string {
	switch t {
	case ChangeAdd:
		return "ADD"
	case ChangeModify:
		return "MODIFY"
	case ChangeDelete:
		return "DELETE"
	case ChangeRename:
		return "RENAME"
	case ChangeCopy:
		return "COPY"
	case ChangeTypeChange:
		return "TYPE_CHANGE"
	case ChangeUnmerged:
		return "UNMERGED"
	default:
		return "UNKNOWN"
	}
}

// Change is a file level change of one commit. ContentID is the blob after the change.
type Change struct {
	Path      string
	ContentID ObjectID
	Type      ChangeType
}

func (c Change) IsDelete() bool {
	return c.Type == ChangeDelete
}

func (c Change) Segments() []string {
	return strings.Split(c.Path, "/")
}
