package model

import (
	"fmt"
	"strings"
)

const (
	BranchPrefix = "refs/heads/"
	TagPrefix    = "refs/tags/"
)

type RefUpdateType int

const (
	RefAdd RefUpdateType = iota
	RefModify
	RefDelete
)

func (t RefUpdateType) String() string {
	switch t {
	case RefAdd:
		return "ADD"
	case RefModify:
		return "UPDATE"
	case RefDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("RefUpdateType(%d)", int(t))
	}
}

// RefUpdate is one pointer change in a push. From is meaningless for RefAdd and To for RefDelete.
type RefUpdate struct {
	Ref  string
	From ObjectID
	To   ObjectID
	Type RefUpdateType
}

func NewRefUpdate(ref string, from, to ObjectID) RefUpdate {
	t := RefModify
	switch {
	case from.IsZero():
		t = RefAdd
	case to.IsZero():
		t = RefDelete
	}

	return RefUpdate{
		Ref:  ref,
		From: from,
		To:   to,
		Type: t,
	}
}

func (u RefUpdate) IsTag() bool {
	return strings.HasPrefix(u.Ref, TagPrefix)
}

// DisplayID is the ref name without the refs/heads/ or refs/tags/ prefix.
func (u RefUpdate) DisplayID() string {
	return DisplayID(u.Ref)
}

func (u RefUpdate) String() string {
	return fmt.Sprintf("%v %v %v..%v", u.Type, u.Ref, u.From.Short(), u.To.Short())
}

func DisplayID(ref string) string {
	switch {
	case strings.HasPrefix(ref, BranchPrefix):
		return ref[len(BranchPrefix):]
	case strings.HasPrefix(ref, TagPrefix):
		return ref[len(TagPrefix):]
	default:
		return ref
	}
}

// Ref is an existing repository head.
type Ref struct {
	Name   string
	Target ObjectID
}
