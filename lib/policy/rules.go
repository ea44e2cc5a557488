package policy

import (
	"github.com/pescuma/pushguard/lib/model"
)

// SizeRule rejects files larger than MaxSize bytes. Exclude and Branches are optional.
type SizeRule struct {
	Include  *PathPattern
	Exclude  *PathPattern
	Branches *BranchPattern
	MaxSize  int64
}

// NameRule rejects files whose path matches Include. Exclude and Branches are optional.
type NameRule struct {
	Include  *PathPattern
	Exclude  *PathPattern
	Branches *BranchPattern
}

type Ruleset struct {
	SizeRules []*SizeRule
	NameRules []*NameRule
}

func (r *Ruleset) Empty() bool {
	return len(r.SizeRules) == 0 && len(r.NameRules) == 0
}

func (r *SizeRule) MatchesPath(path string) bool {
	return matchesPath(r.Include, r.Exclude, path)
}

func (r *SizeRule) AppliesTo(u model.RefUpdate) bool {
	return appliesTo(r.Branches, u)
}

func (r *NameRule) MatchesPath(path string) bool {
	return matchesPath(r.Include, r.Exclude, path)
}

// AppliesTo is false for deleted refs and tags: they bring no file to a branch.
func (r *NameRule) AppliesTo(u model.RefUpdate) bool {
	if u.Type == model.RefDelete || u.IsTag() {
		return false
	}

	return appliesTo(r.Branches, u)
}

func matchesPath(include, exclude *PathPattern, path string) bool {
	if include == nil || !include.Match(path) {
		return false
	}

	return exclude == nil || !exclude.Match(path)
}

func appliesTo(branches *BranchPattern, u model.RefUpdate) bool {
	return branches == nil || branches.Match(u.DisplayID())
}
