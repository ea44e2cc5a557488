package history

import (
	"github.com/hashicorp/go-set/v2"

	"github.com/pescuma/pushguard/lib/model"
)

// RangeRequest selects the commits reachable from Includes that are not reachable from Excludes.
type RangeRequest struct {
	Includes []model.ObjectID
	Excludes []model.ObjectID
}

func (r *RangeRequest) Empty() bool {
	return len(r.Includes) == 0
}

// BuildRangeRequest computes the range of commits a push introduces. Every ref in refs that the
// push does not touch is excluded, so the walk stops at history the repository already has.
func BuildRangeRequest(updates []model.RefUpdate, refs []model.Ref) *RangeRequest {
	includes := newOrderedIDs()
	excludes := newOrderedIDs()
	touched := set.New[string](len(updates))

	for _, u := range updates {
		touched.Insert(u.Ref)

		switch u.Type {
		case model.RefModify:
			includes.add(u.To)
			excludes.add(u.From)
		case model.RefAdd:
			includes.add(u.To)
		case model.RefDelete:
			// Its commits are already known, and excluding them narrows the walk for the others
			excludes.add(u.From)
		}
	}

	for _, ref := range refs {
		if !touched.Contains(ref.Name) {
			excludes.add(ref.Target)
		}
	}

	return &RangeRequest{
		Includes: includes.ids,
		Excludes: excludes.ids,
	}
}

type orderedIDs struct {
	seen *set.Set[model.ObjectID]
	ids  []model.ObjectID
}

func newOrderedIDs() *orderedIDs {
	return &orderedIDs{seen: set.New[model.ObjectID](10)}
}

func (o *orderedIDs) add(id model.ObjectID) {
	if id.IsZero() || !o.seen.Insert(id) {
		return
	}
	o.ids = append(o.ids, id)
}
