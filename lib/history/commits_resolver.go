package history

import (
	"context"
	"sort"
	"strings"

	"github.com/hashicorp/go-set/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/pescuma/pushguard/lib/caches"
	"github.com/pescuma/pushguard/lib/consoles"
	"github.com/pescuma/pushguard/lib/model"
)

// CommitsResolver finds the commits that a push adds to the repository. One instance serves one
// push: the repository heads are listed once and each distinct set of ref updates is walked
// once.
type CommitsResolver struct {
	console  consoles.Console
	provider Provider
	refs     *caches.Lazy[[]model.Ref]
	commits  *caches.Resolver[string, []model.Commit]
}

func NewCommitsResolver(console consoles.Console, provider Provider) *CommitsResolver {
	result := &CommitsResolver{
		console:  console,
		provider: provider,
		commits:  caches.NewResolver[string, []model.Commit](),
	}
	result.refs = caches.NewLazy(result.listRefs)
	return result
}

// CommitsBetween returns the commits new to the repository among those introduced by updates.
func (r *CommitsResolver) CommitsBetween(ctx context.Context, updates []model.RefUpdate) ([]model.Commit, error) {
	if !lo.SomeBy(updates, func(u model.RefUpdate) bool { return u.Type != model.RefDelete }) {
		return nil, nil
	}

	return r.commits.Resolve(updatesKey(updates), func(string) ([]model.Commit, error) {
		return r.compute(ctx, updates)
	})
}

func (r *CommitsResolver) compute(ctx context.Context, updates []model.RefUpdate) ([]model.Commit, error) {
	refs, err := r.refs.Get(ctx)
	if err != nil {
		return nil, err
	}

	req := BuildRangeRequest(updates, refs)
	if req.Empty() {
		return nil, nil
	}

	r.console.Debugf("Walking history: %v includes, %v excludes\n", len(req.Includes), len(req.Excludes))

	commits, err := r.provider.CommitsBetween(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "error listing new commits")
	}

	seen := set.New[model.ObjectID](len(commits))
	result := lo.Filter(commits, func(c model.Commit, _ int) bool {
		return seen.Insert(c.ID)
	})

	r.console.Debugf("Found %v new commits\n", len(result))

	return result, nil
}

func (r *CommitsResolver) listRefs(ctx context.Context) ([]model.Ref, error) {
	refs, err := r.provider.ListRefs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error listing repository refs")
	}
	return refs, nil
}

func updatesKey(updates []model.RefUpdate) string {
	keys := lo.Map(updates, func(u model.RefUpdate, _ int) string {
		return strings.Join([]string{u.Type.String(), u.Ref, string(u.From), string(u.To)}, " ")
	})
	keys = lo.Uniq(keys)
	sort.Strings(keys)
	return strings.Join(keys, "\n")
}
