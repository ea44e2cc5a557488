package history

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/pescuma/pushguard/lib/caches"
	"github.com/pescuma/pushguard/lib/consoles"
	"github.com/pescuma/pushguard/lib/model"
)

type ChangeExtractorOptions struct {
	// PageSize is the most commits sent to the provider in one call.
	PageSize int
	// MaxChangesPerCommit caps the changes read from each commit. Negative means no limit.
	MaxChangesPerCommit int
}

// ChangeExtractor finds the files added or modified by commits. Each commit is read from the
// provider at most once during the life of the extractor.
type ChangeExtractor struct {
	console  consoles.Console
	provider Provider
	opts     ChangeExtractorOptions
	changes  *caches.FlatResolver[model.ObjectID, model.Change]
}

func NewChangeExtractor(console consoles.Console, provider Provider, opts *ChangeExtractorOptions) *ChangeExtractor {
	o := ChangeExtractorOptions{
		PageSize:            100,
		MaxChangesPerCommit: 100,
	}
	if opts != nil {
		if opts.PageSize > 0 {
			o.PageSize = opts.PageSize
		}
		if opts.MaxChangesPerCommit > 0 {
			o.MaxChangesPerCommit = opts.MaxChangesPerCommit
		} else if opts.MaxChangesPerCommit < 0 {
			o.MaxChangesPerCommit = 0
		}
	}

	return &ChangeExtractor{
		console:  console,
		provider: provider,
		opts:     o,
		changes:  caches.NewFlatResolver[model.ObjectID, model.Change](),
	}
}

// Changes returns the union of the non delete changes of commits.
func (e *ChangeExtractor) Changes(ctx context.Context, commits []model.Commit) ([]model.Change, error) {
	if len(commits) == 0 {
		return nil, nil
	}

	byID := lo.KeyBy(commits, func(c model.Commit) model.ObjectID { return c.ID })
	ids := lo.Uniq(lo.Map(commits, func(c model.Commit, _ int) model.ObjectID { return c.ID }))

	return e.changes.ResolveBatchedFlat(ids, func(missing []model.ObjectID) (map[model.ObjectID][]model.Change, error) {
		return e.extract(ctx, lo.Map(missing, func(id model.ObjectID, _ int) model.Commit { return byID[id] }))
	})
}

func (e *ChangeExtractor) extract(ctx context.Context, commits []model.Commit) (map[model.ObjectID][]model.Change, error) {
	e.console.Debugf("Extracting changes of %v commits\n", len(commits))

	result := make(map[model.ObjectID][]model.Change, len(commits))

	for _, page := range lo.Chunk(commits, e.opts.PageSize) {
		changes, err := e.provider.Changes(ctx, page, e.opts.MaxChangesPerCommit)
		if err != nil {
			return nil, errors.Wrap(err, "error extracting changes")
		}

		for _, c := range page {
			result[c.ID] = lo.Reject(changes[c.ID], func(ch model.Change, _ int) bool {
				return ch.IsDelete()
			})
		}
	}

	return result, nil
}
