package sizes

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/pescuma/pushguard/lib/caches"
	"github.com/pescuma/pushguard/lib/consoles"
	"github.com/pescuma/pushguard/lib/model"
)

// BlobSizer returns the size of each blob it can find, leaving the others out.
type BlobSizer interface {
	BlobSizes(ctx context.Context, ids []model.ObjectID) (map[model.ObjectID]int64, error)
}

// Resolver caches blob sizes. Each id is looked up at most once, including the ones that were
// not found.
type Resolver struct {
	console consoles.Console
	sizer   BlobSizer
	sizes   *caches.Resolver[model.ObjectID, int64]
}

func NewResolver(console consoles.Console, sizer BlobSizer) *Resolver {
	return &Resolver{
		console: console,
		sizer:   sizer,
		sizes:   caches.NewResolver[model.ObjectID, int64](),
	}
}

// Sizes returns the size of each id that is a known blob, asking for all the new ones in a
// single request.
func (r *Resolver) Sizes(ctx context.Context, ids []model.ObjectID) (map[model.ObjectID]int64, error) {
	ids = lo.Uniq(lo.Reject(ids, func(id model.ObjectID, _ int) bool { return id.IsZero() }))
	if len(ids) == 0 {
		return map[model.ObjectID]int64{}, nil
	}

	return r.sizes.ResolveBatched(ids, func(missing []model.ObjectID) (map[model.ObjectID]int64, error) {
		r.console.Debugf("Reading size of %v blobs\n", len(missing))

		result, err := r.sizer.BlobSizes(ctx, missing)
		if err != nil {
			return nil, errors.Wrap(err, "error reading blob sizes")
		}

		if len(result) < len(missing) {
			r.console.Debugf("%v blobs were not found\n", len(missing)-len(result))
		}

		return result, nil
	})
}

// Size returns the cached size of id. It never asks the repository.
func (r *Resolver) Size(id model.ObjectID) (int64, bool) {
	return r.sizes.Get(id)
}
