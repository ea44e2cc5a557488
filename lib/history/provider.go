package history

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pescuma/pushguard/lib/model"
)

var ErrCommitNotFound = errors.New("commit not found")

// Provider gives read-only access to the history of one repository.
type Provider interface {
	// ListRefs returns the heads that exist in the repository before the push.
	ListRefs(ctx context.Context) ([]model.Ref, error)

	// CommitsBetween returns the commits reachable from the includes and not from the excludes.
	CommitsBetween(ctx context.Context, req *RangeRequest) ([]model.Commit, error)

	// Changes returns the file changes of each commit against its first parent, at most
	// maxPerCommit of them per commit (0 means all). Deletions are included.
	Changes(ctx context.Context, commits []model.Commit, maxPerCommit int) (map[model.ObjectID][]model.Change, error)

	// BlobSizes returns the size of each blob. Missing objects and non-blobs are left out.
	BlobSizes(ctx context.Context, ids []model.ObjectID) (map[model.ObjectID]int64, error)
}

type RevisionProvider interface {
	ResolveRevision(ctx context.Context, rev string) (model.ObjectID, error)

	// MergeBase returns the best common ancestor of a and b, if there is one.
	MergeBase(ctx context.Context, a, b model.ObjectID) (model.ObjectID, bool, error)
}
