package history

import (
	"context"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/pkg/errors"

	"github.com/pescuma/pushguard/lib/consoles"
	"github.com/pescuma/pushguard/lib/model"
)

// GoGitProvider reads history in process with go-git. It needs no git binary, at the price of
// walking the graph commit by commit.
type GoGitProvider struct {
	console consoles.Console
	repo    *git.Repository
}

var _ Provider = (*GoGitProvider)(nil)
var _ RevisionProvider = (*GoGitProvider)(nil)

// OpenGoGitProvider opens the repository at dir, which may be bare, or the repository whose
// worktree contains dir.
func OpenGoGitProvider(console consoles.Console, dir string) (*GoGitProvider, error) {
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
			DetectDotGit: true,
		})
	}
	if err != nil {
		return nil, errors.Wrapf(err, "error opening repository %v", dir)
	}

	return NewGoGitProvider(console, repo), nil
}

func NewGoGitProvider(console consoles.Console, repo *git.Repository) *GoGitProvider {
	return &GoGitProvider{
		console: console,
		repo:    repo,
	}
}

func (p *GoGitProvider) ListRefs(ctx context.Context) ([]model.Ref, error) {
	iter, err := p.repo.References()
	if err != nil {
		return nil, errors.Wrap(err, "error listing refs")
	}
	defer iter.Close()

	var result []model.Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if ref.Type() != plumbing.HashReference {
			return nil
		}

		target, ok, err := p.peel(ref.Hash())
		if err != nil {
			return errors.Wrapf(err, "error reading %v", ref.Name())
		}
		if !ok {
			return nil
		}

		result = append(result, model.Ref{
			Name:   ref.Name().String(),
			Target: target,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// peel follows annotated tags until a commit. Refs to other kinds of objects have no commit.
func (p *GoGitProvider) peel(h plumbing.Hash) (model.ObjectID, bool, error) {
	for {
		obj, err := p.repo.Object(plumbing.AnyObject, h)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}

		switch o := obj.(type) {
		case *object.Tag:
			h = o.Target
		case *object.Commit:
			return model.ObjectID(o.Hash.String()), true, nil
		default:
			return "", false, nil
		}
	}
}

// CommitsBetween walks the commit graph in process. Annotated tags are peeled first, as
// rev-list does.
func (p *GoGitProvider) CommitsBetween(ctx context.Context, req *RangeRequest) ([]model.Commit, error) {
	includes, err := p.peelAll(req.Includes, false)
	if err != nil {
		return nil, err
	}

	excludes, err := p.peelAll(req.Excludes, true)
	if err != nil {
		return nil, err
	}

	return Walk(func(id model.ObjectID) (CommitInfo, error) {
		if err := ctx.Err(); err != nil {
			return CommitInfo{}, err
		}

		c, err := p.commit(id)
		if err != nil {
			return CommitInfo{}, err
		}

		parents := make([]model.ObjectID, 0, len(c.ParentHashes))
		for _, h := range c.ParentHashes {
			parents = append(parents, model.ObjectID(h.String()))
		}

		return CommitInfo{
			Parents: parents,
			Time:    c.Committer.When,
		}, nil
	}, &RangeRequest{
		Includes: includes,
		Excludes: excludes,
	})
}

// peelAll turns tags into the commits they point to. Ids of other kinds of objects are
// dropped. Unknown ids are dropped when ignoreMissing is set, and kept otherwise so the walk
// reports them.
func (p *GoGitProvider) peelAll(ids []model.ObjectID, ignoreMissing bool) ([]model.ObjectID, error) {
	result := make([]model.ObjectID, 0, len(ids))

	for _, id := range ids {
		h := plumbing.NewHash(string(id))

		_, err := p.repo.Storer.EncodedObject(plumbing.AnyObject, h)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			if !ignoreMissing {
				result = append(result, id)
			}
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "error reading object %v", id)
		}

		target, ok, err := p.peel(h)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading object %v", id)
		}
		if !ok {
			p.console.Debugf("Ignoring %v: it is not a commit\n", id.Short())
			continue
		}

		result = append(result, target)
	}

	return result, nil
}

func (p *GoGitProvider) commit(id model.ObjectID) (*object.Commit, error) {
	c, err := p.repo.CommitObject(plumbing.NewHash(string(id)))
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, errors.Wrapf(ErrCommitNotFound, "%v", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "error reading commit %v", id)
	}
	return c, nil
}

// Changes diffs each commit against its first parent, as GitProvider does.
func (p *GoGitProvider) Changes(ctx context.Context, commits []model.Commit, maxPerCommit int) (map[model.ObjectID][]model.Change, error) {
	result := make(map[model.ObjectID][]model.Change, len(commits))

	for _, c := range commits {
		changes, err := p.changes(ctx, c.ID, maxPerCommit)
		if err != nil {
			return nil, err
		}

		result[c.ID] = changes
	}

	return result, nil
}

func (p *GoGitProvider) changes(ctx context.Context, id model.ObjectID, maxPerCommit int) ([]model.Change, error) {
	c, err := p.commit(id)
	if err != nil {
		return nil, err
	}

	tree, err := c.Tree()
	if err != nil {
		return nil, errors.Wrapf(err, "error reading tree of %v", id)
	}

	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading parent of %v", id)
		}

		parentTree, err = parent.Tree()
		if err != nil {
			return nil, errors.Wrapf(err, "error reading tree of %v", parent.Hash)
		}
	}

	diff, err := object.DiffTreeWithOptions(ctx, parentTree, tree, &object.DiffTreeOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "error diffing %v", id)
	}

	result := make([]model.Change, 0, len(diff))
	skipped := 0
	for _, d := range diff {
		change, ok, err := toChange(d)
		if err != nil {
			return nil, errors.Wrapf(err, "error diffing %v", id)
		}
		if !ok {
			continue
		}

		if maxPerCommit > 0 && len(result) >= maxPerCommit {
			skipped++
			continue
		}

		result = append(result, change)
	}

	if skipped > 0 {
		p.console.Debugf("Ignored %v changes of %v after the first %v\n", skipped, id.Short(), maxPerCommit)
	}

	return result, nil
}

func toChange(d *object.Change) (model.Change, bool, error) {
	action, err := d.Action()
	if err != nil {
		return model.Change{}, false, err
	}

	entry := d.To
	t := model.ChangeModify
	switch action {
	case merkletrie.Insert:
		t = model.ChangeAdd
	case merkletrie.Delete:
		entry = d.From
		t = model.ChangeDelete
	}

	if entry.TreeEntry.Mode == filemode.Submodule {
		return model.Change{}, false, nil
	}

	return model.Change{
		Path:      entry.Name,
		ContentID: model.ObjectID(entry.TreeEntry.Hash.String()),
		Type:      t,
	}, true, nil
}

func (p *GoGitProvider) BlobSizes(ctx context.Context, ids []model.ObjectID) (map[model.ObjectID]int64, error) {
	result := make(map[model.ObjectID]int64, len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		obj, err := p.repo.Storer.EncodedObject(plumbing.AnyObject, plumbing.NewHash(string(id)))
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "error reading object %v", id)
		}

		if obj.Type() != plumbing.BlobObject {
			continue
		}

		result[id] = obj.Size()
	}

	return result, nil
}

func (p *GoGitProvider) ResolveRevision(_ context.Context, rev string) (model.ObjectID, error) {
	h, err := p.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", errors.Wrapf(err, "unknown revision: %v", rev)
	}

	id, ok, err := p.peel(*h)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Errorf("revision is not a commit: %v", rev)
	}

	return id, nil
}

func (p *GoGitProvider) MergeBase(_ context.Context, a, b model.ObjectID) (model.ObjectID, bool, error) {
	ca, err := p.commit(a)
	if err != nil {
		return "", false, err
	}

	cb, err := p.commit(b)
	if err != nil {
		return "", false, err
	}

	bases, err := ca.MergeBase(cb)
	if err != nil {
		return "", false, errors.Wrapf(err, "error finding merge base of %v and %v", a.Short(), b.Short())
	}
	if len(bases) == 0 {
		return "", false, nil
	}

	return model.ObjectID(bases[0].Hash.String()), true, nil
}
