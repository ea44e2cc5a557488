package history

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/pescuma/pushguard/lib/gitcmd"
	"github.com/pescuma/pushguard/lib/model"
)

// GitProvider reads history by running the git binary. Every request is a single process fed
// through stdin, so its cost does not grow with the number of commits or blobs asked.
type GitProvider struct {
	runner *gitcmd.Runner
}

var _ Provider = (*GitProvider)(nil)
var _ RevisionProvider = (*GitProvider)(nil)

func NewGitProvider(runner *gitcmd.Runner) *GitProvider {
	return &GitProvider{
		runner: runner,
	}
}

func (p *GitProvider) ListRefs(ctx context.Context) ([]model.Ref, error) {
	h := gitcmd.NewRefsHandler()

	err := p.runner.Run(ctx, h, nil, "for-each-ref", gitcmd.RefsFormat)
	if err != nil {
		return nil, err
	}

	return h.Output(), nil
}

func (p *GitProvider) CommitsBetween(ctx context.Context, req *RangeRequest) ([]model.Commit, error) {
	if req.Empty() {
		return nil, nil
	}

	revs := make([]string, 0, len(req.Includes)+len(req.Excludes))
	revs = append(revs, lo.Map(req.Includes, func(id model.ObjectID, _ int) string { return string(id) })...)
	revs = append(revs, lo.Map(req.Excludes, func(id model.ObjectID, _ int) string { return "^" + string(id) })...)

	h := gitcmd.NewRevListHandler()

	err := p.runner.Run(ctx, h, gitcmd.WriteLines(revs), "rev-list", "--parents", "--stdin")
	if err != nil {
		return nil, err
	}

	return h.Output(), nil
}

// Changes diffs each commit against its first parent only, so a merge reports what it brought
// into the branch it was merged on.
func (p *GitProvider) Changes(ctx context.Context, commits []model.Commit, maxPerCommit int) (map[model.ObjectID][]model.Change, error) {
	if len(commits) == 0 {
		return map[model.ObjectID][]model.Change{}, nil
	}

	lines := lo.Map(commits, func(c model.Commit, _ int) string {
		parent, ok := c.FirstParent()
		if !ok {
			return string(c.ID)
		}
		return string(c.ID) + " " + string(parent)
	})

	h := gitcmd.NewDiffTreeHandler(maxPerCommit)

	err := p.runner.Run(ctx, h, gitcmd.WriteLines(lines), "diff-tree", "--stdin", "-r", "--root", "--no-renames")
	if err != nil {
		return nil, err
	}

	for id, skipped := range h.Skipped() {
		p.runner.Console().Debugf("Ignored %v changes of %v after the first %v\n", skipped, id.Short(), maxPerCommit)
	}

	result := h.Output()
	delete(result, "")
	return result, nil
}

func (p *GitProvider) BlobSizes(ctx context.Context, ids []model.ObjectID) (map[model.ObjectID]int64, error) {
	if len(ids) == 0 {
		return map[model.ObjectID]int64{}, nil
	}

	h := gitcmd.NewBatchCheckHandler()

	err := p.runner.Run(ctx, h, gitcmd.WriteLines(ids), "cat-file", "--batch-check")
	if err != nil {
		return nil, err
	}

	return h.Output(), nil
}

func (p *GitProvider) ResolveRevision(ctx context.Context, rev string) (model.ObjectID, error) {
	if strings.HasPrefix(rev, "-") {
		return "", errors.Errorf("invalid revision: %v", rev)
	}

	h := gitcmd.NewFirstLineHandler()

	err := p.runner.Run(ctx, h, nil, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return "", errors.Wrapf(err, "unknown revision: %v", rev)
	}

	line, ok := h.Output()
	if !ok || !model.IsObjectID(line) {
		return "", errors.Errorf("unknown revision: %v", rev)
	}

	return model.ObjectID(line), nil
}

func (p *GitProvider) MergeBase(ctx context.Context, a, b model.ObjectID) (model.ObjectID, bool, error) {
	h := gitcmd.NewFirstLineHandler()

	err := p.runner.Run(ctx, h, nil, "merge-base", string(a), string(b))

	// merge-base exits with 1 and prints nothing for unrelated histories
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && ctx.Err() == nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	line, ok := h.Output()
	if !ok || !model.IsObjectID(line) {
		return "", false, nil
	}

	return model.ObjectID(line), true, nil
}
