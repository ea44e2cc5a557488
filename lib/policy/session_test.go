package policy

import (
	"context"
	"io"
	"testing"

	"github.com/bloomberg/go-testgroup"

	"github.com/pescuma/pushguard/lib/consoles"
	"github.com/pescuma/pushguard/lib/history/historytest"
	"github.com/pescuma/pushguard/lib/model"
)

func TestSession(t *testing.T) {
	testgroup.RunInParallel(t, &SessionTests{})
}

type SessionTests struct {
}

var (
	commitA = historytest.ID("A")
	commitB = historytest.ID("B")
	commitC = historytest.ID("C")
	commitD = historytest.ID("D")
	commitT = historytest.ID("T")

	blobBig   = model.ObjectID("deadbeef")
	blobSmall = historytest.ID("small")
	blobExe   = historytest.ID("exe")
	blobGone  = historytest.ID("gone")
)

func mustSizeRule(include, exclude, branches string, maxSize int64) *SizeRule {
	r := &SizeRule{MaxSize: maxSize}
	r.Include, r.Exclude, r.Branches = mustPatterns(include, exclude, branches)
	return r
}

func mustNameRule(include, exclude, branches string) *NameRule {
	r := &NameRule{}
	r.Include, r.Exclude, r.Branches = mustPatterns(include, exclude, branches)
	return r
}

func mustPatterns(include, exclude, branches string) (*PathPattern, *PathPattern, *BranchPattern) {
	i, err := CompilePathPattern(include)
	if err != nil {
		panic(err)
	}

	var e *PathPattern
	if exclude != "" {
		e, err = CompilePathPattern(exclude)
		if err != nil {
			panic(err)
		}
	}

	var b *BranchPattern
	if branches != "" {
		b, err = CompileBranchPattern(branches)
		if err != nil {
			panic(err)
		}
	}

	return i, e, b
}

// main: A, pushed to main: A <- B, pushed to feature: A <- C, pushed as tag: A <- T
func newRepo() *historytest.MemoryProvider {
	return historytest.NewMemoryProvider().
		AddCommit(commitA).
		AddCommit(commitB, commitA).
		AddCommit(commitC, commitA).
		AddCommit(commitD, commitB).
		AddCommit(commitT, commitA).
		AddChanges(commitB,
			model.Change{Path: "big.bin", ContentID: blobBig, Type: model.ChangeModify}).
		AddChanges(commitC,
			model.Change{Path: "README.md", ContentID: blobSmall, Type: model.ChangeAdd},
			model.Change{Path: "tools/setup.exe", ContentID: blobExe, Type: model.ChangeAdd},
			model.Change{Path: "old.bin", ContentID: blobGone, Type: model.ChangeDelete}).
		AddChanges(commitT,
			model.Change{Path: "release.exe", ContentID: blobExe, Type: model.ChangeAdd}).
		AddBlob(blobBig, 10000000).
		AddBlob(blobSmall, 500).
		AddBlob(blobExe, 2000000).
		AddBlob(blobGone, 50000000).
		SetRef("refs/heads/main", commitA)
}

func newSession(repo *historytest.MemoryProvider) *Session {
	return NewSession(consoles.NewWriterConsole(io.Discard, false), repo, nil)
}

func (g *SessionTests) EndToEnd(t *testgroup.T) {
	repo := historytest.NewMemoryProvider().
		AddCommit(commitA).
		AddCommit(commitB, commitA).
		AddChanges(commitB, model.Change{Path: "big.bin", ContentID: blobBig, Type: model.ChangeModify}).
		AddBlob(blobBig, 10000000).
		SetRef("refs/heads/main", commitA)

	result, err := newSession(repo).Evaluate(context.Background(), &Ruleset{
		SizeRules: []*SizeRule{mustSizeRule(".*", "", "", 1000000)},
	}, []model.RefUpdate{
		model.NewRefUpdate("refs/heads/main", commitA, commitB),
	})

	t.NoError(err)
	t.Equal([]SizeViolation{{Path: "big.bin", Size: 10000000, MaxSize: 1000000}}, result.SizeViolations)
	t.False(result.Passed())
	t.ErrorIs(result.Err(), ErrPushRejected)
	t.Equal(1, result.Commits)
	t.Equal(1, result.Changes)
}

func (g *SessionTests) OnlyLargeFilesViolate(t *testgroup.T) {
	result, err := newSession(newRepo()).Evaluate(context.Background(), &Ruleset{
		SizeRules: []*SizeRule{mustSizeRule(".*", "", "", 1000000)},
	}, []model.RefUpdate{
		model.NewRefUpdate("refs/heads/feature", model.ZeroID, commitC),
	})

	t.NoError(err)

	// setup.exe is too large, README.md is not and old.bin was deleted
	t.Equal([]SizeViolation{{Path: "tools/setup.exe", Size: 2000000, MaxSize: 1000000}}, result.SizeViolations)
}

func (g *SessionTests) ExcludePattern(t *testgroup.T) {
	result, err := newSession(newRepo()).Evaluate(context.Background(), &Ruleset{
		SizeRules: []*SizeRule{mustSizeRule(".*", `\.exe$`, "", 1000000)},
	}, []model.RefUpdate{
		model.NewRefUpdate("refs/heads/feature", model.ZeroID, commitC),
	})

	t.NoError(err)
	t.True(result.Passed())
	t.NoError(result.Err())
}

func (g *SessionTests) BranchScope(t *testgroup.T) {
	repo := newRepo()

	result, err := newSession(repo).Evaluate(context.Background(), &Ruleset{
		SizeRules: []*SizeRule{mustSizeRule(".*", "", "main", 1000000)},
	}, []model.RefUpdate{
		model.NewRefUpdate("refs/heads/feature", model.ZeroID, commitC),
	})

	t.NoError(err)
	t.True(result.Passed())
	t.Equal(historytest.Calls{}, repo.Calls())
}

func (g *SessionTests) UnknownSizeNeverViolates(t *testgroup.T) {
	repo := historytest.NewMemoryProvider().
		AddCommit(commitA).
		AddCommit(commitB, commitA).
		AddChanges(commitB, model.Change{Path: "lost.bin", ContentID: historytest.ID("lost"), Type: model.ChangeAdd}).
		SetRef("refs/heads/main", commitA)

	result, err := newSession(repo).Evaluate(context.Background(), &Ruleset{
		SizeRules: []*SizeRule{mustSizeRule(".*", "", "", 0)},
	}, []model.RefUpdate{
		model.NewRefUpdate("refs/heads/main", commitA, commitB),
	})

	t.NoError(err)
	t.True(result.Passed())
}

func (g *SessionTests) RulesShareLookups(t *testgroup.T) {
	repo := newRepo()
	updates := []model.RefUpdate{
		model.NewRefUpdate("refs/heads/main", commitA, commitB),
		model.NewRefUpdate("refs/heads/feature", model.ZeroID, commitC),
	}

	result, err := newSession(repo).Evaluate(context.Background(), &Ruleset{
		SizeRules: []*SizeRule{
			mustSizeRule(".*", "", "", 1000000),
			mustSizeRule(`\.bin$`, "", "", 5000000),
			mustSizeRule(".*", "", "main", 100),
		},
	}, updates)

	t.NoError(err)
	t.Equal([]int64{100, 1000000, 5000000}, result.MaxSizes())
	t.Len(result.SizeViolationsOf(1000000), 2)

	calls := repo.Calls()
	t.Equal(1, calls.ListRefs)
	t.Equal(2, calls.CommitsBetween)
	t.Equal(1, calls.Changes)

	// The third rule only needs the size of deadbeef, already known
	t.Equal(1, calls.BlobSizes)
}

func (g *SessionTests) NameRule(t *testgroup.T) {
	result, err := newSession(newRepo()).Evaluate(context.Background(), &Ruleset{
		NameRules: []*NameRule{mustNameRule(`\.(exe|dll)$`, "", "")},
	}, []model.RefUpdate{
		model.NewRefUpdate("refs/heads/feature", model.ZeroID, commitC),
	})

	t.NoError(err)
	t.Equal([]NameViolation{{Path: "tools/setup.exe", Pattern: `\.(exe|dll)$`}}, result.NameViolations)
	t.Equal([]string{"File [tools/setup.exe] violates file name pattern [\\.(exe|dll)$]."}, result.Messages())
}

func (g *SessionTests) NameRuleIgnoresTagsAndDeletes(t *testgroup.T) {
	repo := newRepo()

	result, err := newSession(repo).Evaluate(context.Background(), &Ruleset{
		NameRules: []*NameRule{mustNameRule(`\.exe$`, "", "")},
	}, []model.RefUpdate{
		model.NewRefUpdate("refs/tags/v1", model.ZeroID, commitT),
		model.NewRefUpdate("refs/heads/main", commitA, model.ZeroID),
	})

	t.NoError(err)
	t.True(result.Passed())
	t.Equal(historytest.Calls{}, repo.Calls())
}

func (g *SessionTests) NameRuleBranchScope(t *testgroup.T) {
	result, err := newSession(newRepo()).Evaluate(context.Background(), &Ruleset{
		NameRules: []*NameRule{mustNameRule(`\.exe$`, "", "glob:feat*")},
	}, []model.RefUpdate{
		model.NewRefUpdate("refs/heads/feature", model.ZeroID, commitC),
		model.NewRefUpdate("refs/heads/main", commitA, commitB),
	})

	t.NoError(err)
	t.Equal([]string{"File [tools/setup.exe] violates file name pattern [\\.exe$] for branch [glob:feat*]."}, result.Messages())
}

func (g *SessionTests) OnlyDeletes(t *testgroup.T) {
	repo := newRepo()

	result, err := newSession(repo).Evaluate(context.Background(), &Ruleset{
		SizeRules: []*SizeRule{mustSizeRule(".*", "", "", 1)},
	}, []model.RefUpdate{
		model.NewRefUpdate("refs/heads/main", commitA, model.ZeroID),
	})

	t.NoError(err)
	t.True(result.Passed())
	t.Equal(historytest.Calls{}, repo.Calls())
}

func (g *SessionTests) PushOnTopOfOtherPush(t *testgroup.T) {
	repo := newRepo().SetRef("refs/heads/main", commitB)

	result, err := newSession(repo).Evaluate(context.Background(), &Ruleset{
		SizeRules: []*SizeRule{mustSizeRule(".*", "", "", 1000000)},
	}, []model.RefUpdate{
		model.NewRefUpdate("refs/heads/main", commitB, commitD),
	})

	t.NoError(err)

	// big.bin came with B, which the repository already has
	t.True(result.Passed())
	t.Equal(1, result.Commits)
}
