package workspace

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bloomberg/go-testgroup"
	"github.com/stretchr/testify/require"

	"github.com/pescuma/pushguard/lib/config"
	"github.com/pescuma/pushguard/lib/consoles"
	"github.com/pescuma/pushguard/lib/history/historytest"
	"github.com/pescuma/pushguard/lib/model"
	"github.com/pescuma/pushguard/lib/policy"
	"github.com/pescuma/pushguard/lib/storages"
	"github.com/pescuma/pushguard/lib/storages/orm"
)

var (
	commitA = historytest.ID("A")
	commitB = historytest.ID("B")
	commitC = historytest.ID("C")
	commitD = historytest.ID("D")

	blobBig   = historytest.ID("big")
	blobSmall = historytest.ID("small")
)

const rules = `
size-rules:
  - include: '.*'
    size: 1000000
name-rules:
  - include: '\.exe$'
`

func TestParseHookInput(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		string(commitA) + " " + string(commitB) + " refs/heads/main",
		"",
		string(model.ZeroID) + " " + string(commitC) + " refs/heads/feature",
		string(commitD) + " " + string(model.ZeroID) + " refs/tags/v1",
	}, "\n")

	updates, err := ParseHookInput(strings.NewReader(input))
	require.NoError(t, err)

	require.Equal(t, []model.RefUpdate{
		{Ref: "refs/heads/main", From: commitA, To: commitB, Type: model.RefModify},
		{Ref: "refs/heads/feature", From: model.ZeroID, To: commitC, Type: model.RefAdd},
		{Ref: "refs/tags/v1", From: commitD, To: model.ZeroID, Type: model.RefDelete},
	}, updates)
}

func TestParseHookInputInvalid(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		"garbage",
		string(commitA) + " " + string(commitB),
		string(commitA) + " notanid refs/heads/main",
		string(model.ZeroID) + " " + string(model.ZeroID) + " refs/heads/main",
	} {
		_, err := ParseHookInput(strings.NewReader(input))
		require.Error(t, err, input)
	}
}

func TestWorkspace(t *testing.T) {
	testgroup.RunInParallel(t, &WorkspaceTests{})
}

type WorkspaceTests struct {
}

type fixture struct {
	ws      *Workspace
	repo    *historytest.MemoryProvider
	storage storages.Storage
	out     *bytes.Buffer
}

// main: A, pushed: A <- B (big.bin), A <- C (small.txt, tool.exe), B <- D
func newFixture(t *testgroup.T, yaml string) *fixture {
	repo := historytest.NewMemoryProvider().
		AddCommit(commitA).
		AddCommit(commitB, commitA).
		AddCommit(commitC, commitA).
		AddCommit(commitD, commitB).
		AddChanges(commitB, model.Change{Path: "big.bin", ContentID: blobBig, Type: model.ChangeAdd}).
		AddChanges(commitC,
			model.Change{Path: "small.txt", ContentID: blobSmall, Type: model.ChangeAdd},
			model.Change{Path: "tool.exe", ContentID: blobSmall, Type: model.ChangeAdd}).
		AddBlob(blobBig, 10000000).
		AddBlob(blobSmall, 10).
		SetRef("refs/heads/main", commitA)

	cfg, err := config.Parse(strings.NewReader(yaml))
	t.NoError(err)

	console := consoles.NewWriterConsole(io.Discard, false)

	storage, err := orm.NewGormStorage(orm.WithSqliteInMemory(), console)
	t.NoError(err)

	out := &bytes.Buffer{}

	ws, err := New(console, out, "/srv/repo.git", cfg, repo, storage)
	t.NoError(err)

	return &fixture{ws: ws, repo: repo, storage: storage, out: out}
}

func (g *WorkspaceTests) PreReceiveRejects(t *testgroup.T) {
	f := newFixture(t, rules)
	defer f.ws.Close()

	input := string(commitA) + " " + string(commitB) + " refs/heads/main\n"

	result, err := f.ws.PreReceive(context.Background(), strings.NewReader(input))

	t.ErrorIs(err, policy.ErrPushRejected)
	t.Len(result.SizeViolations, 1)
	t.Contains(f.out.String(), "File [big.bin] is too large.")

	evals, err := f.ws.ListEvaluations(10)
	t.NoError(err)
	t.Len(evals, 1)
	t.False(evals[0].Passed)
	t.Equal(1, evals[0].Commits)
	t.Equal([]string{"File [big.bin] is too large. Maximum allowed file size is 1000000 bytes."}, evals[0].Violations)
}

func (g *WorkspaceTests) CheckAccepts(t *testgroup.T) {
	f := newFixture(t, `
size-rules:
  - include: '.*'
    size: 1000000
`)
	defer f.ws.Close()

	result, err := f.ws.Check(context.Background(), []model.RefUpdate{
		model.NewRefUpdate("refs/heads/other", model.ZeroID, commitC),
	})

	t.NoError(err)
	t.True(result.Passed())
	t.Empty(f.out.String())

	evals, err := f.ws.ListEvaluations(10)
	t.NoError(err)
	t.Len(evals, 1)
	t.True(evals[0].Passed)
}

func (g *WorkspaceTests) NameRule(t *testgroup.T) {
	f := newFixture(t, rules)
	defer f.ws.Close()

	result, err := f.ws.Check(context.Background(), []model.RefUpdate{
		model.NewRefUpdate("refs/heads/other", model.ZeroID, commitC),
	})

	t.ErrorIs(err, policy.ErrPushRejected)
	t.Equal([]policy.NameViolation{{Path: "tool.exe", Pattern: `\.exe$`}}, result.NameViolations)
	t.Contains(f.out.String(), "File [tool.exe] violates file name pattern [\\.exe$].")
}

func (g *WorkspaceTests) NoRulesNoWork(t *testgroup.T) {
	f := newFixture(t, "")
	defer f.ws.Close()

	result, err := f.ws.Check(context.Background(), []model.RefUpdate{
		model.NewRefUpdate("refs/heads/main", commitA, commitB),
	})

	t.NoError(err)
	t.True(result.Passed())
	t.Equal(historytest.Calls{}, f.repo.Calls())
}

func (g *WorkspaceTests) CheckRangeIgnoresOtherHeads(t *testgroup.T) {
	f := newFixture(t, rules)
	defer f.ws.Close()
	f.repo.SetRef("refs/heads/feature", commitD)

	// D is already on feature, but merging it into main still brings big.bin
	result, err := f.ws.CheckRange(context.Background(), "feature", "main")

	t.ErrorIs(err, policy.ErrPushRejected)
	t.Equal([]policy.SizeViolation{{Path: "big.bin", Size: 10000000, MaxSize: 1000000}}, result.SizeViolations)
	t.Equal([]model.RefUpdate{model.NewRefUpdate("refs/heads/main", commitA, commitD)}, result.Updates)
	t.Equal(2, result.Commits)
}

func (g *WorkspaceTests) CheckRangeUnknownRevision(t *testgroup.T) {
	f := newFixture(t, rules)
	defer f.ws.Close()

	_, err := f.ws.CheckRange(context.Background(), "missing", "main")

	t.Error(err)
}

// watchedRevisions records the revision lookups made without a deadline. With block set
// every lookup waits for ctx to be done.
type watchedRevisions struct {
	*historytest.MemoryProvider
	block bool

	mutex     sync.Mutex
	calls     int
	unwatched int
}

func (p *watchedRevisions) record(ctx context.Context) error {
	p.mutex.Lock()
	p.calls++
	if _, ok := ctx.Deadline(); !ok {
		p.unwatched++
	}
	p.mutex.Unlock()

	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (p *watchedRevisions) ResolveRevision(ctx context.Context, rev string) (model.ObjectID, error) {
	if err := p.record(ctx); err != nil {
		return "", err
	}
	return p.MemoryProvider.ResolveRevision(ctx, rev)
}

func (p *watchedRevisions) MergeBase(ctx context.Context, a, b model.ObjectID) (model.ObjectID, bool, error) {
	if err := p.record(ctx); err != nil {
		return "", false, err
	}
	return p.MemoryProvider.MergeBase(ctx, a, b)
}

func (g *WorkspaceTests) CheckRangeRunsUnderWatchdog(t *testgroup.T) {
	f := newFixture(t, rules)
	defer f.ws.Close()
	f.repo.SetRef("refs/heads/feature", commitC)

	p := &watchedRevisions{MemoryProvider: f.repo}
	ws, err := New(consoles.NewWriterConsole(io.Discard, false), io.Discard, "/srv/repo.git", f.ws.Config(), p, nil)
	t.NoError(err)

	_, err = ws.CheckRange(context.Background(), "feature", "main")

	t.ErrorIs(err, policy.ErrPushRejected)
	t.Equal(3, p.calls)
	t.Equal(0, p.unwatched)
}

func (g *WorkspaceTests) CheckRangeStoppedByWatchdog(t *testgroup.T) {
	f := newFixture(t, `
git:
  timeout: 10ms
`+rules)
	defer f.ws.Close()

	p := &watchedRevisions{MemoryProvider: f.repo, block: true}
	ws, err := New(consoles.NewWriterConsole(io.Discard, false), io.Discard, "/srv/repo.git", f.ws.Config(), p, nil)
	t.NoError(err)

	_, err = ws.CheckRange(context.Background(), "feature", "main")

	t.ErrorContains(err, "evaluation took longer than 10ms")
	t.ErrorIs(err, context.DeadlineExceeded)
}

func (g *WorkspaceTests) InvalidRules(t *testgroup.T) {
	cfg, err := config.Parse(strings.NewReader(`
size-rules:
  - include: '('
    size: 10
`))
	t.NoError(err)

	_, err = New(consoles.NewWriterConsole(io.Discard, false), io.Discard, "/srv/repo.git", cfg, historytest.NewMemoryProvider(), nil)

	var verr *config.ValidationError
	t.ErrorAs(err, &verr)
}

func (g *WorkspaceTests) AuditDisabled(t *testgroup.T) {
	cfg, err := config.Parse(strings.NewReader(rules))
	t.NoError(err)

	ws, err := New(consoles.NewWriterConsole(io.Discard, false), io.Discard, "/srv/repo.git", cfg, historytest.NewMemoryProvider(), nil)
	t.NoError(err)

	_, err = ws.ListEvaluations(10)
	t.Error(err)
	t.NoError(ws.Close())
}

func TestNewStorage(t *testing.T) {
	t.Parallel()

	console := consoles.NewWriterConsole(io.Discard, false)
	dir := t.TempDir()

	s, err := newStorage(console, &config.Config{Audit: config.AuditConfig{Driver: config.AuditSqlite}}, dir)
	require.NoError(t, err)
	require.Nil(t, s)

	s, err = newStorage(console, &config.Config{Audit: config.AuditConfig{Driver: config.AuditSqlite, Database: "audit/pushguard.db"}}, dir)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.NoError(t, s.Close())
	require.FileExists(t, filepath.Join(dir, "audit", "pushguard.db"))

	_, err = newStorage(console, &config.Config{Audit: config.AuditConfig{Driver: config.AuditMysql, Database: "not a dsn"}}, dir)
	require.Error(t, err)
}
