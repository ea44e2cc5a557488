package workspace

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/pescuma/pushguard/lib/config"
	"github.com/pescuma/pushguard/lib/consoles"
	"github.com/pescuma/pushguard/lib/gitcmd"
	"github.com/pescuma/pushguard/lib/history"
	"github.com/pescuma/pushguard/lib/policy"
	"github.com/pescuma/pushguard/lib/storages"
	"github.com/pescuma/pushguard/lib/storages/orm"
	"github.com/pescuma/pushguard/lib/utils"
)

type Options struct {
	RepositoryDir string
	ConfigFile    string
	Verbose       bool
}

// Workspace is one repository with its rules, ready to check pushes.
type Workspace struct {
	console   consoles.Console
	out       io.Writer
	repoDir   string
	config    *config.Config
	rules     *policy.Ruleset
	provider  history.Provider
	revisions history.RevisionProvider
	storage   storages.Storage
}

func NewWorkspace(opts *Options) (*Workspace, error) {
	console := consoles.NewStdErrConsole(opts.Verbose)

	dir := opts.RepositoryDir
	if dir == "" {
		dir = "."
	}

	repoDir, err := utils.PathAbs(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.ConfigFile, repoDir)
	if err != nil {
		return nil, err
	}

	provider, err := newProvider(console, cfg, repoDir)
	if err != nil {
		return nil, err
	}

	storage, err := newStorage(console, cfg, repoDir)
	if err != nil {
		return nil, err
	}

	result, err := New(console, os.Stderr, repoDir, cfg, provider, storage)
	if err != nil && storage != nil {
		_ = storage.Close()
	}
	return result, err
}

// New creates a workspace from its parts. storage may be nil to disable the audit log.
func New(console consoles.Console, out io.Writer, repoDir string, cfg *config.Config, provider history.Provider, storage storages.Storage) (*Workspace, error) {
	rules, err := cfg.Ruleset()
	if err != nil {
		return nil, err
	}

	revisions, _ := provider.(history.RevisionProvider)

	return &Workspace{
		console:   console,
		out:       out,
		repoDir:   repoDir,
		config:    cfg,
		rules:     rules,
		provider:  provider,
		revisions: revisions,
		storage:   storage,
	}, nil
}

type providerWithRevisions interface {
	history.Provider
	history.RevisionProvider
}

func newProvider(console consoles.Console, cfg *config.Config, repoDir string) (providerWithRevisions, error) {
	switch cfg.Git.Provider {
	case config.ProviderGoGit:
		return history.OpenGoGitProvider(console, repoDir)

	default:
		runner := gitcmd.NewRunner(console, &gitcmd.Options{
			Binary: cfg.Git.Binary,
			Dir:    repoDir,
		})
		return history.NewGitProvider(runner), nil
	}
}

func newStorage(console consoles.Console, cfg *config.Config, repoDir string) (storages.Storage, error) {
	file := cfg.Audit.Database

	switch {
	case file == "":
		return nil, nil

	case cfg.Audit.Driver == config.AuditMysql:
		d, err := orm.WithMysql(file)
		if err != nil {
			return nil, err
		}
		return orm.NewGormStorage(d, console)

	case file == ":memory:":
		return orm.NewGormStorage(orm.WithSqliteInMemory(), console)

	default:
		file, err := utils.PathRelativeTo(file, repoDir)
		if err != nil {
			return nil, err
		}

		err = createDatabaseDir(console, file)
		if err != nil {
			return nil, err
		}

		return orm.NewGormStorage(orm.WithSqlite(file), console)
	}
}

func createDatabaseDir(console consoles.Console, file string) error {
	path := filepath.Dir(file)

	if _, err := os.Stat(path); err != nil {
		console.Debugf("Creating audit log dir at %v\n", path)

		err = os.MkdirAll(path, 0o700)
		if err != nil {
			return errors.Wrapf(err, "error creating %v", path)
		}
	}

	return nil
}

func (w *Workspace) Close() error {
	if w.storage == nil {
		return nil
	}

	return w.storage.Close()
}

func (w *Workspace) Console() consoles.Console {
	return w.console
}

func (w *Workspace) Config() *config.Config {
	return w.config
}

// watchdog limits the time of a whole evaluation. Every git process is killed when it fires.
func (w *Workspace) watchdog(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.config.Git.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeoutCause(ctx, w.config.Git.Timeout,
		fmt.Errorf("evaluation took longer than %v", w.config.Git.Timeout))
}
