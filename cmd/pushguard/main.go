package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/pescuma/pushguard/lib/workspace"
)

var cli struct {
	Repository string `short:"C" help:"Repository to check. Default is the current dir, where git runs hooks." type:"path"`
	ConfigFile string `name:"config" short:"c" help:"Configuration file. Default is pushguard.yaml inside the repository or ~/.config/pushguard." type:"path"`
	Verbose    bool   `short:"v" help:"Show what is being done."`

	PreReceive PreReceiveCmd `cmd:"" help:"Check a push, reading the ref updates from stdin as a pre-receive hook."`
	Check      CheckCmd      `cmd:"" help:"Check one ref update."`
	CheckRange CheckRangeCmd `cmd:"" help:"Check what merging one revision into a branch would bring."`

	Config struct {
		Validate ConfigValidateCmd `cmd:"" help:"Validate the configuration."`
	} `cmd:""`

	Audit struct {
		List AuditListCmd `cmd:"" help:"List the latest evaluations of the repository."`
	} `cmd:""`
}

type runContext struct {
	ctx  context.Context
	opts *workspace.Options
}

func (c *runContext) workspace() (*workspace.Workspace, error) {
	return workspace.NewWorkspace(c.opts)
}

func main() {
	ctx := kong.Parse(&cli, kong.ShortUsageOnError())

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := ctx.Run(&runContext{
		ctx: sigCtx,
		opts: &workspace.Options{
			RepositoryDir: cli.Repository,
			ConfigFile:    cli.ConfigFile,
			Verbose:       cli.Verbose,
		},
	})
	ctx.FatalIfErrorf(err)
}
