package main

import (
	"os"

	"github.com/pkg/errors"

	"github.com/pescuma/pushguard/lib/model"
)

type PreReceiveCmd struct {
}

func (c *PreReceiveCmd) Run(ctx *runContext) error {
	ws, err := ctx.workspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	_, err = ws.PreReceive(ctx.ctx, os.Stdin)
	return err
}

type CheckCmd struct {
	Ref  string `arg:"" help:"Full name of the ref, like refs/heads/main."`
	From string `arg:"" help:"Old value of the ref. Zeros for a new ref."`
	To   string `arg:"" help:"New value of the ref. Zeros for a deleted ref."`
}

func (c *CheckCmd) Run(ctx *runContext) error {
	if !model.IsObjectID(c.From) || !model.IsObjectID(c.To) {
		return errors.Errorf("invalid object ids: %v %v", c.From, c.To)
	}

	ws, err := ctx.workspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	_, err = ws.Check(ctx.ctx, []model.RefUpdate{
		model.NewRefUpdate(c.Ref, model.ObjectID(c.From), model.ObjectID(c.To)),
	})
	return err
}

type CheckRangeCmd struct {
	Source string `arg:"" help:"Revision to be merged."`
	Target string `arg:"" help:"Branch that receives the merge."`
}

func (c *CheckRangeCmd) Run(ctx *runContext) error {
	ws, err := ctx.workspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	_, err = ws.CheckRange(ctx.ctx, c.Source, c.Target)
	if err != nil {
		return err
	}

	ws.Console().Printf("No rule violated\n")
	return nil
}
