package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/pescuma/pushguard/lib/model"
)

type AuditListCmd struct {
	Limit int `default:"20" help:"Maximum number of evaluations to show."`
}

func (c *AuditListCmd) Run(ctx *runContext) error {
	ws, err := ctx.workspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	evals, err := ws.ListEvaluations(c.Limit)
	if err != nil {
		return err
	}

	for _, e := range evals {
		status := "passed"
		if !e.Passed {
			status = "REJECTED"
		}

		refs := lo.Map(e.RefUpdates, func(u model.RefUpdate, _ int) string { return u.String() })

		fmt.Printf("%v  %v  %-8v  %v commits, %v files  %v\n",
			e.ID, humanize.Time(e.Date), status, e.Commits, e.Changes, strings.Join(refs, ", "))

		for _, v := range e.Violations {
			fmt.Printf("    %v\n", v)
		}
	}

	return nil
}
