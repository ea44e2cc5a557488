package main

import (
	"fmt"

	"github.com/gertd/go-pluralize"

	"github.com/pescuma/pushguard/lib/config"
	"github.com/pescuma/pushguard/lib/utils"
)

type ConfigValidateCmd struct {
}

func (c *ConfigValidateCmd) Run(ctx *runContext) error {
	dir := ctx.opts.RepositoryDir
	if dir == "" {
		dir = "."
	}

	dir, err := utils.PathAbs(dir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(ctx.opts.ConfigFile, dir)
	if err != nil {
		return err
	}

	err = cfg.Validate()
	if err != nil {
		return err
	}

	pc := pluralize.NewClient()
	fmt.Printf("Configuration is valid: %v and %v.\n",
		pc.Pluralize("size rule", len(cfg.SizeRules), true),
		pc.Pluralize("name rule", len(cfg.NameRules), true))

	return nil
}
