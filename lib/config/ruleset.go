package config

import (
	"github.com/pescuma/pushguard/lib/policy"
)

// Ruleset validates the configuration and compiles its rules.
func (c *Config) Ruleset() (*policy.Ruleset, error) {
	err := c.Validate()
	if err != nil {
		return nil, err
	}

	result := &policy.Ruleset{}

	for _, r := range c.SizeRules {
		rule := &policy.SizeRule{MaxSize: r.Size}
		rule.Include, rule.Exclude, rule.Branches = compile(r.Include, r.Exclude, r.Branches)
		result.SizeRules = append(result.SizeRules, rule)
	}

	for _, r := range c.NameRules {
		rule := &policy.NameRule{}
		rule.Include, rule.Exclude, rule.Branches = compile(r.Include, r.Exclude, r.Branches)
		result.NameRules = append(result.NameRules, rule)
	}

	return result, nil
}

// compile must only be called on validated patterns.
func compile(include, exclude, branches string) (*policy.PathPattern, *policy.PathPattern, *policy.BranchPattern) {
	i, _ := policy.CompilePathPattern(include)

	var e *policy.PathPattern
	if exclude != "" {
		e, _ = policy.CompilePathPattern(exclude)
	}

	var b *policy.BranchPattern
	if branches != "" {
		b, _ = policy.CompileBranchPattern(branches)
	}

	return i, e, b
}
