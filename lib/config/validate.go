package config

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/samber/lo"

	"github.com/pescuma/pushguard/lib/policy"
)

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%v: %v", e.Field, e.Message)
}

// ValidationError lists every invalid field of a configuration.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(lo.Map(e.Fields, func(f FieldError, _ int) string { return f.String() }), "; ")
}

type validator struct {
	fields []FieldError
}

func (v *validator) add(field string, format string, a ...any) {
	v.fields = append(v.fields, FieldError{Field: field, Message: fmt.Sprintf(format, a...)})
}

func (v *validator) pathPattern(field string, pattern string, required bool) {
	if pattern == "" {
		if required {
			v.add(field, "pattern is required")
		}
		return
	}

	_, err := policy.CompilePathPattern(pattern)
	if err != nil {
		v.add(field, "pattern is not valid: %v", err)
	}
}

func (v *validator) branchPattern(field string, pattern string) {
	if pattern == "" {
		return
	}

	_, err := policy.CompileBranchPattern(pattern)
	if err != nil {
		v.add(field, "pattern is not valid: %v", err)
	}
}

// Validate checks the whole configuration, returning a *ValidationError with all the problems
// found.
func (c *Config) Validate() error {
	v := &validator{}

	switch c.Git.Provider {
	case ProviderCLI, ProviderGoGit:
	default:
		v.add("git.provider", "must be %v or %v", ProviderCLI, ProviderGoGit)
	}

	if c.Git.Provider == ProviderCLI && c.Git.Binary == "" {
		v.add("git.binary", "is required")
	}
	if c.Git.Timeout < 0 {
		v.add("git.timeout", "must not be negative")
	}
	if c.History.PageSize < 0 {
		v.add("history.page-size", "must not be negative")
	}

	if len(c.SizeRules) > MaxSizeRules {
		v.add("size-rules", "at most %v rules are allowed", MaxSizeRules)
	}

	for i, r := range c.SizeRules {
		prefix := fmt.Sprintf("size-rules[%v]", i)

		v.pathPattern(prefix+".include", r.Include, true)
		v.pathPattern(prefix+".exclude", r.Exclude, false)
		v.branchPattern(prefix+".branches", r.Branches)

		if r.Size <= 0 {
			v.add(prefix+".size", "must be greater than 0")
		}
	}

	for i, r := range c.NameRules {
		prefix := fmt.Sprintf("name-rules[%v]", i)

		v.pathPattern(prefix+".include", r.Include, true)
		v.pathPattern(prefix+".exclude", r.Exclude, false)
		v.branchPattern(prefix+".branches", r.Branches)
	}

	switch c.Audit.Driver {
	case AuditSqlite:
	case AuditMysql:
		if c.Audit.Database != "" {
			if _, err := mysql.ParseDSN(c.Audit.Database); err != nil {
				v.add("audit.database", "is not a valid DSN: %v", err)
			}
		}
	default:
		v.add("audit.driver", "must be %v or %v", AuditSqlite, AuditMysql)
	}

	if len(v.fields) > 0 {
		return &ValidationError{Fields: v.fields}
	}

	return nil
}
