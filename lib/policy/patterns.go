package policy

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

const GlobPrefix = "glob:"

// PathPattern matches file paths. Regular expressions match anywhere in the path. Globs, with
// the glob: prefix, must match the whole path and support **.
type PathPattern struct {
	source string
	re     *regexp.Regexp
	glob   string
}

func CompilePathPattern(pattern string) (*PathPattern, error) {
	switch {
	case pattern == "":
		return nil, errors.New("empty pattern")

	case strings.HasPrefix(pattern, GlobPrefix):
		g := pattern[len(GlobPrefix):]
		if g == "" || !doublestar.ValidatePattern(g) {
			return nil, errors.Errorf("invalid file glob: %v", g)
		}

		return &PathPattern{source: pattern, glob: g}, nil

	default:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid file pattern: %v", pattern)
		}

		return &PathPattern{source: pattern, re: re}, nil
	}
}

func (p *PathPattern) Match(path string) bool {
	if p.re != nil {
		return p.re.MatchString(path)
	}

	m, err := doublestar.Match(p.glob, path)
	return err == nil && m
}

func (p *PathPattern) String() string {
	return p.source
}

// BranchPattern matches the short name of a ref, like main or release/1.0. Regular expressions
// must match the whole name. Globs use the glob: prefix, where * does not cross a /.
type BranchPattern struct {
	source string
	re     *regexp.Regexp
	glob   glob.Glob
}

func CompileBranchPattern(pattern string) (*BranchPattern, error) {
	switch {
	case pattern == "":
		return nil, errors.New("empty pattern")

	case strings.HasPrefix(pattern, GlobPrefix):
		g, err := glob.Compile(pattern[len(GlobPrefix):], '/')
		if err != nil {
			return nil, errors.Wrapf(err, "invalid branch glob: %v", pattern[len(GlobPrefix):])
		}

		return &BranchPattern{source: pattern, glob: g}, nil

	default:
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, errors.Wrapf(err, "invalid branch pattern: %v", pattern)
		}

		return &BranchPattern{source: pattern, re: re}, nil
	}
}

func (p *BranchPattern) Match(name string) bool {
	if p.re != nil {
		return p.re.MatchString(name)
	}

	return p.glob.Match(name)
}

func (p *BranchPattern) String() string {
	return p.source
}
