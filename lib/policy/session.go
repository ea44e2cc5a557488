package policy

import (
	"context"
	"sort"

	"github.com/hashicorp/go-set/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/pescuma/pushguard/lib/consoles"
	"github.com/pescuma/pushguard/lib/history"
	"github.com/pescuma/pushguard/lib/model"
	"github.com/pescuma/pushguard/lib/sizes"
)

type SessionOptions struct {
	PageSize            int
	MaxChangesPerCommit int
}

// Session evaluates rules for a single push. Commits, changes and sizes are looked up once and
// shared by all the rules of the session, so a new Session must be created for each push.
type Session struct {
	console consoles.Console
	commits *history.CommitsResolver
	changes *history.ChangeExtractor
	sizes   *sizes.Resolver

	seenCommits *set.Set[model.ObjectID]
	seenChanges *set.Set[model.Change]
}

func NewSession(console consoles.Console, provider history.Provider, opts *SessionOptions) *Session {
	if opts == nil {
		opts = &SessionOptions{}
	}

	return &Session{
		console: console,
		commits: history.NewCommitsResolver(console, provider),
		changes: history.NewChangeExtractor(console, provider, &history.ChangeExtractorOptions{
			PageSize:            opts.PageSize,
			MaxChangesPerCommit: opts.MaxChangesPerCommit,
		}),
		sizes:       sizes.NewResolver(console, provider),
		seenCommits: set.New[model.ObjectID](100),
		seenChanges: set.New[model.Change](100),
	}
}

// Evaluate checks every rule against updates, one rule after the other.
func (s *Session) Evaluate(ctx context.Context, rules *Ruleset, updates []model.RefUpdate) (*Result, error) {
	result := &Result{
		Updates: updates,
	}

	for i, rule := range rules.SizeRules {
		s.console.PushPrefix("size rule %v: ", i+1)
		vs, err := s.EvaluateSizeRule(ctx, rule, updates)
		s.console.PopPrefix()
		if err != nil {
			return nil, errors.Wrapf(err, "error evaluating size rule %v", i+1)
		}

		result.SizeViolations = append(result.SizeViolations, vs...)
	}

	for i, rule := range rules.NameRules {
		s.console.PushPrefix("name rule %v: ", i+1)
		vs, err := s.EvaluateNameRule(ctx, rule, updates)
		s.console.PopPrefix()
		if err != nil {
			return nil, errors.Wrapf(err, "error evaluating name rule %v", i+1)
		}

		result.NameViolations = append(result.NameViolations, vs...)
	}

	result.Commits = s.seenCommits.Size()
	result.Changes = s.seenChanges.Size()

	return result, nil
}

// EvaluateSizeRule returns the files of updates larger than the rule allows. Files whose size
// is unknown never break the rule.
func (s *Session) EvaluateSizeRule(ctx context.Context, rule *SizeRule, updates []model.RefUpdate) ([]SizeViolation, error) {
	// Deletes are kept: excluding their history narrows the walk
	updates = lo.Filter(updates, func(u model.RefUpdate, _ int) bool { return rule.AppliesTo(u) })

	changes, err := s.changesOf(ctx, updates, rule.MatchesPath)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, nil
	}

	ids := lo.Map(changes, func(c model.Change, _ int) model.ObjectID { return c.ContentID })

	// Fills the cache with a single request
	_, err = s.sizes.Sizes(ctx, ids)
	if err != nil {
		return nil, err
	}

	var result []SizeViolation
	for _, c := range changes {
		size, ok := s.sizes.Size(c.ContentID)
		if !ok || size <= rule.MaxSize {
			continue
		}

		result = append(result, SizeViolation{
			Path:    c.Path,
			Size:    size,
			MaxSize: rule.MaxSize,
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })

	s.console.Debugf("%v files checked, %v too large\n", len(changes), len(result))

	return result, nil
}

// EvaluateNameRule returns the files of updates whose path is forbidden by the rule.
func (s *Session) EvaluateNameRule(ctx context.Context, rule *NameRule, updates []model.RefUpdate) ([]NameViolation, error) {
	updates = lo.Filter(updates, func(u model.RefUpdate, _ int) bool { return rule.AppliesTo(u) })

	changes, err := s.changesOf(ctx, updates, rule.MatchesPath)
	if err != nil {
		return nil, err
	}

	branches := ""
	if rule.Branches != nil {
		branches = rule.Branches.String()
	}

	paths := lo.Uniq(lo.Map(changes, func(c model.Change, _ int) string { return c.Path }))
	sort.Strings(paths)

	result := lo.Map(paths, func(path string, _ int) NameViolation {
		return NameViolation{
			Path:     path,
			Pattern:  rule.Include.String(),
			Branches: branches,
		}
	})

	s.console.Debugf("%v files checked, %v forbidden\n", len(changes), len(result))

	return result, nil
}

func (s *Session) changesOf(ctx context.Context, updates []model.RefUpdate, matches func(path string) bool) ([]model.Change, error) {
	if len(updates) == 0 {
		return nil, nil
	}

	commits, err := s.commits.CommitsBetween(ctx, updates)
	if err != nil {
		return nil, err
	}

	changes, err := s.changes.Changes(ctx, commits)
	if err != nil {
		return nil, err
	}

	for _, c := range commits {
		s.seenCommits.Insert(c.ID)
	}
	for _, c := range changes {
		s.seenChanges.Insert(c)
	}

	return lo.Filter(changes, func(c model.Change, _ int) bool { return matches(c.Path) }), nil
}
