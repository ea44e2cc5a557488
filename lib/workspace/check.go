package workspace

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/pescuma/pushguard/lib/history"
	"github.com/pescuma/pushguard/lib/model"
	"github.com/pescuma/pushguard/lib/policy"
)

// ParseHookInput reads the ref updates git gives to pre-receive hooks, one
// "<old-value> <new-value> <ref-name>" per line.
func ParseHookInput(r io.Reader) ([]model.RefUpdate, error) {
	var result []model.RefUpdate

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 3 || !model.IsObjectID(fields[0]) || !model.IsObjectID(fields[1]) {
			return nil, errors.Errorf("invalid hook input at line %v: %v", line, text)
		}

		from := model.ObjectID(fields[0])
		to := model.ObjectID(fields[1])
		if from.IsZero() && to.IsZero() {
			return nil, errors.Errorf("invalid hook input at line %v: %v", line, text)
		}

		result = append(result, model.NewRefUpdate(fields[2], from, to))
	}

	err := scanner.Err()
	if err != nil {
		return nil, errors.Wrap(err, "error reading hook input")
	}

	return result, nil
}

// PreReceive checks the updates of a push as the pre-receive hook receives them.
func (w *Workspace) PreReceive(ctx context.Context, input io.Reader) (*policy.Result, error) {
	updates, err := ParseHookInput(input)
	if err != nil {
		return nil, err
	}

	return w.Check(ctx, updates)
}

// Check evaluates the rules on updates and reports any violation. A push that breaks the rules
// returns a result and an error wrapping policy.ErrPushRejected.
func (w *Workspace) Check(ctx context.Context, updates []model.RefUpdate) (*policy.Result, error) {
	return w.check(ctx, w.provider, updates)
}

func (w *Workspace) check(ctx context.Context, provider history.Provider, updates []model.RefUpdate) (*policy.Result, error) {
	if len(updates) == 0 || w.rules.Empty() {
		w.console.Debugf("Nothing to check\n")
		return &policy.Result{Updates: updates}, nil
	}

	ctx, cancel := w.watchdog(ctx)
	defer cancel()

	return w.evaluate(ctx, provider, updates)
}

// evaluate runs the rules on updates. ctx must already be under the watchdog.
func (w *Workspace) evaluate(ctx context.Context, provider history.Provider, updates []model.RefUpdate) (*policy.Result, error) {
	for _, u := range updates {
		w.console.Debugf("Checking %v\n", u)
	}

	session := policy.NewSession(w.console, provider, &policy.SessionOptions{
		PageSize:            w.config.History.PageSize,
		MaxChangesPerCommit: w.config.History.MaxChangesPerCommit,
	})

	result, err := session.Evaluate(ctx, w.rules, updates)
	if err != nil {
		return nil, w.stopped(ctx, err)
	}

	w.console.Debugf("%v new commits, %v changed files\n", result.Commits, result.Changes)

	err = policy.WriteReport(w.out, result)
	if err != nil {
		return nil, errors.Wrap(err, "error writing report")
	}

	w.audit(result)

	return result, result.Err()
}

// CheckRange evaluates the rules on what merging source into target would bring to target,
// which is every commit of source after their merge base.
func (w *Workspace) CheckRange(ctx context.Context, source string, target string) (*policy.Result, error) {
	if w.revisions == nil {
		return nil, errors.New("the history provider can not resolve revisions")
	}

	ctx, cancel := w.watchdog(ctx)
	defer cancel()

	sourceID, err := w.revisions.ResolveRevision(ctx, source)
	if err != nil {
		return nil, w.stopped(ctx, err)
	}

	targetID, err := w.revisions.ResolveRevision(ctx, target)
	if err != nil {
		return nil, w.stopped(ctx, err)
	}

	targetRef := target
	if !strings.HasPrefix(targetRef, "refs/") {
		targetRef = model.BranchPrefix + targetRef
	}

	base, ok, err := w.revisions.MergeBase(ctx, sourceID, targetID)
	if err != nil {
		return nil, w.stopped(ctx, err)
	}
	if !ok {
		base = model.ZeroID
	}

	update := model.NewRefUpdate(targetRef, base, sourceID)
	if update.Type == model.RefAdd {
		w.console.Debugf("%v and %v have no common history\n", source, target)
	}

	if w.rules.Empty() {
		return &policy.Result{Updates: []model.RefUpdate{update}}, nil
	}

	// The other heads would exclude source itself
	return w.evaluate(ctx, &rangeProvider{Provider: w.provider}, []model.RefUpdate{update})
}

// stopped names the watchdog in err when it is what stopped ctx.
func (w *Workspace) stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.Wrap(err, context.Cause(ctx).Error())
	}
	return err
}

// rangeProvider hides the heads of the repository, so only the update bounds the walk.
type rangeProvider struct {
	history.Provider
}

func (p *rangeProvider) ListRefs(context.Context) ([]model.Ref, error) {
	return nil, nil
}

func (w *Workspace) audit(result *policy.Result) {
	if w.storage == nil {
		return
	}

	err := w.storage.WriteEvaluation(&model.Evaluation{
		ID:         model.NewEvaluationID(),
		Repository: w.repoDir,
		Date:       time.Now(),
		RefUpdates: result.Updates,
		Commits:    result.Commits,
		Changes:    result.Changes,
		Passed:     result.Passed(),
		Violations: result.Messages(),
	})
	if err != nil {
		w.console.Printf("Warning: %v\n", err)
	}
}

// ListEvaluations returns the latest entries of the audit log of this repository.
func (w *Workspace) ListEvaluations(limit int) ([]*model.Evaluation, error) {
	if w.storage == nil {
		return nil, errors.New("the audit log is disabled: set audit.database in the configuration")
	}

	return w.storage.ListEvaluations(w.repoDir, limit)
}
