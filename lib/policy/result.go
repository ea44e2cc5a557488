package policy

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/pescuma/pushguard/lib/model"
)

// ErrPushRejected is returned when a push breaks at least one rule.
var ErrPushRejected = errors.New("push rejected")

type SizeViolation struct {
	Path    string
	Size    int64
	MaxSize int64
}

type NameViolation struct {
	Path     string
	Pattern  string
	Branches string
}

// Result is the outcome of evaluating a Ruleset on one push.
type Result struct {
	Updates        []model.RefUpdate
	Commits        int
	Changes        int
	SizeViolations []SizeViolation
	NameViolations []NameViolation
}

func (r *Result) Passed() bool {
	return len(r.SizeViolations) == 0 && len(r.NameViolations) == 0
}

// Err returns ErrPushRejected if the push broke any rule.
func (r *Result) Err() error {
	if r.Passed() {
		return nil
	}

	return errors.Wrapf(ErrPushRejected, "%v violations", len(r.SizeViolations)+len(r.NameViolations))
}

// MaxSizes returns the distinct limits that were exceeded, from the smallest.
func (r *Result) MaxSizes() []int64 {
	result := lo.Uniq(lo.Map(r.SizeViolations, func(v SizeViolation, _ int) int64 { return v.MaxSize }))
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// SizeViolationsOf returns the violations of one limit, one per path.
func (r *Result) SizeViolationsOf(maxSize int64) []SizeViolation {
	vs := lo.Filter(r.SizeViolations, func(v SizeViolation, _ int) bool { return v.MaxSize == maxSize })
	return lo.UniqBy(vs, func(v SizeViolation) string { return v.Path })
}

// Messages describes each violation in one line.
func (r *Result) Messages() []string {
	var result []string

	for _, maxSize := range r.MaxSizes() {
		for _, v := range r.SizeViolationsOf(maxSize) {
			result = append(result, v.String())
		}
	}

	for _, v := range r.NameViolations {
		result = append(result, v.String())
	}

	return result
}

func (v SizeViolation) String() string {
	return fmt.Sprintf("File [%v] is too large. Maximum allowed file size is %v bytes.", v.Path, v.MaxSize)
}

func (v NameViolation) String() string {
	if v.Branches != "" {
		return fmt.Sprintf("File [%v] violates file name pattern [%v] for branch [%v].", v.Path, v.Pattern, v.Branches)
	}

	return fmt.Sprintf("File [%v] violates file name pattern [%v].", v.Path, v.Pattern)
}
