package orm

import (
	"time"

	"github.com/samber/lo"

	"github.com/pescuma/pushguard/lib/model"
)

type sqlEvaluation struct {
	ID         string         `gorm:"primaryKey"`
	Repository string         `gorm:"index"`
	Date       time.Time      `gorm:"index"`
	RefUpdates []sqlRefUpdate `gorm:"serializer:json"`
	Commits    int
	Changes    int
	Passed     bool
	Violations []string `gorm:"serializer:json"`

	CreatedAt time.Time
}

type sqlRefUpdate struct {
	Ref  string `json:"ref"`
	From string `json:"from"`
	To   string `json:"to"`
}

func newSqlEvaluation(e *model.Evaluation) *sqlEvaluation {
	return &sqlEvaluation{
		ID:         e.ID,
		Repository: e.Repository,
		Date:       e.Date,
		RefUpdates: lo.Map(e.RefUpdates, func(u model.RefUpdate, _ int) sqlRefUpdate {
			return sqlRefUpdate{
				Ref:  u.Ref,
				From: string(u.From),
				To:   string(u.To),
			}
		}),
		Commits:    e.Commits,
		Changes:    e.Changes,
		Passed:     e.Passed,
		Violations: e.Violations,
	}
}

func (s *sqlEvaluation) toModel() *model.Evaluation {
	return &model.Evaluation{
		ID:         s.ID,
		Repository: s.Repository,
		Date:       s.Date,
		RefUpdates: lo.Map(s.RefUpdates, func(u sqlRefUpdate, _ int) model.RefUpdate {
			return model.NewRefUpdate(u.Ref, model.ObjectID(u.From), model.ObjectID(u.To))
		}),
		Commits:    s.Commits,
		Changes:    s.Changes,
		Passed:     s.Passed,
		Violations: s.Violations,
	}
}
