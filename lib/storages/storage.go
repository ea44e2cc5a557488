package storages

import (
	"github.com/pescuma/pushguard/lib/model"
)

// Storage keeps the audit log of push evaluations.
type Storage interface {
	WriteEvaluation(e *model.Evaluation) error

	// ListEvaluations returns the latest evaluations first. An empty repository lists all of them.
	ListEvaluations(repository string, limit int) ([]*model.Evaluation, error)

	Close() error
}

type Factory = func(path string) (Storage, error)
