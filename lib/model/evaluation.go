package model

import (
	"time"
)

// Evaluation is the audit record of one push evaluation.
type Evaluation struct {
	ID         string
	Repository string
	Date       time.Time
	RefUpdates []RefUpdate
	Commits    int
	Changes    int
	Passed     bool
	Violations []string
}
