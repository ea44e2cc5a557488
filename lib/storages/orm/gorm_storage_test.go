package orm

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pescuma/pushguard/lib/consoles"
	"github.com/pescuma/pushguard/lib/model"
	"github.com/pescuma/pushguard/lib/storages"
)

const (
	idA model.ObjectID = "1111111111111111111111111111111111111111"
	idB model.ObjectID = "2222222222222222222222222222222222222222"
)

func newStorage(t *testing.T) storages.Storage {
	s, err := NewGormStorage(WithSqliteInMemory(), consoles.NewWriterConsole(io.Discard, false))
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func newEvaluation(repo string, date time.Time, passed bool) *model.Evaluation {
	e := &model.Evaluation{
		ID:         model.NewEvaluationID(),
		Repository: repo,
		Date:       date,
		RefUpdates: []model.RefUpdate{
			model.NewRefUpdate("refs/heads/main", idA, idB),
			model.NewRefUpdate("refs/heads/old", idA, model.ZeroID),
		},
		Commits: 3,
		Changes: 7,
		Passed:  passed,
	}
	if !passed {
		e.Violations = []string{"File [big.bin] is too large. Maximum allowed file size is 1000000 bytes."}
	}
	return e
}

func TestWriteAndListEvaluations(t *testing.T) {
	t.Parallel()

	s := newStorage(t)
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	first := newEvaluation("/srv/repo.git", now, true)
	second := newEvaluation("/srv/repo.git", now.Add(time.Minute), false)

	require.NoError(t, s.WriteEvaluation(first))
	require.NoError(t, s.WriteEvaluation(second))

	result, err := s.ListEvaluations("", 0)
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, second.ID, result[0].ID)
	assert.False(t, result[0].Passed)
	assert.Equal(t, second.Violations, result[0].Violations)
	assert.Equal(t, second.RefUpdates, result[0].RefUpdates)
	assert.Equal(t, model.RefDelete, result[0].RefUpdates[1].Type)
	assert.Equal(t, 3, result[0].Commits)
	assert.Equal(t, 7, result[0].Changes)
	assert.True(t, second.Date.Equal(result[0].Date))

	assert.Equal(t, first.ID, result[1].ID)
	assert.True(t, result[1].Passed)
	assert.Empty(t, result[1].Violations)
}

func TestListEvaluationsFilters(t *testing.T) {
	t.Parallel()

	s := newStorage(t)
	now := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.WriteEvaluation(newEvaluation("a", now.Add(time.Duration(i)*time.Second), true)))
	}
	require.NoError(t, s.WriteEvaluation(newEvaluation("b", now, true)))

	result, err := s.ListEvaluations("a", 2)
	require.NoError(t, err)
	assert.Len(t, result, 2)
	for _, e := range result {
		assert.Equal(t, "a", e.Repository)
	}

	result, err = s.ListEvaluations("b", 0)
	require.NoError(t, err)
	assert.Len(t, result, 1)
}

func TestTableNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "evaluations", namingStrategy{}.TableName("sqlEvaluation"))
}
