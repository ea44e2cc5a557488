package orm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithMysql(t *testing.T) {
	t.Parallel()

	d, err := WithMysql("user:secret@tcp(db:3306)/pushguard")
	require.NoError(t, err)

	assert.Equal(t, "mysql", d.Name())
}

func TestWithMysqlInvalidDSN(t *testing.T) {
	t.Parallel()

	_, err := WithMysql("user:secret@tcp(db:3306)")

	assert.ErrorContains(t, err, "invalid mysql DSN")
}
