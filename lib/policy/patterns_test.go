package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathPatternRegexMatchesAnywhere(t *testing.T) {
	t.Parallel()

	p, err := CompilePathPattern(`\.bin$`)
	require.NoError(t, err)

	assert.True(t, p.Match("big.bin"))
	assert.True(t, p.Match("dir/sub/big.bin"))
	assert.False(t, p.Match("big.bin.txt"))
	assert.Equal(t, `\.bin$`, p.String())
}

func TestPathPatternGlob(t *testing.T) {
	t.Parallel()

	p, err := CompilePathPattern("glob:**/*.exe")
	require.NoError(t, err)

	assert.True(t, p.Match("a.exe"))
	assert.True(t, p.Match("bin/tools/a.exe"))
	assert.False(t, p.Match("a.exe.txt"))
}

func TestPathPatternInvalid(t *testing.T) {
	t.Parallel()

	_, err := CompilePathPattern("(")
	assert.Error(t, err)

	_, err = CompilePathPattern("glob:[")
	assert.Error(t, err)

	_, err = CompilePathPattern("")
	assert.Error(t, err)
}

func TestBranchPatternRegexMatchesWholeName(t *testing.T) {
	t.Parallel()

	p, err := CompileBranchPattern("main|release/.*")
	require.NoError(t, err)

	assert.True(t, p.Match("main"))
	assert.True(t, p.Match("release/1.0"))
	assert.False(t, p.Match("maintenance"))
	assert.False(t, p.Match("old/main"))
}

func TestBranchPatternGlob(t *testing.T) {
	t.Parallel()

	p, err := CompileBranchPattern("glob:release/*")
	require.NoError(t, err)

	assert.True(t, p.Match("release/1.0"))
	assert.False(t, p.Match("release/1.0/hotfix"))
	assert.False(t, p.Match("main"))
}

func TestBranchPatternInvalid(t *testing.T) {
	t.Parallel()

	_, err := CompileBranchPattern("(")
	assert.Error(t, err)

	_, err = CompileBranchPattern("glob:[")
	assert.Error(t, err)
}
