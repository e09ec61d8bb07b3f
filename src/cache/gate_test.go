package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yosyshq/xbuild/src/core"
)

func TestCheckSkipsOnMatchingSidecar(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Commit(dir, "abc123"))

	d, err := Check(dir, "abc123", false, false)
	require.NoError(t, err)
	assert.True(t, d.Skip)
}

func TestCheckRebuildsOnMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Commit(dir, "old"))

	d, err := Check(dir, "new", false, false)
	require.NoError(t, err)
	assert.False(t, d.Skip)
}

func TestCheckRebuildsWhenNoSidecarYet(t *testing.T) {
	dir := t.TempDir()
	d, err := Check(dir, "abc123", false, false)
	require.NoError(t, err)
	assert.False(t, d.Skip)
}

func TestCheckForceAlwaysRebuilds(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Commit(dir, "abc123"))

	d, err := Check(dir, "abc123", true, false)
	require.NoError(t, err)
	assert.False(t, d.Skip)
}

func TestCheckCascadeAlwaysRebuilds(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Commit(dir, "abc123"))

	d, err := Check(dir, "abc123", false, true)
	require.NoError(t, err)
	assert.False(t, d.Skip)
}

func TestCommitWritesFingerprintToSidecar(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Commit(dir, "deadbeef"))

	data, err := os.ReadFile(filepath.Join(dir, sidecarName))
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", string(data))
}

func TestCascadesReflectsDependencyBuiltFlag(t *testing.T) {
	reg := core.NewRegistry()
	reg.DefineTarget(&core.Target{Name: "dep1", Built: false})
	reg.DefineTarget(&core.Target{Name: "dep2", Built: true})

	assert.False(t, Cascades(reg, []string{"dep1"}))
	assert.True(t, Cascades(reg, []string{"dep1", "dep2"}))
}
