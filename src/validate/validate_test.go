package validate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yosyshq/xbuild/src/core"
)

func newCtx(t *testing.T) *core.BuildContext {
	t.Helper()
	return core.NewBuildContext(t.TempDir())
}

func TestValidatePassesOnConsistentGraph(t *testing.T) {
	ctx := newCtx(t)
	group := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(group, core.PatchesDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(group, core.PatchesDir, "fix.patch"), []byte("diff"), 0o644))

	ctx.Registry.DefineSource(&core.Source{Name: "yosys"})
	ctx.Registry.DefineTarget(&core.Target{Name: "base", Group: group})
	ctx.Registry.DefineTarget(&core.Target{
		Name: "yosys", Group: group,
		Sources: []string{"yosys"}, Dependencies: []string{"base"}, Patches: []string{"fix.patch"},
	})

	assert.NoError(t, Validate(ctx))
}

func TestValidateUnknownSource(t *testing.T) {
	ctx := newCtx(t)
	ctx.Registry.DefineTarget(&core.Target{Name: "t", Sources: []string{"missing"}})

	err := Validate(ctx)
	require.Error(t, err)
	var xerr *core.Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, core.UnknownSource, xerr.Kind)
}

func TestValidateSelfReferenceDependency(t *testing.T) {
	ctx := newCtx(t)
	ctx.Registry.DefineTarget(&core.Target{Name: "t", Dependencies: []string{"t"}})

	err := Validate(ctx)
	require.Error(t, err)
	var xerr *core.Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, core.SelfReference, xerr.Kind)
}

func TestValidateMissingPatch(t *testing.T) {
	ctx := newCtx(t)
	group := t.TempDir()
	ctx.Registry.DefineTarget(&core.Target{Name: "t", Group: group, Patches: []string{"absent.patch"}})

	err := Validate(ctx)
	require.Error(t, err)
	var xerr *core.Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, core.MissingPatch, xerr.Kind)
}

func TestValidateUnknownDependencyAndResource(t *testing.T) {
	ctx := newCtx(t)
	ctx.Registry.DefineTarget(&core.Target{Name: "t", Dependencies: []string{"nope"}, Resources: []string{"nope-res"}})

	err := Validate(ctx)
	require.Error(t, err)
}
