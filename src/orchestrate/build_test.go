package orchestrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yosyshq/xbuild/src/core"
)

func setupGroup(t *testing.T, workDir string) string {
	t.Helper()
	group := filepath.Join(workDir, "cad")
	require.NoError(t, os.MkdirAll(filepath.Join(group, core.ScriptsDir), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(group, core.PatchesDir), 0o755))
	return group
}

func writeScript(t *testing.T, group, target, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(group, core.ScriptsDir, target+".sh"), []byte(body), 0o644))
}

func TestRunBuildExecutesScriptAndWritesOutput(t *testing.T) {
	if _, err := os.Stat("/bin/bash"); err != nil {
		t.Skip("no /bin/bash available")
	}
	workDir := t.TempDir()
	group := setupGroup(t, workDir)
	bctx := core.NewBuildContext(workDir)

	writeScript(t, group, "yosys", "echo building > \"$OUTPUT_DIR/marker\"\n")
	bctx.Registry.DefineTarget(&core.Target{Name: "yosys", Group: group})

	opts := Options{Target: "yosys", Arch: core.HostArch(), Local: true, Prefix: "/opt/cad", Nproc: 1}
	require.NoError(t, RunBuild(context.Background(), bctx, opts))

	marker := filepath.Join(bctx.OutputDir("local", "yosys"), "marker")
	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "building\n", string(data))

	_, err = os.Stat(filepath.Join(bctx.OutputDir("local", "yosys"), ".hash"))
	assert.NoError(t, err)
}

func TestRunBuildSkipsWhenFingerprintUnchanged(t *testing.T) {
	if _, err := os.Stat("/bin/bash"); err != nil {
		t.Skip("no /bin/bash available")
	}
	workDir := t.TempDir()
	group := setupGroup(t, workDir)
	bctx := core.NewBuildContext(workDir)

	writeScript(t, group, "yosys", "echo run >> \"$OUTPUT_DIR/count\"\n")
	bctx.Registry.DefineTarget(&core.Target{Name: "yosys", Group: group})

	opts := Options{Target: "yosys", Arch: core.HostArch(), Local: true, Prefix: "/opt/cad", Nproc: 1}
	require.NoError(t, RunBuild(context.Background(), bctx, opts))
	require.NoError(t, RunBuild(context.Background(), bctx, opts))

	data, err := os.ReadFile(filepath.Join(bctx.OutputDir("local", "yosys"), "count"))
	require.NoError(t, err)
	assert.Equal(t, "run\n", string(data))
}

func TestRunBuildPackageAggregatesResourceOutputs(t *testing.T) {
	if _, err := os.Stat("/bin/bash"); err != nil {
		t.Skip("no /bin/bash available")
	}
	workDir := t.TempDir()
	group := setupGroup(t, workDir)
	bctx := core.NewBuildContext(workDir)

	writeScript(t, group, "r1", "echo r1 > \"$OUTPUT_DIR/r1.txt\"\n")
	writeScript(t, group, "r2", "echo r2 > \"$OUTPUT_DIR/r2.txt\"\n")
	writeScript(t, group, "pkg", "test -f \"$OUTPUT_DIR/r1.txt\" && test -f \"$OUTPUT_DIR/r2.txt\" && echo packaged > \"$OUTPUT_DIR/pkg.txt\"\n")

	bctx.Registry.DefineTarget(&core.Target{Name: "r1", Group: group})
	bctx.Registry.DefineTarget(&core.Target{Name: "r2", Group: group})
	bctx.Registry.DefineTarget(&core.Target{Name: "pkg", Group: group, Package: true, Resources: []string{"r1", "r2"}})

	opts := Options{Target: "pkg", Arch: core.HostArch(), Local: true, Prefix: "/opt/cad", Nproc: 1}
	require.NoError(t, RunBuild(context.Background(), bctx, opts))

	data, err := os.ReadFile(filepath.Join(bctx.OutputDir("local", "pkg"), "pkg.txt"))
	require.NoError(t, err)
	assert.Equal(t, "packaged\n", string(data))
}

func TestRunBuildRejectsDeployWithoutLocal(t *testing.T) {
	workDir := t.TempDir()
	bctx := core.NewBuildContext(workDir)
	bctx.Registry.DefineTarget(&core.Target{Name: "yosys", Group: setupGroup(t, workDir)})

	err := RunBuild(context.Background(), bctx, Options{Target: "yosys", Arch: core.HostArch(), Deploy: true, Local: false})
	require.Error(t, err)
	var xerr *core.Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, core.ConfigConflict, xerr.Kind)
}

func TestRunBuildRejectsUnknownArch(t *testing.T) {
	workDir := t.TempDir()
	bctx := core.NewBuildContext(workDir)
	err := RunBuild(context.Background(), bctx, Options{Target: "yosys", Arch: core.Arch("plan9-x64")})
	require.Error(t, err)
	var xerr *core.Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, core.UnknownArch, xerr.Kind)
}
