package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yosyshq/xbuild/src/core"
)

const sampleRule = `package main

import "xbuild.dev/rulesapi/rulesapi"

func main() {
	rulesapi.DefineSource("yosys", "git", "https://github.com/YosysHQ/yosys", "main")
	rulesapi.DefineTarget(rulesapi.TargetSpec{
		Name:    "yosys",
		Sources: []string{"yosys"},
	})
}
`

func writeGroup(t *testing.T, files map[string]string) string {
	t.Helper()
	group := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(group, core.RulesDir), 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(group, core.RulesDir, name), []byte(content), 0o644))
	}
	return group
}

func TestLoadGroupRegistersSourcesAndTargets(t *testing.T) {
	group := writeGroup(t, map[string]string{"cad.rule.go": sampleRule})
	ctx := core.NewBuildContext(t.TempDir())

	require.NoError(t, NewLoader(ctx).LoadGroup(group))

	src, ok := ctx.Registry.Source("yosys")
	require.True(t, ok)
	assert.Equal(t, "git", src.VCS)

	tgt, ok := ctx.Registry.Target("yosys")
	require.True(t, ok)
	assert.Equal(t, group, tgt.Group)
	assert.Equal(t, []string{"yosys"}, tgt.Sources)
}

func TestLoadGroupSkipsInitAndBaseFiles(t *testing.T) {
	group := writeGroup(t, map[string]string{
		"__init__.rule.go": `package main
func main() { panic("should never run") }`,
		"base.rule.go": `package main
func main() { panic("should never run") }`,
		"cad.rule.go": sampleRule,
	})
	ctx := core.NewBuildContext(t.TempDir())

	require.NoError(t, NewLoader(ctx).LoadGroup(group))
	_, ok := ctx.Registry.Target("yosys")
	assert.True(t, ok)
}

func TestLoadGroupFatalOnBadRule(t *testing.T) {
	group := writeGroup(t, map[string]string{
		"broken.rule.go": `package main
func main() { this is not valid go }`,
	})
	ctx := core.NewBuildContext(t.TempDir())

	err := NewLoader(ctx).LoadGroup(group)
	require.Error(t, err)
	var xerr *core.Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, core.RuleEvaluation, xerr.Kind)
}
