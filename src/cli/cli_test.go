package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yosyshq/xbuild/src/core"
)

func TestParseArgsParsesVerbAndFlags(t *testing.T) {
	verb, opts := ParseArgs([]string{"xbuild", "--group", "cad", "--arch", "linux-arm64", "--target", "yosys", "build"})
	assert.Equal(t, Build, verb)
	assert.Equal(t, []string{"cad"}, opts.Groups)
	assert.Equal(t, "linux-arm64", opts.Arch)
	assert.Equal(t, "yosys", opts.Target)
}

func TestParseArgsAcceptsMultipleGroups(t *testing.T) {
	_, opts := ParseArgs([]string{"xbuild", "--group", "cad", "--group", "extra", "--target", "t", "pull"})
	assert.Equal(t, []string{"cad", "extra"}, opts.Groups)
}

func TestDispatchRejectsUnknownVerb(t *testing.T) {
	err := dispatch(context.Background(), Verb("launch-the-missiles"), &Opts{Groups: []string{"cad"}, Arch: "linux-x64", WorkDir: t.TempDir()})
	assert := assert.New(t)
	assert.Error(err)
	var xerr *core.Error
	assert.ErrorAs(err, &xerr)
	assert.Equal(core.ConfigConflict, xerr.Kind)
}
