package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefineSourceReplacesSilently(t *testing.T) {
	r := NewRegistry()
	r.DefineSource(&Source{Name: "zlib", Revision: "v1.2.11"})
	r.DefineSource(&Source{Name: "zlib", Revision: "v1.2.13"})

	s, ok := r.Source("zlib")
	require.True(t, ok)
	assert.Equal(t, "v1.2.13", s.Revision)
}

func TestDefineTargetOverrides(t *testing.T) {
	r := NewRegistry()
	r.DefineTarget(&Target{Name: "icestorm"})
	r.DefineTarget(&Target{Name: "icestorm", Package: true})

	tgt, ok := r.Target("icestorm")
	require.True(t, ok)
	assert.True(t, tgt.Package)
}

func TestUnknownLookupsReturnFalse(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Source("nope")
	assert.False(t, ok)
	_, ok = r.Target("nope")
	assert.False(t, ok)
}

func TestTargetBuildsForArch(t *testing.T) {
	unrestricted := &Target{Name: "all"}
	assert.True(t, unrestricted.BuildsForArch(LinuxX64))

	restricted := &Target{Name: "arm-only", Arch: []Arch{LinuxArm64}}
	assert.True(t, restricted.BuildsForArch(LinuxArm64))
	assert.False(t, restricted.BuildsForArch(LinuxX64))
}
