// Package rules discovers and evaluates the rule files of a group, feeding
// the Sources and Targets they declare into a core.Registry (spec.md §4.B).
package rules

import "github.com/yosyshq/xbuild/src/core"

// Registrar is the plugin ABI a rule file is given. It is the explicit
// capability spec.md §9 asks for in place of the Python original's
// process-global sources/targets dicts: a rule file can only reach the
// Registry through these two calls.
type Registrar interface {
	DefineSource(name, vcs, location, revision string)
	DefineTarget(t TargetSpec)
}

// TargetSpec is the plain-data shape a rule file builds up and passes to
// Registrar.DefineTarget. It mirrors core.Target minus the Group field,
// which the loader fills in from the group currently being evaluated.
type TargetSpec struct {
	Name         string
	Sources      []string
	Dependencies []string
	Resources    []string
	Patches      []string
	Arch         []string
	Package      bool
	LicenseURL   string
	LicenseFile  string
}

// registrar is the concrete Registrar handed to interpreted rule files; it
// closes over the group currently being loaded so every Target it defines
// gets tagged with the right core.Target.Group.
type registrar struct {
	ctx   *core.BuildContext
	group string
}

func (r *registrar) DefineSource(name, vcs, location, revision string) {
	r.ctx.Registry.DefineSource(&core.Source{
		Name:     name,
		VCS:      vcs,
		Location: location,
		Revision: revision,
	})
}

func (r *registrar) DefineTarget(t TargetSpec) {
	arch := make([]core.Arch, len(t.Arch))
	for i, a := range t.Arch {
		arch[i] = core.Arch(a)
	}
	r.ctx.Registry.DefineTarget(&core.Target{
		Name:         t.Name,
		Group:        r.group,
		Sources:      t.Sources,
		Dependencies: t.Dependencies,
		Resources:    t.Resources,
		Patches:      t.Patches,
		Arch:         arch,
		Package:      t.Package,
		LicenseURL:   t.LicenseURL,
		LicenseFile:  t.LicenseFile,
	})
}
