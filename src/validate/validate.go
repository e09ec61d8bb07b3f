// Package validate checks referential integrity of a loaded BuildContext:
// every source/dependency/resource name a Target lists must exist, and every
// patch it names must be present on disk (spec.md §4.C).
package validate

import (
	"os"
	"sort"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/op/go-logging.v1"

	"github.com/yosyshq/xbuild/src/core"
)

var log = logging.MustGetLogger("validate")

// Validate walks every Target in ctx.Registry and accumulates every
// referential problem it finds in a *multierror.Error
// (github.com/hashicorp/go-multierror). All but the first are logged, so an
// operator sees every broken reference in one pass; only the first is
// returned, and it is what makes the run fatal (spec.md §4.C: "the first
// referential failure is fatal"). Unused sources are logged as warnings, not
// accumulated as errors.
func Validate(ctx *core.BuildContext) error {
	var result *multierror.Error
	used := map[string]bool{}

	targets := ctx.Registry.Targets()
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })

	for _, t := range targets {
		for _, s := range t.Sources {
			used[s] = true
			if _, ok := ctx.Registry.Source(s); !ok {
				result = multierror.Append(result, core.Fatalf(core.UnknownSource, s))
			}
		}
		for _, d := range t.Dependencies {
			if d == t.Name {
				result = multierror.Append(result, core.Fatalf(core.SelfReference, t.Name))
				continue
			}
			if _, ok := ctx.Registry.Target(d); !ok {
				result = multierror.Append(result, core.Fatalf(core.UnknownTarget, d))
			}
		}
		for _, r := range t.Resources {
			if r == t.Name {
				result = multierror.Append(result, core.Fatalf(core.SelfReference, t.Name))
				continue
			}
			if _, ok := ctx.Registry.Target(r); !ok {
				result = multierror.Append(result, core.Fatalf(core.UnknownTarget, r))
			}
		}
		for _, p := range t.Patches {
			path := ctx.GroupPatch(t.Group, p)
			if _, err := os.Stat(path); err != nil {
				result = multierror.Append(result, core.Fatalf(core.MissingPatch, path))
			}
		}
	}

	for _, s := range ctx.Registry.Sources() {
		if !used[s.Name] {
			core.LogWarning(core.SourceUnused, s.Name)
		}
	}

	if result != nil {
		for _, e := range result.Errors[1:] {
			log.Errorf("%s", e)
		}
		return result.Errors[0]
	}
	return nil
}
