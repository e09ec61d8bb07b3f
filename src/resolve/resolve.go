// Package resolve computes a serial build order for a target/architecture
// pair: depth-first topological sort with cycle detection, architecture
// filtering, and package-resource promotion (spec.md §4.D).
//
// The colour-set DFS and the dependencyChain-style cycle message are
// grounded in please's src/core/cycle_detector.go, adapted from an
// asynchronous queue-based detector to a direct recursive one since the
// orchestrator resolves one target at a time rather than building a whole
// graph's edges concurrently.
package resolve

import (
	"strings"

	"gopkg.in/op/go-logging.v1"

	"github.com/yosyshq/xbuild/src/core"
)

var log = logging.MustGetLogger("resolve")

// dependencyChain renders a cycle for the error message, e.g. "a -> b -> a".
type dependencyChain []string

func (c dependencyChain) String() string { return strings.Join(c, " -> ") }

type resolver struct {
	reg     *core.Registry
	arch    core.Arch
	display bool

	resolved   map[string]bool
	inProgress map[string]bool
	chain      []string
	order      []string
}

// Order returns the build order for target at arch: a list whose first
// elements are leaves and whose last element is target itself. display
// controls whether arch-skips are logged as warnings (callers doing a real
// build pass want that; callers only gathering the needed-source set don't).
func Order(reg *core.Registry, target string, arch core.Arch, display bool) ([]string, error) {
	r := &resolver{
		reg:        reg,
		arch:       arch,
		display:    display,
		resolved:   map[string]bool{},
		inProgress: map[string]bool{},
	}
	if err := r.visit(target); err != nil {
		return nil, err
	}

	root, ok := reg.Target(target)
	if !ok {
		return nil, core.Fatalf(core.UnknownTarget, target)
	}
	if root.Package {
		promoteResources(reg, &r.order)
	}
	return r.order, nil
}

// visit performs one step of the three-colour DFS: node.Arch excludes the
// requested architecture => skip without visiting dependencies; otherwise
// mark in-progress, recurse, then append to the output and clear
// in-progress.
func (r *resolver) visit(name string) error {
	if r.resolved[name] {
		return nil
	}
	node, ok := r.reg.Target(name)
	if !ok {
		return core.Fatalf(core.UnknownTarget, name)
	}
	if !node.BuildsForArch(r.arch) {
		if r.display {
			core.LogWarning(core.ArchSkip, name)
		}
		return nil
	}

	if r.inProgress[name] {
		cycle := append(append(dependencyChain{}, r.chain...), name)
		return core.Errorf(core.Cycle, cycle.String(), nil)
	}

	r.inProgress[name] = true
	r.chain = append(r.chain, name)
	for _, dep := range node.Dependencies {
		if err := r.visit(dep); err != nil {
			return err
		}
	}
	r.chain = r.chain[:len(r.chain)-1]
	delete(r.inProgress, name)

	r.resolved[name] = true
	r.order = append(r.order, name)
	return nil
}

// promoteResources repeatedly scans order; for any member that lists a
// Resource not yet in order, the resource is prepended. It iterates to a
// fixed point, per spec.md §4.D and the open-question note in spec.md §9.
func promoteResources(reg *core.Registry, order *[]string) {
	for {
		changed := false
		present := toSet(*order)
		for _, name := range *order {
			node, ok := reg.Target(name)
			if !ok {
				continue
			}
			for _, res := range node.Resources {
				if !present[res] {
					*order = append([]string{res}, *order...)
					present[res] = true
					changed = true
				}
			}
		}
		if !changed {
			return
		}
	}
}

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// NeededSources returns the union of Sources named by every node that Order
// would visit for target at arch, in display=false mode (spec.md §4.E).
func NeededSources(reg *core.Registry, target string, arch core.Arch) ([]string, error) {
	order, err := Order(reg, target, arch, false)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, name := range order {
		node, ok := reg.Target(name)
		if !ok {
			continue
		}
		for _, s := range node.Sources {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out, nil
}
