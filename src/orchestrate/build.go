// Package orchestrate wires every phase — Rule Loader, Validator, VCS
// Puller, Resolver, Hasher, Cache Gate and Build Executor — into the
// sequential passes the "pull", "build" and "deploy" verbs drive
// (SPEC_FULL.md §12, grounded on please's src/plz orchestration layer).
package orchestrate

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/op/go-logging.v1"

	"github.com/yosyshq/xbuild/src/cache"
	"github.com/yosyshq/xbuild/src/core"
	"github.com/yosyshq/xbuild/src/deploy"
	execpkg "github.com/yosyshq/xbuild/src/exec"
	"github.com/yosyshq/xbuild/src/fingerprint"
	"github.com/yosyshq/xbuild/src/resolve"
	"github.com/yosyshq/xbuild/src/rules"
	"github.com/yosyshq/xbuild/src/stage"
	"github.com/yosyshq/xbuild/src/validate"
	"github.com/yosyshq/xbuild/src/vcs"
)

var log = logging.MustGetLogger("orchestrate")

// Options carries the flags every verb ultimately reduces to (SPEC_FULL.md
// §6 CLI surface).
type Options struct {
	Target   string
	Arch     core.Arch
	NoUpdate bool
	NoClean  bool
	Force    bool
	Prefix   string
	Local    bool
	Nproc    int
	// Deploy requests that, on a successful build, the staged install
	// prefix is mirrored onto the host. Only legal alongside Local.
	Deploy bool
	Sudo   bool
}

// LoadGroups runs the Rule Loader over every group directory and then
// validates the combined registry, the shared first step of every verb.
func LoadGroups(ctx *core.BuildContext, groups []string) error {
	loader := rules.NewLoader(ctx)
	for _, group := range groups {
		if err := loader.LoadGroup(group); err != nil {
			return err
		}
	}
	return validate.Validate(ctx)
}

// Pull loads groups, resolves the source closure needed for opts.Target at
// opts.Arch, and pulls each through the VCS Puller (spec.md §4.E).
func Pull(ctx *core.BuildContext, groups []string, opts Options) error {
	if err := LoadGroups(ctx, groups); err != nil {
		return err
	}
	if !core.Valid(opts.Arch) {
		return core.Fatalf(core.UnknownArch, string(opts.Arch))
	}
	puller := vcs.NewPuller(ctx)
	return puller.PullForTarget(opts.Target, opts.Arch, opts.NoUpdate)
}

// Build runs the full pass: load, validate, pull, resolve, and then for each
// node in resolved order compute its fingerprint, consult the Cache Gate,
// stage and execute its script if not skipped, and persist the sidecar
// (spec.md §4.D–§4.H).
func Build(ctx context.Context, bctx *core.BuildContext, groups []string, opts Options) error {
	if err := LoadGroups(bctx, groups); err != nil {
		return err
	}
	if err := vcs.NewPuller(bctx).PullForTarget(opts.Target, opts.Arch, opts.NoUpdate); err != nil {
		return err
	}
	return RunBuild(ctx, bctx, opts)
}

// RunBuild performs the resolve/hash/cache/stage/execute/deploy sequence
// against a Registry that has already been populated and pulled — the unit
// of work Build drives after loading groups, split out so it can be
// exercised directly with a hand-built BuildContext in tests.
func RunBuild(ctx context.Context, bctx *core.BuildContext, opts Options) error {
	if !core.Valid(opts.Arch) {
		return core.Fatalf(core.UnknownArch, string(opts.Arch))
	}
	if opts.Deploy && !opts.Local {
		return core.Fatalf(core.ConfigConflict, "deploy=true requires local=true")
	}

	order, err := resolve.Order(bctx.Registry, opts.Target, opts.Arch, true)
	if err != nil {
		return err
	}

	for _, name := range order {
		if err := buildOne(ctx, bctx, name, opts); err != nil {
			return err
		}
	}

	if opts.Deploy {
		return deploy.Deploy(bctx, opts.Target, opts.Prefix, opts.Sudo)
	}
	return nil
}

func buildOne(ctx context.Context, bctx *core.BuildContext, name string, opts Options) error {
	target, ok := bctx.Registry.Target(name)
	if !ok {
		return core.Fatalf(core.UnknownTarget, name)
	}
	if !target.BuildsForArch(opts.Arch) {
		core.LogWarning(core.ArchSkip, name)
		return nil
	}

	label := core.ArchLabel(opts.Arch, opts.Local)
	outputDir := bctx.OutputDir(label, name)
	buildDir := bctx.BuildDir(label, name)

	sum, err := fingerprint.Compute(bctx, target, opts.Prefix)
	if err != nil {
		return err
	}
	target.Hash = sum

	decision, err := cache.Check(outputDir, sum, opts.Force, cache.Cascades(bctx.Registry, target.Dependencies))
	if err != nil {
		return err
	}
	if decision.Skip {
		core.Info(log, "%s up to date, skipping", name)
		return nil
	}

	if err := stageTarget(bctx, target, opts, label, buildDir, outputDir); err != nil {
		return err
	}

	// A package's build_dir is effectively its output_dir: it never gets a
	// separate staging tree of its own, it only aggregates its resolved
	// nodes' outputs directly into output_dir (spec.md §4.G).
	stagingDir := buildDir
	if target.Package {
		stagingDir = outputDir
	}

	plan, err := execpkg.ResolvePlan(opts.Arch, opts.Local)
	if err != nil {
		return err
	}
	env := execpkg.Environment(bctx, plan, stagingDir, outputDir, bctx.GroupPatchesDir(target.Group), opts.Prefix, opts.Nproc)
	scriptPath := bctx.GroupScript(target.Group, target.Name)

	core.Step(log, "building", fmt.Sprintf("%s for %s", name, opts.Arch))
	if err := execpkg.Run(ctx, plan, scriptPath, stagingDir, env); err != nil {
		return err
	}

	if err := cache.Commit(outputDir, sum); err != nil {
		return err
	}
	target.Built = true

	if !opts.NoClean && !target.Package {
		if err := stage.RemoveAll(buildDir); err != nil {
			return err
		}
	}
	return nil
}

// stageTarget implements the directory-staging contract of spec.md §4.G:
// output_dir is always removed and recreated fresh; build_dir is reused in
// place under no_clean, otherwise repopulated from sources/dependency
// outputs (or, for a package target, from every other resolved node's
// output, copied straight into output_dir since a package has no build_dir
// of its own).
func stageTarget(bctx *core.BuildContext, target *core.Target, opts Options, label, buildDir, outputDir string) error {
	if err := stage.RemoveAll(outputDir); err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return core.Errorf(core.FSError, outputDir, err)
	}

	if opts.NoClean {
		if _, err := os.Stat(buildDir); err == nil {
			return nil
		}
	}

	if target.Package {
		order, err := resolve.Order(bctx.Registry, target.Name, opts.Arch, false)
		if err != nil {
			return err
		}
		for _, dep := range order {
			if dep == target.Name {
				continue
			}
			if err := stage.MirrorContentsInto(bctx.OutputDir(label, dep), outputDir); err != nil {
				return err
			}
		}
		return nil
	}

	if err := stage.RemoveAll(buildDir); err != nil {
		return err
	}
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return core.Errorf(core.FSError, buildDir, err)
	}
	for _, src := range target.Sources {
		if err := stage.MirrorInto(bctx.SourceDir(src), buildDir); err != nil {
			return err
		}
	}
	for _, dep := range target.Dependencies {
		depTarget, ok := bctx.Registry.Target(dep)
		if !ok {
			return core.Fatalf(core.UnknownTarget, dep)
		}
		if !depTarget.BuildsForArch(opts.Arch) {
			continue
		}
		if err := stage.MirrorContentsInto(bctx.OutputDir(label, dep), buildDir); err != nil {
			return err
		}
	}
	return nil
}
