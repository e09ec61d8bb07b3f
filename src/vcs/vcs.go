// Package vcs clones/updates the upstream repositories a build's Sources
// name, checks them out at their pinned revision, and captures the resolved
// commit hash back onto core.Source (spec.md §4.E).
package vcs

import (
	"sort"

	"gopkg.in/op/go-logging.v1"

	"github.com/yosyshq/xbuild/src/core"
	"github.com/yosyshq/xbuild/src/resolve"
)

var log = logging.MustGetLogger("vcs")

// Backend is what a single VCS kind (git, and in principle hg/svn) must
// implement. It is deliberately narrow: spec.md treats "the concrete VCS
// client library" as an external collaborator whose interface only is
// specified here.
type Backend interface {
	// Valid reports whether dir looks like a checkout of this backend's kind
	// whose remote matches location.
	Valid(dir, location string) bool
	// Clone performs a fresh clone of location into dir.
	Clone(dir, location string) error
	// Update fetches new history into an existing checkout at dir.
	Update(dir string) error
	// Checkout moves the working tree at dir to revision.
	Checkout(dir, revision string) error
	// Head returns the commit identifier currently checked out at dir.
	Head(dir string) (string, error)
}

// Backends maps a Source.VCS discriminator to its Backend implementation.
// Callers may register additional backends (e.g. "hg") before calling
// PullForTarget.
var Backends = map[string]Backend{
	"git": &gitBackend{},
}

// Puller drives Backends against a BuildContext's registered Sources.
type Puller struct {
	ctx *core.BuildContext
}

// NewPuller returns a Puller operating against ctx.
func NewPuller(ctx *core.BuildContext) *Puller {
	return &Puller{ctx: ctx}
}

// PullForTarget resolves every Source needed to build target at arch (the
// union resolve.NeededSources reports) and pulls each of them.
func (p *Puller) PullForTarget(target string, arch core.Arch, noUpdate bool) error {
	names, err := resolve.NeededSources(p.ctx.Registry, target, arch)
	if err != nil {
		return err
	}
	sort.Strings(names)
	core.Step(log, "pull", target)
	for _, name := range names {
		if err := p.pullOne(name, noUpdate); err != nil {
			return err
		}
	}
	return nil
}

// pullOne clones, heals, or updates a single Source and records its resolved
// hash. It is idempotent when called twice in a row with noUpdate=true on a
// healthy tree, since a no-op Update is never invoked in that case and
// Checkout only runs when cloning or updating just happened.
func (p *Puller) pullOne(name string, noUpdate bool) error {
	src, ok := p.ctx.Registry.Source(name)
	if !ok {
		return core.Fatalf(core.UnknownSource, name)
	}
	backend, ok := Backends[src.VCS]
	if !ok {
		return core.Fatalf(core.VCSFailure, src.VCS)
	}

	dir := p.ctx.SourceDir(src.Name)
	cloning, err := p.prepareDir(dir, src, backend)
	if err != nil {
		return err
	}

	if cloning {
		core.Info(log, "[%s] cloning %s", src.Name, src.Location)
		if err := backend.Clone(dir, src.Location); err != nil {
			return core.Errorf(core.VCSFailure, src.Name, err)
		}
	} else if !noUpdate {
		core.Info(log, "[%s] updating %s", src.Name, src.Location)
		if err := backend.Update(dir); err != nil {
			return core.Errorf(core.VCSFailure, src.Name, err)
		}
	}

	if cloning || !noUpdate {
		core.Info(log, "[%s] checking out %s", src.Name, src.Revision)
		if err := backend.Checkout(dir, src.Revision); err != nil {
			return core.Errorf(core.VCSFailure, src.Name, err)
		}
	}

	hash, err := backend.Head(dir)
	if err != nil {
		return core.Errorf(core.VCSFailure, src.Name, err)
	}
	src.Hash = hash

	core.Info(log, "[%s] current revision %s", src.Name, src.Hash)
	return nil
}

// prepareDir decides whether dir needs a fresh clone: it doesn't exist yet,
// it isn't a valid checkout of the declared kind, or its remote doesn't
// match the declared location. In the latter two cases the stale directory
// is removed.
func (p *Puller) prepareDir(dir string, src *core.Source, backend Backend) (cloning bool, err error) {
	exists, err := dirExists(dir)
	if err != nil {
		return false, core.Errorf(core.FSError, dir, err)
	}
	if !exists {
		return true, nil
	}
	if backend.Valid(dir, src.Location) {
		return false, nil
	}
	log.Warningf("[%s] %s does not look like a valid checkout of %s, recreating", src.Name, dir, src.Location)
	if err := removeAll(dir); err != nil {
		return false, core.Errorf(core.FSError, dir, err)
	}
	return true, nil
}
