// Package clean implements the "clean" verb: wiping build and output state
// either for a single architecture or, with full=true, every cached source
// checkout as well (SPEC_FULL.md §13.3).
package clean

import (
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"gopkg.in/op/go-logging.v1"

	"github.com/yosyshq/xbuild/src/core"
	"github.com/yosyshq/xbuild/src/stage"
)

var log = logging.MustGetLogger("clean")

// Clean removes build/output state rooted at ctx.WorkDir. Without full, only
// the named arch's (or "local"'s) slice of _builds/_outputs is removed,
// leaving other architectures and every checked-out source tree untouched.
// With full, _builds, _outputs and _sources are removed in their entirety.
func Clean(ctx *core.BuildContext, archLabel string, full bool) error {
	if full {
		core.Step(log, "clean", "all build, output and source state")
		for _, root := range []string{core.BuildsRoot, core.OutputsRoot, core.SourcesRoot} {
			if err := removeReporting(ctx.WorkDir, root); err != nil {
				return err
			}
		}
		return nil
	}

	if archLabel != "local" && !core.Valid(core.Arch(archLabel)) {
		return core.Fatalf(core.UnknownArch, archLabel)
	}

	core.Step(log, "clean", "build and output state for "+archLabel)
	if err := removeReporting(ctx.WorkDir, filepath.Join(core.BuildsRoot, archLabel)); err != nil {
		return err
	}
	return removeReporting(ctx.WorkDir, filepath.Join(core.OutputsRoot, archLabel))
}

// removeReporting deletes workDir/rel and, if anything was actually there,
// logs how much space it reclaimed in human-readable form.
func removeReporting(workDir, rel string) error {
	path := filepath.Join(workDir, rel)
	if size, err := dirSize(path); err == nil && size > 0 {
		core.Info(log, "reclaiming %s from %s", humanize.Bytes(uint64(size)), rel)
	}
	return stage.RemoveAll(path)
}

func dirSize(path string) (int64, error) {
	var total int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total, err
}
