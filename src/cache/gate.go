// Package cache implements the Cache Gate: per-target decision of whether a
// freshly computed fingerprint already matches the ".hash" sidecar left by a
// previous build, so unchanged targets are skipped (spec.md §4.H).
package cache

import (
	"os"
	"path/filepath"

	"github.com/djherbis/atime"
	"gopkg.in/op/go-logging.v1"

	"github.com/yosyshq/xbuild/src/core"
)

var log = logging.MustGetLogger("cache")

// sidecarName is the file written alongside a target's output directory to
// record the fingerprint it was last built with.
const sidecarName = ".hash"

// Decision is the outcome of consulting the gate for one target.
type Decision struct {
	// Skip is true when the existing output is already current and neither
	// force nor the cascade condition apply.
	Skip bool
	// Fingerprint is the hash that was compared against (and, if not
	// skipping, must be written back on success via Commit).
	Fingerprint string
}

// Check reads outputDir's sidecar and decides whether target needs to be
// rebuilt. cascade is true when any direct dependency was itself rebuilt in
// this pass, which forces a rebuild regardless of the sidecar's contents.
func Check(outputDir, fingerprint string, force, cascade bool) (Decision, error) {
	if force || cascade {
		return Decision{Skip: false, Fingerprint: fingerprint}, nil
	}

	existing, err := readSidecar(outputDir)
	if err != nil {
		return Decision{}, err
	}
	if existing != "" && existing == fingerprint {
		log.Debugf("%s unchanged, skipping (sidecar last touched %s)", outputDir, lastTouched(outputDir))
		return Decision{Skip: true, Fingerprint: fingerprint}, nil
	}
	return Decision{Skip: false, Fingerprint: fingerprint}, nil
}

// Commit records fingerprint as outputDir's current sidecar, called once a
// target has been rebuilt successfully.
func Commit(outputDir, fingerprint string) error {
	path := filepath.Join(outputDir, sidecarName)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return core.Errorf(core.FSError, outputDir, err)
	}
	if err := os.WriteFile(path, []byte(fingerprint), 0o644); err != nil {
		return core.Errorf(core.FSError, path, err)
	}
	return nil
}

// Cascades reports whether any of deps has its Built flag set, the signal
// that forces every downstream target to rebuild even if its own inputs look
// unchanged (spec.md §4.H).
func Cascades(reg *core.Registry, deps []string) bool {
	for _, name := range deps {
		if dep, ok := reg.Target(name); ok && dep.Built {
			return true
		}
	}
	return false
}

// lastTouched reports the sidecar's access time for the debug log above;
// access time (rather than mtime) shows whether a prior build pass actually
// consulted this cache entry, not merely whether it was last written.
func lastTouched(outputDir string) string {
	t, err := atime.Stat(filepath.Join(outputDir, sidecarName))
	if err != nil {
		return "unknown"
	}
	return t.Format("2006-01-02T15:04:05")
}

func readSidecar(outputDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, sidecarName))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", core.Errorf(core.FSError, outputDir, err)
	}
	return string(data), nil
}
