// Package fingerprint computes the SHA-256 fingerprint that the Cache Gate
// compares against a target's ".hash" sidecar (spec.md §4.F).
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sort"
	"strings"

	"github.com/yosyshq/xbuild/src/core"
)

// Compute returns the hex-encoded SHA-256 fingerprint of target within ctx,
// combining (in this fixed, explicitly-sorted order):
//
//  1. the resolved Source.Hash of each entry in target.Sources, sorted by name;
//  2. the current Target.Hash of each entry in target.Dependencies, sorted by
//     name, omitted entirely when empty (a dependency skipped by arch never
//     contributes an empty-string placeholder);
//  3. the SHA-256 of each patch file's bytes, sorted by filename;
//  4. the SHA-256 of the build script's bytes;
//  5. the install prefix.
//
// Lines are joined with "\n" so the result is deterministic regardless of
// the declaration order of Sources, Dependencies or Patches.
func Compute(ctx *core.BuildContext, target *core.Target, prefix string) (string, error) {
	var lines []string

	sources := append([]string{}, target.Sources...)
	sort.Strings(sources)
	for _, name := range sources {
		src, ok := ctx.Registry.Source(name)
		if !ok {
			return "", core.Fatalf(core.UnknownSource, name)
		}
		lines = append(lines, src.Hash)
	}

	deps := append([]string{}, target.Dependencies...)
	sort.Strings(deps)
	for _, name := range deps {
		dep, ok := ctx.Registry.Target(name)
		if !ok {
			return "", core.Fatalf(core.UnknownTarget, name)
		}
		if dep.Hash != "" {
			lines = append(lines, dep.Hash)
		}
	}

	patches := append([]string{}, target.Patches...)
	sort.Strings(patches)
	for _, patch := range patches {
		path := ctx.GroupPatch(target.Group, patch)
		data, err := os.ReadFile(path)
		if err != nil {
			return "", core.Errorf(core.FSError, path, err)
		}
		lines = append(lines, sha256Hex(data))
	}

	scriptPath := ctx.GroupScript(target.Group, target.Name)
	script, err := os.ReadFile(scriptPath)
	if err != nil {
		return "", core.Errorf(core.FSError, scriptPath, err)
	}
	lines = append(lines, sha256Hex(script))

	lines = append(lines, prefix)

	return sha256Hex([]byte(strings.Join(lines, "\n"))), nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
