// Package exec is the Build Executor: it stages a target's working tree,
// composes its environment contract, and runs its build script natively or
// inside a cross-compilation container, live-streaming output (spec.md
// §4.G).
package exec

import (
	"os"
	osExec "os/exec"
	"strconv"
	"strings"

	"github.com/yosyshq/xbuild/src/core"
)

// darwinToolPrefixes are prepended to PATH for native Darwin builds, mirroring
// the fixed Homebrew prefixes the original hard-codes for LLVM/binutils found
// outside the default PATH on a stock macOS host.
var darwinToolPrefixes = []string{
	"/usr/local/opt/llvm/bin",
	"/opt/homebrew/opt/llvm/bin",
	"/usr/local/opt/binutils/bin",
	"/opt/homebrew/opt/binutils/bin",
}

// Plan is the resolved set of decisions the staging and script-invocation
// stages need: whether this run is native or containerised, and the paths
// and arch label it implies.
type Plan struct {
	Arch   core.Arch
	Local  bool
	Native bool
	Label  string // directory segment used under _builds/_outputs
}

// ResolvePlan applies the native-vs-container selection rules of spec.md
// §4.G: native-only architectures must run natively (and only on a matching
// host); local=true is only legal on the host's own architecture; everything
// else crosses into a container.
func ResolvePlan(arch core.Arch, local bool) (*Plan, error) {
	host := core.HostArch()

	if core.NativeOnlyArchitectures[arch] && arch != host {
		return nil, core.Fatalf(core.ConfigConflict, string(arch)+": native-only architecture cannot be cross-built")
	}
	if local && arch != host {
		return nil, core.Fatalf(core.ConfigConflict, string(arch)+": local=true requires arch to equal the host architecture "+string(host))
	}

	native := local || (arch == host && core.NativeOnlyArchitectures[arch])

	return &Plan{
		Arch:   arch,
		Local:  local,
		Native: native,
		Label:  core.ArchLabel(arch, local),
	}, nil
}

// Environment composes the process-wide environment contract for a target's
// build script (spec.md §4.G). buildDir and outputDir are the already-staged,
// absolute paths; patchesDir is the target's group's patches directory.
func Environment(ctx *core.BuildContext, plan *Plan, buildDir, outputDir, patchesDir, prefix string, nproc int) map[string]string {
	env := map[string]string{
		"BUILD_OS":       core.HostOS(),
		"WORK_DIR":       ctx.WorkDir,
		"BUILD_DIR":      buildDir,
		"OUTPUT_DIR":     outputDir,
		"SRC_DIR":        ctx.SourcesDir(),
		"PATCHES_DIR":    patchesDir,
		"ARCH":           string(plan.Arch),
		"ARCH_BASE":      plan.Arch.Base(),
		"NPROC":          strconv.Itoa(nproc),
		"LC_ALL":         "C",
		"INSTALL_PREFIX": prefix,
	}

	switch plan.Arch.Base() {
	case "darwin":
		env["SHARED_EXT"] = ".dylib"
	case "windows":
		env["SHARED_EXT"] = ".dll"
	default:
		env["SHARED_EXT"] = ".so"
	}

	if plan.Native {
		if plan.Arch.Base() == "windows" {
			env["EXE"] = ".exe"
			env["CMAKE_GENERATOR"] = "MSYS Makefiles"
		}
		env["STRIP"] = "strip"
		env["PATH"] = nativePath(plan.Arch)
	}

	if plan.Local {
		env["IS_LOCAL"] = "True"
		env["CROSS_NAME"] = hostTriplet()
	}

	return env
}

// nativePath returns the PATH to use for a native build: on Darwin the fixed
// Homebrew tool prefixes are prepended ahead of the parent's PATH, everywhere
// else the parent PATH is inherited unchanged.
func nativePath(arch core.Arch) string {
	parent := osEnvPath()
	if arch.Base() != "darwin" {
		return parent
	}
	return strings.Join(darwinToolPrefixes, ":") + ":" + parent
}

func osEnvPath() string {
	return os.Getenv("PATH")
}

func hostTriplet() string {
	out, err := osExec.Command("gcc", "-dumpmachine").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
