// Package deploy mirror-copies a local build's staged install prefix onto
// the host filesystem, the final stage the CLI's "deploy" verb drives
// (spec.md §4.I).
package deploy

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/op/go-logging.v1"

	"github.com/yosyshq/xbuild/src/core"
	"github.com/yosyshq/xbuild/src/stage"
)

var log = logging.MustGetLogger("deploy")

// Deploy mirror-copies <outputsRoot>/local/<rootTarget>/<prefix>/ onto
// <prefix>/ on the host, optionally through sudo. prefix must be an absolute
// path; it is used both to locate the staged tree and as the destination.
func Deploy(ctx *core.BuildContext, rootTarget, prefix string, elevate bool) error {
	staged := filepath.Join(ctx.OutputDir("local", rootTarget), strings.TrimPrefix(prefix, string(filepath.Separator)))

	if _, err := os.Stat(staged); err != nil {
		return core.Errorf(core.FSError, staged, err)
	}

	if !elevate {
		core.Step(log, "deploy", staged+" -> "+prefix)
		return stage.MirrorContentsInto(staged, prefix)
	}
	return deployElevated(staged, prefix)
}

// deployElevated shells out to "sudo cp -a" rather than trying to mirror
// through a Go process running as another user, since the elevation prompt
// itself must come from a real TTY-attached sudo invocation.
func deployElevated(staged, prefix string) error {
	if err := os.MkdirAll(prefix, 0o755); err != nil {
		return core.Errorf(core.FSError, prefix, err)
	}
	core.Step(log, "deploy (elevated)", staged+" -> "+prefix)
	cmd := exec.Command("sudo", "cp", "-a", staged+"/.", prefix+"/")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		return core.Errorf(core.FSError, prefix, err)
	}
	return nil
}
