package exec

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	osExec "os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yosyshq/xbuild/src/core"
)

// containerImageFmt is the image naming convention cross-build containers
// must follow (spec.md §4.G container image contract).
const containerImageFmt = "yosyshq/cross-%s:1.0"

// scriptPreamble is prepended to every build script so a failing command
// aborts the build immediately and the operator sees exactly what ran.
const scriptPreamble = "set -e -x\n"

// Run writes the target's build script to a temporary file and executes it
// either on the host shell or inside a cross-compilation container,
// depending on plan.Native, streaming stdout and stderr line-by-line with
// stderr highlighted (spec.md §4.G, §5).
func Run(ctx context.Context, plan *Plan, scriptPath, cwd string, env map[string]string) error {
	script, err := os.ReadFile(scriptPath)
	if err != nil {
		return core.Errorf(core.FSError, scriptPath, err)
	}

	tmp, err := os.CreateTemp("", "xbuild-script-*.sh")
	if err != nil {
		return core.Errorf(core.FSError, scriptPath, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(scriptPreamble + string(script)); err != nil {
		tmp.Close()
		return core.Errorf(core.FSError, tmp.Name(), err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return core.Errorf(core.FSError, tmp.Name(), err)
	}
	tmp.Close()

	if plan.Native {
		return runNative(ctx, tmp.Name(), cwd, env, os.Stdout)
	}
	return runContainer(ctx, plan, tmp.Name(), cwd, env)
}

func runNative(ctx context.Context, scriptPath, cwd string, env map[string]string, out io.Writer) error {
	cmd := osExec.CommandContext(ctx, "/bin/bash", scriptPath)
	cmd.Dir = cwd
	cmd.Env = mergeEnv(env)
	return stream(cmd, out)
}

// runContainer invokes the container runtime against the architecture's
// cross-compiler image, rewriting every "*_DIR" variable to its bind-mounted
// "/work/..." form and leaving everything else unchanged (spec.md §4.G).
func runContainer(ctx context.Context, plan *Plan, scriptPath, cwd string, env map[string]string) error {
	runtimeBin, err := containerRuntime()
	if err != nil {
		return err
	}

	uid, gid := currentIDs()
	image := fmt.Sprintf(containerImageFmt, plan.Arch)
	rel, err := filepath.Rel(workingDirectory(), cwd)
	if err != nil {
		return core.Errorf(core.FSError, cwd, err)
	}
	containerWorkdir := filepath.Join("/work", rel)

	args := []string{
		"run", "--rm",
		"--name", "xbuild-" + uuid.NewString(),
		"--user", fmt.Sprintf("%d:%d", uid, gid),
		"-v", "/tmp:/tmp",
		"-v", workingDirectory() + ":/work",
		"-w", containerWorkdir,
	}
	for _, k := range sortedKeys(env) {
		args = append(args, "-e", k+"="+rewriteForContainer(k, env[k], workingDirectory()))
	}
	args = append(args, image, "/bin/bash", scriptPath)

	cmd := osExec.CommandContext(ctx, runtimeBin, args...)
	return stream(cmd, os.Stdout)
}

// rewriteForContainer rewrites a "*_DIR"-suffixed, host-absolute path into
// its "/work/<relative>" form. Everything else passes through unchanged.
func rewriteForContainer(key, value, hostRoot string) string {
	if !strings.HasSuffix(key, "_DIR") {
		return value
	}
	rel, err := filepath.Rel(hostRoot, value)
	if err != nil || strings.HasPrefix(rel, "..") {
		return value
	}
	return filepath.Join("/work", rel)
}

func containerRuntime() (string, error) {
	for _, candidate := range []string{"docker", "podman"} {
		if _, err := osExec.LookPath(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", core.Fatalf(core.FSError, "no container runtime (docker or podman) found on PATH")
}

func currentIDs() (int, int) {
	return os.Getuid(), os.Getgid()
}

func workingDirectory() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func mergeEnv(env map[string]string) []string {
	out := os.Environ()
	for _, k := range sortedKeys(env) {
		out = append(out, k+"="+env[k])
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stream runs cmd, copying its stdout and stderr to out line by line,
// stderr highlighted in red, preserving the interleaving order that a single
// errgroup of two concurrent readers gives us for free (spec.md §5).
func stream(cmd *osExec.Cmd, out io.Writer) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return core.Errorf(core.ScriptFailure, cmd.Path, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return core.Errorf(core.ScriptFailure, cmd.Path, err)
	}

	if err := cmd.Start(); err != nil {
		return core.Errorf(core.ScriptFailure, cmd.Path, err)
	}

	var g errgroup.Group
	g.Go(func() error { return copyLines(out, stdout, nil) })
	g.Go(func() error { return copyLines(out, stderr, color.New(color.FgRed)) })
	_ = g.Wait()

	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*osExec.ExitError); ok {
			return core.Errorf(core.ScriptFailure, cmd.Path, fmt.Errorf("exit status %d", exitErr.ExitCode()))
		}
		return core.Errorf(core.ScriptFailure, cmd.Path, err)
	}
	return nil
}

func copyLines(w io.Writer, r io.Reader, c *color.Color) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if c != nil {
			c.Fprintln(w, line)
		} else {
			fmt.Fprintln(w, line)
		}
	}
	return scanner.Err()
}
