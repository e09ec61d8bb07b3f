// Package cli parses the pull/build/clean/deploy verbs and their flags, and
// translates a fatal *core.Error into the single red ERROR line the operator
// sees (spec.md §6, §7), using the same go-flags/fatih-color idiom the
// teacher's own src/cli package uses for its parser and output helpers.
package cli

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/fatih/color"
	flags "github.com/thought-machine/go-flags"
	"gopkg.in/op/go-logging.v1"

	"github.com/yosyshq/xbuild/src/clean"
	"github.com/yosyshq/xbuild/src/core"
	"github.com/yosyshq/xbuild/src/orchestrate"
)

var log = logging.MustGetLogger("cli")

// Opts is the full flag surface across every verb. The verb is a positional
// argument, not a go-flags command, so every flag is accepted with every
// verb; a verb reads only the flags it uses.
type Opts struct {
	Groups   []string `long:"group" description:"rule group directory to load (repeatable)" required:"true"`
	Arch     string   `long:"arch" description:"target architecture" default:"linux-x64"`
	Target   string   `long:"target" description:"target name"`
	NoUpdate bool     `long:"no_update" description:"skip updating already-checked-out sources"`
	NoClean  bool     `long:"no_clean" description:"reuse an existing build directory instead of wiping it"`
	Force    bool     `long:"force" description:"rebuild even if the cache fingerprint matches"`
	Prefix   string   `long:"prefix" description:"install prefix" default:"/usr/local"`
	Local    bool     `long:"local" description:"build for the host architecture without a container"`
	Deploy   bool     `long:"deploy" description:"mirror the staged install prefix onto the host after a local build"`
	Sudo     bool     `long:"sudo" description:"elevate the deploy copy through sudo"`
	Nproc    int      `long:"nproc" description:"build parallelism hint" default:"1"`
	Full     bool     `long:"full" description:"(clean) also remove every checked-out source tree"`

	WorkDir string `long:"work_dir" description:"orchestrator working directory" default:"."`
}

// Verb is one of "pull", "build", "clean", "deploy".
type Verb string

// The verbs the CLI surface exposes (spec.md §6).
const (
	Pull   Verb = "pull"
	Build  Verb = "build"
	Clean  Verb = "clean"
	Deploy Verb = "deploy"
)

// ParseArgs parses argv (typically os.Args) into a verb and its Opts,
// following the teacher's ParseFlagsOrDie convention of printing usage and
// exiting on a parse error rather than returning one.
func ParseArgs(argv []string) (Verb, *Opts) {
	opts := &Opts{}
	parser := flags.NewNamedParser(path.Base(argv[0]), flags.HelpFlag|flags.PassDoubleDash)
	parser.AddGroup("xbuild options", "", opts)

	extra, err := parser.ParseArgs(argv[1:])
	if err != nil {
		if ferr, ok := err.(*flags.Error); ok && ferr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}
	if len(extra) != 1 {
		fmt.Fprintln(os.Stderr, "expected exactly one verb: pull, build, clean or deploy")
		os.Exit(1)
	}
	return Verb(extra[0]), opts
}

// Run dispatches verb against opts and returns the process exit code,
// printing the single red ERROR line spec.md §7 requires on any fatal error.
func Run(ctx context.Context, verb Verb, opts *Opts) int {
	if err := dispatch(ctx, verb, opts); err != nil {
		printError(err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, verb Verb, opts *Opts) error {
	bctx := core.NewBuildContext(opts.WorkDir)
	runOpts := orchestrate.Options{
		Target:   opts.Target,
		Arch:     core.Arch(opts.Arch),
		NoUpdate: opts.NoUpdate,
		NoClean:  opts.NoClean,
		Force:    opts.Force,
		Prefix:   opts.Prefix,
		Local:    opts.Local,
		Deploy:   opts.Deploy,
		Sudo:     opts.Sudo,
		Nproc:    opts.Nproc,
	}

	switch verb {
	case Pull:
		return orchestrate.Pull(bctx, opts.Groups, runOpts)
	case Build:
		return orchestrate.Build(ctx, bctx, opts.Groups, runOpts)
	case Clean:
		label := core.ArchLabel(core.Arch(opts.Arch), opts.Local)
		return clean.Clean(bctx, label, opts.Full)
	case Deploy:
		runOpts.Deploy = true
		runOpts.Local = true
		return orchestrate.Build(ctx, bctx, opts.Groups, runOpts)
	default:
		return core.Fatalf(core.ConfigConflict, string(verb)+": unknown verb")
	}
}

// printError renders a fatal error as a single red "ERROR: ..." line, the
// only line the operator sees on failure (spec.md §7).
func printError(err error) {
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "ERROR: %s\n", err)
}
