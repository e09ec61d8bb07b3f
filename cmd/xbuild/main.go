// Command xbuild is the reproducible cross-compilation build orchestrator:
// it drives the pull, build, clean and deploy verbs over one or more rule
// groups (spec.md §6).
package main

import (
	"context"
	"os"
	"os/signal"

	"gopkg.in/op/go-logging.v1"

	"github.com/yosyshq/xbuild/src/cli"
)

func main() {
	logging.SetFormatter(logging.MustStringFormatter(`%{color}%{time:15:04:05} %{level:.4s}%{color:reset} %{message}`))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	verb, opts := cli.ParseArgs(os.Args)
	os.Exit(cli.Run(ctx, verb, opts))
}
