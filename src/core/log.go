package core

import "gopkg.in/op/go-logging.v1"

// Step logs a top-level phase transition with the original's "==>" marker,
// e.g. core.Step(log, "building", target). The phases that print a headline
// (clean, deploy, orchestrate, vcs) use this rather than a flat Notice call.
func Step(logger *logging.Logger, verb, subject string) {
	logger.Noticef("==> %s %s", verb, subject)
}

// Info logs a sub-step under the most recent Step with the original's "->"
// marker, e.g. individual clone/update/checkout lines under a pull Step.
func Info(logger *logging.Logger, format string, args ...interface{}) {
	logger.Infof("-> "+format, args...)
}
