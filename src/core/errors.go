// Package core holds the data model shared by every phase of the build:
// Source and Target declarations, the Registry that owns them, and the
// typed errors every phase returns on failure.
package core

import (
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("core")

// Kind identifies one of the fatal or warning error categories from the
// orchestrator's error handling design. It never carries disposition itself;
// callers decide what to do with a Kind (the CLI treats every Kind other than
// the three Warning kinds as fatal).
type Kind string

// The error kinds the orchestrator can produce.
const (
	RuleEvaluation  Kind = "RuleEvaluation"
	UnknownSource   Kind = "UnknownSource"
	UnknownTarget   Kind = "UnknownTarget"
	SelfReference   Kind = "SelfReference"
	MissingPatch    Kind = "MissingPatch"
	Cycle           Kind = "Cycle"
	UnknownArch     Kind = "UnknownArch"
	VCSFailure      Kind = "VCSFailure"
	ConfigConflict  Kind = "ConfigConflict"
	ScriptFailure   Kind = "ScriptFailure"
	FSError         Kind = "FSError"
	SourceUnused    Kind = "SourceUnused"
	TargetOverride  Kind = "TargetOverride"
	ArchSkip        Kind = "ArchSkip"
)

// Warning reports whether a Kind is purely informational. Everything else is
// fatal: the first one returned aborts the run, per spec.md §7 — partial
// builds of a cross-compilation graph aren't meaningful.
func (k Kind) Warning() bool {
	return k == SourceUnused || k == TargetOverride || k == ArchSkip
}

// Error is the single error type every phase of the orchestrator returns.
// It always names the offending entity explicitly, addressing the Python
// original's bug of templating "{}" with nothing to fill it.
type Error struct {
	Kind    Kind
	Subject string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Subject, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Subject)
}

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *Error) Unwrap() error { return e.cause }

// Errorf builds a fatal or warning Error for the given kind and subject,
// optionally wrapping an underlying cause with github.com/pkg/errors so a
// stack trace survives to the top-level handler.
func Errorf(kind Kind, subject string, cause error) *Error {
	if cause != nil {
		cause = errors.WithMessage(cause, string(kind))
	}
	return &Error{Kind: kind, Subject: subject, cause: cause}
}

// Fatalf is a convenience for building a fatal Error without an underlying
// cause, e.g. core.Fatalf(core.UnknownTarget, target).
func Fatalf(kind Kind, subject string) *Error {
	return Errorf(kind, subject, nil)
}

// LogWarning emits a Kind known to be non-fatal via the shared logger. It
// panics if called with a fatal Kind, since that would silently swallow
// something the caller believed was recoverable.
func LogWarning(kind Kind, subject string) {
	if !kind.Warning() {
		panic("LogWarning called with fatal kind " + string(kind))
	}
	log.Warningf("%s: %s", kind, subject)
}
