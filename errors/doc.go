// Package errors provides standardized error handling for nengo-viz.
//
// # Overview
//
// The package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable),
// and Fatal (unrecoverable, stop processing). Classification lets the
// server and session layers make handling decisions without string
// matching on error text.
//
// # Error Wrapping Pattern
//
// All wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Server", "Start", "listen")
//	errors.WrapInvalid(err, "Organizer", "Configure", "option validation")
//	errors.WrapFatal(err, "Session", "run", "simulator build")
//
// # Standard Error Variables
//
// Pre-defined variables cover the common conditions of this system:
// registry misses (ErrNotFound), session lifecycle (ErrAlreadyStarted,
// ErrNotStarted, ErrBuildFailed), and configuration (ErrInvalidConfig,
// ErrMissingConfig, ErrUnknownKind). Use these instead of ad-hoc
// errors.New calls so callers can branch with errors.Is.
//
// All classification and wrapping operations are thread-safe and
// integrate with the standard library's errors.Is/As/Unwrap.
package errors
