// Package errs defines the failure categories shared by the label parser,
// the augmentation pipeline, the grid encoder and the batch sequencer.
//
// Failures detected by this module wrap one of these sentinels, so callers
// can branch with errors.Is while still getting a message that names the
// offending file.
package errs

import "errors"

var (
	// ErrFormat reports a malformed label line or field.
	ErrFormat = errors.New("format error")

	// ErrNotFound reports a missing image or label file.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument reports bad configuration: unknown stage or mode,
	// non-positive sizes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvariant reports a broken internal invariant, e.g. a clipped box
	// that still maps outside the grid.
	ErrInvariant = errors.New("internal invariant violation")
)
