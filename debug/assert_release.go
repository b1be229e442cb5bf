//go:build !debug

// Package debug holds invariant checks of the bus loop and its collaborators.
// They are compiled in with the debug build tag only, so release builds keep
// the per-halfword path free of them.
package debug

// Enabled guards checks which are too expensive to evaluate in release
// builds, e.g. loops over tables.
const Enabled = false

// Assert panics with message if b is false.
func Assert(b bool, message string) {}

// Assertf panics with a formatted message if b is false.
func Assertf(b bool, format string, args ...any) {}
