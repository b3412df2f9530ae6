package engine

import "errors"

// Sentinel errors for the taxonomy spec.md §7 describes. Callers inspect
// them with errors.Is/errors.As; wrapped occurrences carry call-site
// context via fmt.Errorf("%w: ...").
var (
	// ErrCorruptSegment names a segment that fails footer verification.
	// No engine operation returns it: Open logs and skips such a file.
	ErrCorruptSegment = errors.New("engine: corrupt segment")

	// ErrUnsupportedVersion names a segment whose footer version does not
	// match the one this engine writes. No engine operation returns it:
	// sstable.Open reports the mismatch with its own sentinel, and Open
	// logs and skips the file.
	ErrUnsupportedVersion = errors.New("engine: unsupported segment version")

	// ErrInvalidState is returned for programmer errors: a transaction
	// reused after commit/rollback, or a write attempted on a closed or
	// wedged engine.
	ErrInvalidState = errors.New("engine: invalid state")

	// ErrVectorDimensionMismatch is returned when a query vector's
	// dimension does not match a collection's indexed dimension.
	ErrVectorDimensionMismatch = errors.New("engine: vector dimension mismatch")

	// ErrClosed is returned, together with ErrInvalidState, by WriteBatch
	// (and so by Put and Delete) after Close. Reads do not check for it.
	ErrClosed = errors.New("engine: closed")

	// ErrEmptyKey rejects the one key shape spec.md §3 disallows outright.
	ErrEmptyKey = errors.New("engine: empty key")
)
