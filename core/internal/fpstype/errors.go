package fpstype

import "errors"

// Sentinel errors for archive operations.
var (
	// ErrFormat is returned when the header magic is not "FPS4".
	ErrFormat = errors.New("fps4: invalid archive format")

	// ErrUnknownSchemaBits reports content bitmask bits this package does not
	// understand. It is a warning; parsing continues.
	ErrUnknownSchemaBits = errors.New("fps4: unknown content bitmask bits")

	// ErrMultiplierGuess reports an inferred location multiplier other than 1.
	// It is a warning since the multiplier is not stored in the archive.
	ErrMultiplierGuess = errors.New("fps4: inferred location multiplier")

	// ErrUnresolvedField is returned when an entry's location or size cannot
	// be determined for an operation that needs it.
	ErrUnresolvedField = errors.New("fps4: unresolved entry field")

	// ErrConfiguration is returned when pack options cannot produce an
	// archive that reads back correctly. It is raised before any output.
	ErrConfiguration = errors.New("fps4: invalid configuration")

	// ErrSizeMismatch is returned when a pack source yields a different number
	// of bytes than its declared length.
	ErrSizeMismatch = errors.New("fps4: source size mismatch")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("fps4: size overflow")
)
