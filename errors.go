package fps4

import (
	"errors"

	fpscore "github.com/meigma/fps4/core"
	"github.com/meigma/fps4/internal/platform"
)

// Errors re-exported from core.
var (
	// ErrFormat is returned when the archive magic is not "FPS4".
	ErrFormat = fpscore.ErrFormat

	// ErrUnknownSchemaBits is reported as a warning for unrecognized bitmask bits.
	ErrUnknownSchemaBits = fpscore.ErrUnknownSchemaBits

	// ErrMultiplierGuess is reported as a warning for an inferred multiplier.
	ErrMultiplierGuess = fpscore.ErrMultiplierGuess

	// ErrUnresolvedField is returned when an entry's location or size is unknown.
	ErrUnresolvedField = fpscore.ErrUnresolvedField

	// ErrConfiguration is returned for pack options that cannot round-trip.
	ErrConfiguration = fpscore.ErrConfiguration

	// ErrSizeMismatch is returned when a pack source yields the wrong byte count.
	ErrSizeMismatch = fpscore.ErrSizeMismatch

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = fpscore.ErrSizeOverflow
)

// Errors specific to file handling.
var (
	// ErrSymlink is returned when a collected pack input is replaced by a
	// symbolic link before it is read.
	ErrSymlink = platform.ErrSymlink

	// ErrLocked is returned when another process holds the output lock.
	ErrLocked = errors.New("fps4: archive is locked by another writer")
)
