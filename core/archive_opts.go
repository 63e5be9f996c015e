package fps4

import "log/slog"

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger for archive operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithTextEncoding sets the encoding of names, file types and metadata
// strings (default: Shift-JIS).
func WithTextEncoding(enc TextEncoding) Option {
	return func(a *Archive) {
		a.text = enc
	}
}

// WithLocationMultiplier forces the location multiplier instead of
// inferring it. Zero restores inference.
func WithLocationMultiplier(m uint32) Option {
	return func(a *Archive) {
		a.forcedMultiplier = m
	}
}
