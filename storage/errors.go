package storage

import "errors"

var (
	// ErrSourceUnavailable is returned when a backend fails to answer.
	ErrSourceUnavailable = errors.New("storage: entity tag source unavailable")

	// ErrInvalidConfig is returned by constructors given unusable settings.
	ErrInvalidConfig = errors.New("storage: invalid configuration")
)
