package meet

import "errors"

var (
	// ErrDisplayNameRequired is returned by Submit when the display name is
	// empty. No state transition occurs.
	ErrDisplayNameRequired = errors.New("display name is required")

	// ErrLoadFailure means the bootstrap script failed to load. Readiness
	// stays failed for the rest of the process lifetime.
	ErrLoadFailure = errors.New("bootstrap script failed to load")

	// ErrConstructorTimeout means the library loaded but its constructor
	// never became callable within the bounded poll window.
	ErrConstructorTimeout = errors.New("widget constructor never became callable")

	// ErrConstructionFailure means the widget constructor or callback
	// registration failed.
	ErrConstructionFailure = errors.New("widget construction failed")

	// ErrCommandFailure means a forwarded command failed.
	ErrCommandFailure = errors.New("widget command failed")
)
