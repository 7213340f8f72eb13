package domain

import "errors"

var (
	// ErrUnsupportedTarget is returned when the platform cannot resolve a
	// settings screen. The dispatcher recovers via the fallback target.
	ErrUnsupportedTarget = errors.New("settings target not supported")

	// ErrUnknownPermission is returned for identifiers outside the catalog.
	ErrUnknownPermission = errors.New("unknown permission")

	// ErrNotApplicable is returned for catalog identifiers that do not apply
	// at the device's capability level.
	ErrNotApplicable = errors.New("permission not applicable at this level")

	// ErrStoreClosed is returned by a grant store after Close.
	ErrStoreClosed = errors.New("grant store closed")

	// ErrNotRegistered is returned when no shell session has been recorded.
	ErrNotRegistered = errors.New("no session registered")

	// ErrGrantKeyMissing is returned when an encrypted grant database exists
	// without the key that opens it.
	ErrGrantKeyMissing = errors.New("grant database key missing")
)
