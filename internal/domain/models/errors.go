package models

import "errors"

var (
	// ErrNoSourceData means every upstream source was unavailable in one collection run.
	ErrNoSourceData = errors.New("no upstream source returned data")
	// ErrStoreUnavailable wraps persistence failures.
	ErrStoreUnavailable = errors.New("snapshot store unavailable")
	// ErrCredentialMissing marks a source disabled for lack of an optional API key.
	ErrCredentialMissing = errors.New("credential missing")
	// ErrNotFound is returned by reads on an empty store.
	ErrNotFound = errors.New("not found")
)
