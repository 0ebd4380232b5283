package domain

import "errors"

var (
	// ErrPlacesUnavailable means every lookup-service generation failed
	// for a call. Recoverable: the caller re-invokes discovery
	// explicitly; nothing is cached or persisted for the failed call.
	ErrPlacesUnavailable = errors.New("places service unavailable")

	// ErrDegradedPersistence means the remote store was unreachable and
	// the operation was served from (or queued in) the local cache.
	// It is a warning carried alongside a usable result, not a failure.
	ErrDegradedPersistence = errors.New("persistence degraded: serving from local cache")

	// ErrInvalidPlaceLocation means a place lacked numeric coordinates.
	// The record is rejected before persistence, never stored with a
	// null location.
	ErrInvalidPlaceLocation = errors.New("place has no valid coordinates")

	// ErrDismissChoiceRequired means a dismiss call gave no duration and
	// the user's dismissal policy is "ask": the caller must prompt and
	// retry with an explicit choice.
	ErrDismissChoiceRequired = errors.New("dismissal duration choice required")

	// ErrDiscoveryNotFound means no discovery record matches the given key.
	ErrDiscoveryNotFound = errors.New("discovery not found")

	// ErrInvalidTransition means a review action is not legal from the
	// discovery's current status, e.g. saving a place dismissed forever.
	ErrInvalidTransition = errors.New("invalid review transition")
)
