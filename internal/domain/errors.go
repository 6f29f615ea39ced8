package domain

import "errors"

var (
	// ErrContactNotFound signals an unknown contact id.
	ErrContactNotFound = errors.New("contact not found")
	// ErrListingNotFound signals an unknown listing id.
	ErrListingNotFound = errors.New("listing not found")
	// ErrInvalidQuery signals malformed recommendation query parameters.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUpstreamUnavailable signals that the candidate store could not be reached.
	ErrUpstreamUnavailable = errors.New("upstream data store unavailable")
)

// KeyPrefix namespaces all keys written to the shared store.
const KeyPrefix = "homematch:"
