package counsel

import "errors"

// Error kinds surfaced by the counsel service. HTTP handlers map these onto
// status classes: not found, service unavailable, bad gateway.
var (
	// ErrSessionNotFound marks a caller error: the session id is unknown.
	ErrSessionNotFound = errors.New("counsel session not found")

	// ErrConfiguration marks a setup problem (missing API key). Fix the
	// deployment; retrying the request will not help.
	ErrConfiguration = errors.New("counsel service not configured")

	// ErrService marks an upstream failure: provider call failed, timed out,
	// or returned nothing usable.
	ErrService = errors.New("counsel service error")
)
