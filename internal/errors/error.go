package errors

import "github.com/pkg/errors"

var (
	// transport errors
	ErrMissingQueryParams = errors.New("missing required query parameters")
	ErrBadCredentials     = errors.New("invalid credentials")
	ErrNotProvisioned     = errors.New("device is not provisioned")

	// protocol errors
	ErrInvalidSyncKey     = errors.New("sync key does not match device state")
	ErrUnknownCollection  = errors.New("collection not found")
	ErrUnknownCommand     = errors.New("unsupported activesync command")
	ErrMalformedRequest   = errors.New("malformed activesync request body")
	ErrInvalidPolicyKey   = errors.New("policy key does not match issued key")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")

	// store errors
	ErrItemNotFound     = errors.New("item not found")
	ErrStoreUnavailable = errors.New("mail store unavailable")
)
