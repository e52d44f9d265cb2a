package errors

import "errors"

var (
	// Common errors.
	ErrInternal = errors.New("internal server error")
	ErrNotFound = errors.New("resource not found")
	ErrStorage  = errors.New("storage unavailable")

	// Authentication errors. Signature mismatch and malformed payloads
	// collapse into ErrInvalidHash so the response never discloses which
	// check failed.
	ErrInvalidHash  = errors.New("invalid hash")
	ErrInvalidToken = errors.New("invalid token")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Login code errors. Expired and unknown codes are indistinguishable
	// to callers.
	ErrCodeNotFound = errors.New("login code not found or expired")
)

// IsUnauthorized reports whether err maps to a 401 response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrInvalidHash)
}

// IsStorage reports whether err indicates an unreachable persistence layer.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}
