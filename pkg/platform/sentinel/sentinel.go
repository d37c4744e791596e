package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Repositories and upstream clients
// return these (optionally wrapped) so services can translate them into domain
// errors without inspecting transport details.
//
//   - ErrNotFound: record or upstream resource does not exist
//   - ErrExpired: pending flow or verification passed its expiry
//   - ErrAlreadyUsed: a single-use record was consumed by another request
//   - ErrUnauthorized: upstream rejected our credentials
//   - ErrUnavailable: upstream timed out, refused, or answered 5xx
//   - ErrBadData: upstream answered with a body we could not decode
var (
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
	ErrBadData      = errors.New("bad data")
)
