package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, registry clients, and the
// failover layer return these (optionally wrapped) so services can translate
// them into domain errors or verdicts.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the issuance store
// - ErrDuplicateReference: reference number already persisted
// - ErrAlreadyRevoked: record is already in the revoked state
// - ErrMalformedPayload: verification payload cannot be decoded
// - ErrCircuitOpen: the breaker for a registry is rejecting calls
// - ErrRegistryExhausted: every failover attempt against a registry failed
// - ErrUnavailable: resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateReference = errors.New("duplicate reference number")
	ErrAlreadyRevoked     = errors.New("already revoked")
	ErrMalformedPayload   = errors.New("malformed verification payload")
	ErrCircuitOpen        = errors.New("circuit open")
	ErrRegistryExhausted  = errors.New("registry attempts exhausted")
	ErrUnavailable        = errors.New("unavailable")
)
