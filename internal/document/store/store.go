// Package store persists issued document records keyed by reference number.
//
// Semantics are append-only: records are created once, may transition
// active→revoked exactly once, and are never deleted. Both implementations
// enforce reference uniqueness and serialize writes per reference.
package store

import (
	"context"

	"veridoc/internal/document/models"
)

// Store is the issuance store contract.
//
// Errors are sentinel-based:
//   - Save: sentinel.ErrDuplicateReference when the reference exists.
//   - GetByReference: sentinel.ErrNotFound when absent.
//   - Revoke: sentinel.ErrNotFound when absent,
//     sentinel.ErrAlreadyRevoked when status is already revoked.
type Store interface {
	Save(ctx context.Context, md models.DocumentMetadata) error
	GetByReference(ctx context.Context, reference string) (models.DocumentMetadata, error)
	Revoke(ctx context.Context, reference, reason string) error
	Health(ctx context.Context) error
}
