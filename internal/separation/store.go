package separation

import (
	"context"

	id "custos/pkg/domain"
)

// IdentityStore persists identity-bearing records.
type IdentityStore interface {
	Save(ctx context.Context, record *IdentityRecord) error
	Get(ctx context.Context, identityID id.IdentityID) (*IdentityRecord, error)
	// FindByReference looks up the identity owning an opaque reference.
	// This direction exists for purges; the pattern store has no inverse.
	FindByReference(ctx context.Context, opaqueRef string) (*IdentityRecord, error)
	Delete(ctx context.Context, identityID id.IdentityID) error
}

// PatternStore persists de-identified records. Its whole API speaks opaque
// references; an identity id cannot be expressed here.
type PatternStore interface {
	Save(ctx context.Context, record *PatternRecord) error
	ListByReference(ctx context.Context, opaqueRef string) ([]*PatternRecord, error)
	// DeleteByReference removes every record under the reference and
	// returns how many were deleted.
	DeleteByReference(ctx context.Context, opaqueRef string) (int, error)
}
