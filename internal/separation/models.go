package separation

import (
	"time"

	"github.com/google/uuid"

	id "custos/pkg/domain"
)

// IdentityRecord holds the identity-bearing side of a subject's data. It is
// the only place a name or email lives; everything derived from behavior
// goes to the pattern store under the opaque reference.
type IdentityRecord struct {
	ID          id.IdentityID `json:"id"`
	TenantID    id.TenantID   `json:"tenant_id"`
	DisplayName string        `json:"display_name"`
	Email       string        `json:"email"`
	// OpaqueRef is the only link to the pattern store. It is generated
	// randomly at registration and carries no information about the
	// identity it joins to.
	OpaqueRef string    `json:"opaque_ref"`
	CreatedAt time.Time `json:"created_at"`
}

// PatternRecord is one de-identified observation. It structurally has no
// field for an identity id: the opaque reference is the only join key.
type PatternRecord struct {
	ID         uuid.UUID         `json:"id"`
	OpaqueRef  string            `json:"opaque_ref"`
	Kind       string            `json:"kind"`
	Attributes map[string]string `json:"attributes,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// NewOpaqueReference mints a fresh join token. Random by construction:
// there is no way back from the reference to the identity, and no two
// registrations share one.
func NewOpaqueReference() string {
	return uuid.NewString()
}

// PurgeStep names one stage of a purge and whether it completed.
type PurgeStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	Error     string `json:"error,omitempty"`
}

// PurgeResult reports a purge per-step. Callers treat the purge as atomic:
// either every step completed, or the result names exactly where it stopped.
type PurgeResult struct {
	PatternsPurged  int         `json:"patterns_purged"`
	IdentityDeleted bool        `json:"identity_deleted"`
	Steps           []PurgeStep `json:"steps"`
}

// Complete reports whether every step finished.
func (r PurgeResult) Complete() bool {
	for _, step := range r.Steps {
		if !step.Completed {
			return false
		}
	}
	return len(r.Steps) > 0
}
