package ledger

import "time"

// EntryKind classifies ledger entries. Every governance-relevant state
// change in the core maps to exactly one kind; readers filter on it.
type EntryKind string

const (
	// Consent lifecycle
	KindConsentGranted  EntryKind = "consent_granted"
	KindConsentModified EntryKind = "consent_modified"
	KindConsentRevoked  EntryKind = "consent_revoked"
	KindConsentExpired  EntryKind = "consent_expired"

	// Retention lifecycle
	KindPolicyCreated      EntryKind = "retention_policy_created"
	KindPolicyRetired      EntryKind = "retention_policy_retired"
	KindScheduleCreated    EntryKind = "retention_schedule_created"
	KindLegalHoldApplied   EntryKind = "legal_hold_applied"
	KindLegalHoldReleased  EntryKind = "legal_hold_released"
	KindDeletionPending    EntryKind = "deletion_pending"
	KindSweepCompleted     EntryKind = "retention_sweep_completed"
	KindConsentSweepDone   EntryKind = "consent_expiry_sweep_completed"

	// Tenant gate
	KindAccountProvisioned EntryKind = "account_provisioned"
	KindProvisionDenied    EntryKind = "provision_denied"

	// Aggregation surfaces
	KindExportDenied EntryKind = "export_denied"

	// Data separation
	KindIdentityPurged EntryKind = "identity_purged"
)

// ActorType distinguishes who caused an entry.
type ActorType string

const (
	ActorSubject  ActorType = "subject"
	ActorOperator ActorType = "operator"
	ActorSystem   ActorType = "system"
)

// Actor is the principal behind an entry. Ref is an opaque reference, never
// a raw identity attribute.
type Actor struct {
	Type ActorType `json:"type"`
	Ref  string    `json:"ref"`
}

// AuditEntry is one immutable record in the hash chain.
//
// Invariants:
//   - Sequence is monotonic and gapless across the whole ledger
//   - EntryHash = sha256(canonical fields || PreviousHash)
//   - the first entry's PreviousHash is the genesis sentinel
//   - entries are appended, never updated or deleted
//
// Metadata values are kept as strings so canonical serialization (and
// therefore the hash) is deterministic; callers format numbers themselves.
type AuditEntry struct {
	Sequence     uint64            `json:"sequence"`
	Timestamp    time.Time         `json:"timestamp"`
	Kind         EntryKind         `json:"kind"`
	Actor        Actor             `json:"actor"`
	Target       string            `json:"target,omitempty"`
	Action       string            `json:"action"`
	Scope        string            `json:"scope,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	PreviousHash string            `json:"previous_hash"`
	EntryHash    string            `json:"entry_hash"`
}

// IntegrityReport is the outcome of a full chain verification. When Valid is
// false, BrokenAtSequence points at the first entry whose link or recomputed
// hash did not match. Verification reports; it never repairs.
type IntegrityReport struct {
	Valid            bool    `json:"valid"`
	BrokenAtSequence *uint64 `json:"broken_at_sequence,omitempty"`
	Entries          int     `json:"entries"`
}

// Filter narrows ledger reads. Zero values mean "no constraint".
type Filter struct {
	Kind     EntryKind
	ActorRef string
	Target   string
	From     time.Time
	To       time.Time
}

// Matches reports whether an entry satisfies every set constraint.
func (f Filter) Matches(e AuditEntry) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.ActorRef != "" && e.Actor.Ref != f.ActorRef {
		return false
	}
	if f.Target != "" && e.Target != f.Target {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}
