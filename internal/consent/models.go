package consent

import (
	"time"

	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
)

// Status is the lifecycle state of one consent record.
//
// State machine per (subject, scope):
//
//	none -> granted -> {modified, revoked, expired}
//
// Terminal states never transition again; a re-grant creates a NEW record
// and moves the prior granted one to modified, preserving history.
type Status string

const (
	StatusGranted  Status = "granted"
	StatusModified Status = "modified"
	StatusRevoked  Status = "revoked"
	StatusExpired  Status = "expired"
)

// CanTransitionTo reports whether the state machine allows the move.
func (s Status) CanTransitionTo(next Status) bool {
	if s != StatusGranted {
		return false
	}
	switch next {
	case StatusModified, StatusRevoked, StatusExpired:
		return true
	}
	return false
}

// Record captures one consent decision. Records are never deleted - the
// audit trail is permanent even though the consent is not.
type Record struct {
	ID        id.ConsentID    `json:"id"`
	Subject   id.SubjectID    `json:"subject"`
	Scope     id.ConsentScope `json:"scope"`
	Status    Status          `json:"status"`
	GrantedAt time.Time       `json:"granted_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Condition string          `json:"condition,omitempty"`
	// AuditSequence back-references the ledger entry recorded for the
	// transition that produced this record's current status.
	AuditSequence uint64 `json:"audit_sequence,omitempty"`
}

// IsExpiredAt reports whether a granted record has outlived its expiry.
// Expiry is computed lazily; the stored status may still say granted until
// the next batch sweep transitions it.
func (r Record) IsExpiredAt(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// IsActiveAt reports whether the record grants consent at the given instant.
func (r Record) IsActiveAt(now time.Time) bool {
	return r.Status == StatusGranted && !r.IsExpiredAt(now)
}

// transition moves the record to next, enforcing the state machine.
func (r *Record) transition(next Status, now time.Time, auditSeq uint64) error {
	if !r.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"consent cannot transition from "+string(r.Status)+" to "+string(next))
	}
	r.Status = next
	r.UpdatedAt = now
	r.AuditSequence = auditSeq
	return nil
}

// StatusResult is the structured answer to a consent check.
type StatusResult struct {
	HasConsent bool `json:"has_consent"`
	IsExpired  bool `json:"is_expired"`
}

// GrantOptions carries the optional parts of a grant.
type GrantOptions struct {
	// TTL bounds the grant; zero means no expiry.
	TTL time.Duration
	// Condition is free text the subject attached to the grant.
	Condition string
}
