// Package domain holds shared identifier and value types for the governance
// core. IDs are distinct named types over uuid.UUID so the compiler rejects
// cross-type assignment; construct them via the Parse functions at trust
// boundaries to enforce the non-nil invariant.
package domain

import (
	"github.com/google/uuid"

	dErrors "custos/pkg/domain-errors"
)

// SubjectID identifies the person whose data is governed.
type SubjectID uuid.UUID

// TenantID identifies the deployment (relational bundle or institution).
type TenantID uuid.UUID

// AccountID identifies a provisioned deployment account.
type AccountID uuid.UUID

// ConsentID identifies one consent record.
type ConsentID uuid.UUID

// PolicyID identifies a retention policy.
type PolicyID uuid.UUID

// ScheduleID identifies a retention schedule.
type ScheduleID uuid.UUID

// IdentityID identifies an identity-bearing record in the separation layer.
type IdentityID uuid.UUID

func (id SubjectID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id TenantID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id AccountID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ConsentID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id PolicyID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ScheduleID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id IdentityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id SubjectID) String() string  { return uuid.UUID(id).String() }
func (id TenantID) String() string   { return uuid.UUID(id).String() }
func (id AccountID) String() string  { return uuid.UUID(id).String() }
func (id ConsentID) String() string  { return uuid.UUID(id).String() }
func (id PolicyID) String() string   { return uuid.UUID(id).String() }
func (id ScheduleID) String() string { return uuid.UUID(id).String() }
func (id IdentityID) String() string { return uuid.UUID(id).String() }

// IDs serialize as canonical UUID strings, not raw byte arrays.
func (id SubjectID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id TenantID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id AccountID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id ConsentID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id PolicyID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id ScheduleID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id IdentityID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *SubjectID) UnmarshalText(text []byte) error {
	parsed, err := ParseSubjectID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *TenantID) UnmarshalText(text []byte) error {
	parsed, err := ParseTenantID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AccountID) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ConsentID) UnmarshalText(text []byte) error {
	parsed, err := ParseConsentID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PolicyID) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicyID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ScheduleID) UnmarshalText(text []byte) error {
	parsed, err := ParseScheduleID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *IdentityID) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentityID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewSubjectID returns a fresh random SubjectID.
func NewSubjectID() SubjectID { return SubjectID(uuid.New()) }

// NewTenantID returns a fresh random TenantID.
func NewTenantID() TenantID { return TenantID(uuid.New()) }

// NewAccountID returns a fresh random AccountID.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// NewConsentID returns a fresh random ConsentID.
func NewConsentID() ConsentID { return ConsentID(uuid.New()) }

// NewPolicyID returns a fresh random PolicyID.
func NewPolicyID() PolicyID { return PolicyID(uuid.New()) }

// NewScheduleID returns a fresh random ScheduleID.
func NewScheduleID() ScheduleID { return ScheduleID(uuid.New()) }

// NewIdentityID returns a fresh random IdentityID.
func NewIdentityID() IdentityID { return IdentityID(uuid.New()) }

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// ParseSubjectID constructs a SubjectID from external input.
func ParseSubjectID(s string) (SubjectID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return SubjectID{}, err
	}
	return SubjectID(u), nil
}

// ParseTenantID constructs a TenantID from external input.
func ParseTenantID(s string) (TenantID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return TenantID{}, err
	}
	return TenantID(u), nil
}

// ParseAccountID constructs an AccountID from external input.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(u), nil
}

// ParseConsentID constructs a ConsentID from external input.
func ParseConsentID(s string) (ConsentID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ConsentID{}, err
	}
	return ConsentID(u), nil
}

// ParsePolicyID constructs a PolicyID from external input.
func ParsePolicyID(s string) (PolicyID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return PolicyID{}, err
	}
	return PolicyID(u), nil
}

// ParseScheduleID constructs a ScheduleID from external input.
func ParseScheduleID(s string) (ScheduleID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ScheduleID{}, err
	}
	return ScheduleID(u), nil
}

// ParseIdentityID constructs an IdentityID from external input.
func ParseIdentityID(s string) (IdentityID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return IdentityID{}, err
	}
	return IdentityID(u), nil
}
