package models

import (
	"time"

	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
)

// DeploymentClass is the mutually exclusive account category. There are
// exactly two terminal classes; anything else is unknown and every check in
// the gate treats unknown as deny.
type DeploymentClass string

const (
	ClassRelational    DeploymentClass = "relational"
	ClassInstitutional DeploymentClass = "institutional"
)

// IsValid reports whether the class is one of the two known terminal
// classes.
func (c DeploymentClass) IsValid() bool {
	return c == ClassRelational || c == ClassInstitutional
}

// MinInstitutionalSeats is the fixed floor for institutional provisioning.
const MinInstitutionalSeats = 25

// validBundleSizes is the closed enumeration for relational bundles.
var validBundleSizes = map[int]bool{5: true, 10: true, 20: true, 50: true}

// Account is a sealed sum type over the two deployment shapes. The sealing
// method keeps third packages from adding a shape, so exhaustive switches
// over the two concrete types stay exhaustive.
//
// The structural invariant lives in the types themselves:
// InstitutionalAccount has no field capable of holding a named individual,
// so "no individuals in institutional deployments" is a compile-time
// property rather than a validation rule.
type Account interface {
	AccountID() id.AccountID
	Class() DeploymentClass
	sealed()
}

// RelationalAccount is the consumer shape: a small named bundle of people
// who each acknowledged consent before the account existed.
type RelationalAccount struct {
	ID                    id.AccountID
	TenantID              id.TenantID
	BundleSize            int
	Members               []string
	ConsentAcknowledgedAt time.Time
	CreatedAt             time.Time
}

func (a *RelationalAccount) AccountID() id.AccountID { return a.ID }
func (a *RelationalAccount) Class() DeploymentClass  { return ClassRelational }
func (a *RelationalAccount) sealed()                 {}

// InstitutionalAccount is the aggregate-only shape: organizational units and
// a contract, never named individuals.
type InstitutionalAccount struct {
	ID         id.AccountID
	TenantID   id.TenantID
	SeatCount  int
	Units      []string
	ContractID string
	CreatedAt  time.Time
}

func (a *InstitutionalAccount) AccountID() id.AccountID { return a.ID }
func (a *InstitutionalAccount) Class() DeploymentClass  { return ClassInstitutional }
func (a *InstitutionalAccount) sealed()                 {}

// NewRelationalAccount validates and constructs the relational shape.
//
// Invariants enforced here: bundle size from the closed enumeration, member
// count within the bundle, and a real consent acknowledgment timestamp.
func NewRelationalAccount(tenantID id.TenantID, bundleSize int, members []string, consentAckAt, now time.Time) (*RelationalAccount, error) {
	if !validBundleSizes[bundleSize] {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "bundle size must be one of 5, 10, 20, 50")
	}
	if len(members) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "relational account requires at least one named member")
	}
	if len(members) > bundleSize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "member count exceeds bundle size")
	}
	if consentAckAt.IsZero() || consentAckAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "consent acknowledgment timestamp is required and cannot be in the future")
	}
	return &RelationalAccount{
		ID:                    id.NewAccountID(),
		TenantID:              tenantID,
		BundleSize:            bundleSize,
		Members:               append([]string{}, members...),
		ConsentAcknowledgedAt: consentAckAt,
		CreatedAt:             now,
	}, nil
}

// NewInstitutionalAccount validates and constructs the institutional shape.
func NewInstitutionalAccount(tenantID id.TenantID, seatCount int, units []string, contractID string, now time.Time) (*InstitutionalAccount, error) {
	if seatCount < MinInstitutionalSeats {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "seat count is below the institutional floor")
	}
	if len(units) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "institutional account requires at least one organizational unit")
	}
	if contractID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "contract id is required")
	}
	return &InstitutionalAccount{
		ID:         id.NewAccountID(),
		TenantID:   tenantID,
		SeatCount:  seatCount,
		Units:      append([]string{}, units...),
		ContractID: contractID,
		CreatedAt:  now,
	}, nil
}

// AssertRelational narrows an Account to the relational shape. A mismatch is
// a programmer error - some code path reached a class-specific operation
// with the wrong class - and aborts with CodeInvariantViolation rather than
// silently no-opping.
func AssertRelational(a Account) (*RelationalAccount, error) {
	r, ok := a.(*RelationalAccount)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "expected relational account, got "+string(a.Class()))
	}
	return r, nil
}

// AssertInstitutional narrows an Account to the institutional shape.
func AssertInstitutional(a Account) (*InstitutionalAccount, error) {
	i, ok := a.(*InstitutionalAccount)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "expected institutional account, got "+string(a.Class()))
	}
	return i, nil
}
