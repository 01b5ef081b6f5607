package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
)

var (
	testNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ackAt   = testNow.Add(-time.Minute)
)

func TestNewRelationalAccount(t *testing.T) {
	tenantID := id.NewTenantID()

	t.Run("accepts every bundle size in the enumeration", func(t *testing.T) {
		for _, size := range []int{5, 10, 20, 50} {
			a, err := NewRelationalAccount(tenantID, size, []string{"alex"}, ackAt, testNow)
			require.NoError(t, err)
			assert.Equal(t, size, a.BundleSize)
			assert.Equal(t, ClassRelational, a.Class())
		}
	})

	t.Run("rejects sizes outside the enumeration", func(t *testing.T) {
		for _, size := range []int{0, 1, 4, 6, 15, 100} {
			_, err := NewRelationalAccount(tenantID, size, []string{"alex"}, ackAt, testNow)
			require.Error(t, err, "size %d", size)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	t.Run("rejects more members than the bundle holds", func(t *testing.T) {
		members := []string{"a", "b", "c", "d", "e", "f"}
		_, err := NewRelationalAccount(tenantID, 5, members, ackAt, testNow)
		require.Error(t, err)
	})

	t.Run("rejects a missing or future consent acknowledgment", func(t *testing.T) {
		_, err := NewRelationalAccount(tenantID, 5, []string{"alex"}, time.Time{}, testNow)
		require.Error(t, err)

		_, err = NewRelationalAccount(tenantID, 5, []string{"alex"}, testNow.Add(time.Hour), testNow)
		require.Error(t, err)
	})
}

func TestNewInstitutionalAccount(t *testing.T) {
	tenantID := id.NewTenantID()

	t.Run("accepts seat counts at or above the floor", func(t *testing.T) {
		a, err := NewInstitutionalAccount(tenantID, MinInstitutionalSeats, []string{"engineering"}, "CT-100", testNow)
		require.NoError(t, err)
		assert.Equal(t, ClassInstitutional, a.Class())
	})

	t.Run("rejects seat counts below the floor", func(t *testing.T) {
		_, err := NewInstitutionalAccount(tenantID, MinInstitutionalSeats-1, []string{"engineering"}, "CT-100", testNow)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("requires a contract id and at least one unit", func(t *testing.T) {
		_, err := NewInstitutionalAccount(tenantID, 30, []string{"engineering"}, "", testNow)
		require.Error(t, err)

		_, err = NewInstitutionalAccount(tenantID, 30, nil, "CT-100", testNow)
		require.Error(t, err)
	})
}

// TestClassAssertions verifies cross-class assertions are hard failures,
// not silent no-ops.
func TestClassAssertions(t *testing.T) {
	tenantID := id.NewTenantID()
	relational, err := NewRelationalAccount(tenantID, 5, []string{"alex"}, ackAt, testNow)
	require.NoError(t, err)
	institutional, err := NewInstitutionalAccount(tenantID, 30, []string{"engineering"}, "CT-100", testNow)
	require.NoError(t, err)

	t.Run("matching assertions narrow", func(t *testing.T) {
		r, err := AssertRelational(relational)
		require.NoError(t, err)
		assert.Same(t, relational, r)

		i, err := AssertInstitutional(institutional)
		require.NoError(t, err)
		assert.Same(t, institutional, i)
	})

	t.Run("mismatched assertions abort with invariant violations", func(t *testing.T) {
		_, err := AssertRelational(institutional)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		_, err = AssertInstitutional(relational)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

// The institutional shape structurally cannot hold a named individual: it
// has no member field at all. If someone adds one, this test's premise
// breaks and the compile-time invariant is gone.
func TestInstitutionalShapeHasNoIndividualFields(t *testing.T) {
	a := &InstitutionalAccount{}
	// var _ = a.Members // compile error: InstitutionalAccount has no Members
	assert.Equal(t, ClassInstitutional, a.Class())
}
