package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "custos/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// IDs must be valid, non-empty, non-nil UUIDs.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseSubjectID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseSubjectID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseSubjectID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseSubjectID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, SubjectID(valid), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety between ID
// kinds. The commented assignments would fail to compile if uncommented;
// runtime distinctness is checked as a sanity backstop.
func TestTypeDistinction(t *testing.T) {
	subjectID := SubjectID(uuid.New())
	tenantID := TenantID(uuid.New())

	// var _ SubjectID = tenantID  // compile error
	// var _ TenantID = subjectID  // compile error

	assert.NotEqual(t, uuid.UUID(subjectID), uuid.UUID(tenantID))
}

func TestParseConsentScope(t *testing.T) {
	t.Run("accepts supported scopes", func(t *testing.T) {
		for _, scope := range AllConsentScopes() {
			parsed, err := ParseConsentScope(string(scope))
			require.NoError(t, err)
			assert.Equal(t, scope, parsed)
		}
	})

	t.Run("rejects empty scope", func(t *testing.T) {
		_, err := ParseConsentScope("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects unknown scope", func(t *testing.T) {
		_, err := ParseConsentScope("telepathy")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
