package consent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusGranted, StatusModified, true},
		{StatusGranted, StatusRevoked, true},
		{StatusGranted, StatusExpired, true},
		{StatusModified, StatusGranted, false},
		{StatusModified, StatusRevoked, false},
		{StatusRevoked, StatusGranted, false},
		{StatusRevoked, StatusExpired, false},
		{StatusExpired, StatusGranted, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestRecordTransition(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("updates status, timestamp, and audit back-reference", func(t *testing.T) {
		record := Record{Status: StatusGranted, UpdatedAt: now}
		require.NoError(t, record.transition(StatusRevoked, now.Add(time.Hour), 42))
		assert.Equal(t, StatusRevoked, record.Status)
		assert.Equal(t, now.Add(time.Hour), record.UpdatedAt)
		assert.Equal(t, uint64(42), record.AuditSequence)
	})

	t.Run("terminal record refuses to move", func(t *testing.T) {
		record := Record{Status: StatusRevoked}
		err := record.transition(StatusExpired, now, 1)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		assert.Equal(t, StatusRevoked, record.Status)
	})
}

func TestRecordExpiry(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	expiry := now.Add(time.Hour)
	record := Record{
		Subject:   id.NewSubjectID(),
		Scope:     id.ScopeCapacityLogging,
		Status:    StatusGranted,
		ExpiresAt: &expiry,
	}

	assert.True(t, record.IsActiveAt(now))
	assert.False(t, record.IsExpiredAt(now))

	assert.False(t, record.IsActiveAt(expiry), "expiry instant itself is expired")
	assert.True(t, record.IsExpiredAt(expiry))

	unbounded := Record{Status: StatusGranted}
	assert.True(t, unbounded.IsActiveAt(now.Add(100*24*time.Hour)))
}
