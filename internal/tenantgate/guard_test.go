package tenantgate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardIndividualData(t *testing.T) {
	t.Run("strips the named fields", func(t *testing.T) {
		record := map[string]any{
			"unit":        "engineering",
			"state":       "available",
			"member_name": "Alex",
			"email":       "alex@example.com",
		}
		guarded := GuardIndividualData(record, []string{"member_name", "email"})

		require.NotNil(t, guarded)
		assert.Equal(t, map[string]any{"unit": "engineering", "state": "available"}, guarded)
	})

	t.Run("returns nil instead of an empty shell", func(t *testing.T) {
		record := map[string]any{
			"member_name": "Alex",
			"email":       "alex@example.com",
		}
		assert.Nil(t, GuardIndividualData(record, []string{"member_name", "email"}))
	})

	t.Run("pre-existing nils do not count as surviving fields", func(t *testing.T) {
		record := map[string]any{
			"member_name": "Alex",
			"note":        nil,
		}
		assert.Nil(t, GuardIndividualData(record, []string{"member_name"}))
	})

	t.Run("nil record stays nil", func(t *testing.T) {
		assert.Nil(t, GuardIndividualData(nil, []string{"member_name"}))
	})

	t.Run("does not mutate the input record", func(t *testing.T) {
		record := map[string]any{"unit": "design", "member_name": "Alex"}
		_ = GuardIndividualData(record, []string{"member_name"})
		assert.Contains(t, record, "member_name")
	})
}
