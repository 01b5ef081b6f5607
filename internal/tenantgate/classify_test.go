package tenantgate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custos/internal/tenantgate/models"
	"custos/internal/tenantgate/registry"
)

type failingDomainStore struct{}

func (failingDomainStore) ListAll(context.Context) ([]registry.RestrictedDomain, error) {
	return nil, errors.New("store unreachable")
}

type staticDomainStore struct {
	domains []registry.RestrictedDomain
}

func (s staticDomainStore) ListAll(context.Context) ([]registry.RestrictedDomain, error) {
	return s.domains, nil
}

func seedOnlyClassifier() *Classifier {
	return NewClassifier(registry.NewLoader(nil, nil))
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	c := seedOnlyClassifier()

	t.Run("ordinary domains classify relational", func(t *testing.T) {
		got := c.Classify(ctx, "someone@example.com")
		assert.Equal(t, models.ClassRelational, got.Class)
		assert.Nil(t, got.Match)
	})

	t.Run("restricted domain forces institutional", func(t *testing.T) {
		got := c.Classify(ctx, "nurse@nhs.uk")
		assert.Equal(t, models.ClassInstitutional, got.Class)
		require.NotNil(t, got.Match)
		assert.Equal(t, "NHS", got.Match.Organization)
	})

	t.Run("parent-domain match forces institutional", func(t *testing.T) {
		got := c.Classify(ctx, "nurse@trust.mail.nhs.uk")
		assert.Equal(t, models.ClassInstitutional, got.Class)
		require.NotNil(t, got.Match)
	})

	t.Run("matching is case-insensitive", func(t *testing.T) {
		got := c.Classify(ctx, "Nurse@NHS.UK")
		assert.Equal(t, models.ClassInstitutional, got.Class)
	})

	t.Run("unclassifiable identity fails closed", func(t *testing.T) {
		for _, email := range []string{"", "no-at-sign", "trailing@"} {
			got := c.Classify(ctx, email)
			assert.Equal(t, models.ClassInstitutional, got.Class, "email %q", email)
		}
	})
}

func TestLoaderFailClosed(t *testing.T) {
	ctx := context.Background()

	t.Run("store failure falls back to the seed list", func(t *testing.T) {
		loader := registry.NewLoader(failingDomainStore{}, nil)
		domains := loader.Load(ctx)
		assert.ElementsMatch(t, registry.SeedDomains(), domains)
	})

	t.Run("store failure never yields a permissive empty list", func(t *testing.T) {
		c := NewClassifier(registry.NewLoader(failingDomainStore{}, nil))
		got := c.Classify(ctx, "officer@police.uk")
		assert.Equal(t, models.ClassInstitutional, got.Class)
	})

	t.Run("augmentations merge with the seed", func(t *testing.T) {
		store := staticDomainStore{domains: []registry.RestrictedDomain{
			{Domain: "bigcorp.example", Enforcement: registry.EnforcementContactSales, Organization: "BigCorp"},
		}}
		c := NewClassifier(registry.NewLoader(store, nil))

		assert.Equal(t, models.ClassInstitutional, c.Classify(ctx, "someone@bigcorp.example").Class)
		// Seed still applies alongside augmentations.
		assert.Equal(t, models.ClassInstitutional, c.Classify(ctx, "nurse@nhs.uk").Class)
	})

	t.Run("seed wins over a conflicting store row", func(t *testing.T) {
		store := staticDomainStore{domains: []registry.RestrictedDomain{
			{Domain: "police.uk", Enforcement: registry.EnforcementContactSales, Organization: "Downgraded"},
		}}
		c := NewClassifier(registry.NewLoader(store, nil))
		got := c.Classify(ctx, "officer@police.uk")
		require.NotNil(t, got.Match)
		assert.Equal(t, registry.EnforcementBlock, got.Match.Enforcement)
	})
}
