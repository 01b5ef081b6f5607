package registry

import (
	"context"
	"log/slog"
	"strings"
)

// Loader merges the compiled-in seed with durable augmentations, failing
// closed: any store error yields the seed set, never an empty list. The
// seed always wins on domain collisions so a store row cannot downgrade a
// compiled-in enforcement level.
type Loader struct {
	store  Store
	logger *slog.Logger
}

// NewLoader builds a loader. A nil store means seed-only operation.
func NewLoader(store Store, logger *slog.Logger) *Loader {
	return &Loader{store: store, logger: logger}
}

// Load returns the effective restricted-domain set.
func (l *Loader) Load(ctx context.Context) []RestrictedDomain {
	seed := SeedDomains()
	if l.store == nil {
		return seed
	}

	augmented, err := l.store.ListAll(ctx)
	if err != nil {
		if l.logger != nil {
			l.logger.ErrorContext(ctx, "restricted-domain store unavailable, falling back to seed list",
				"error", err,
				"seed_domains", len(seed),
			)
		}
		return seed
	}

	byDomain := make(map[string]RestrictedDomain, len(seed)+len(augmented))
	for _, d := range augmented {
		byDomain[strings.ToLower(d.Domain)] = d
	}
	for _, d := range seed {
		byDomain[strings.ToLower(d.Domain)] = d
	}

	merged := make([]RestrictedDomain, 0, len(byDomain))
	for _, d := range byDomain {
		merged = append(merged, d)
	}
	return merged
}
