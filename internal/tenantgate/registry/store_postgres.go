package registry

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore reads restricted-domain augmentations from the durable
// store. Writes happen through operator tooling, not this core, so the
// store is read-only here.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]RestrictedDomain, error) {
	query := `
		SELECT domain, enforcement, organization
		FROM restricted_domains
		ORDER BY domain ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query restricted domains: %w", err)
	}
	defer rows.Close()

	var domains []RestrictedDomain
	for rows.Next() {
		var d RestrictedDomain
		var enforcement string
		if err := rows.Scan(&d.Domain, &enforcement, &d.Organization); err != nil {
			return nil, fmt.Errorf("scan restricted domain: %w", err)
		}
		d.Enforcement = EnforcementLevel(enforcement)
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restricted domains: %w", err)
	}
	return domains, nil
}
