package consent

import (
	"context"
	"time"

	id "custos/pkg/domain"
)

// Store persists consent records. Update only ever changes status,
// timestamps, and the audit back-reference; records are never removed.
type Store interface {
	Save(ctx context.Context, record *Record) error
	Update(ctx context.Context, record *Record) error
	// FindGranted returns the single granted record for (subject, scope),
	// or sentinel.ErrNotFound. The one-active-grant invariant makes the
	// singular return safe.
	FindGranted(ctx context.Context, subject id.SubjectID, scope id.ConsentScope) (*Record, error)
	ListBySubject(ctx context.Context, subject id.SubjectID) ([]*Record, error)
	// ListGrantedExpiredBefore returns granted records whose expiry has
	// passed; the batch sweep transitions them.
	ListGrantedExpiredBefore(ctx context.Context, cutoff time.Time) ([]*Record, error)
}
