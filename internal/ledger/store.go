package ledger

import "context"

// Store persists the hash chain. The interface is deliberately append-only:
// no update or delete method exists, so a store implementation cannot be
// talked into rewriting history by any code path in this module.
//
// Append must reject an entry whose sequence is already present
// (sentinel.ErrConflict); the service relies on that to keep the chain
// gapless under concurrent writers.
type Store interface {
	Append(ctx context.Context, entry AuditEntry) error
	// List returns entries matching the filter in ascending sequence order.
	List(ctx context.Context, filter Filter) ([]AuditEntry, error)
	// All returns the whole chain in ascending sequence order.
	All(ctx context.Context) ([]AuditEntry, error)
	// Last returns the newest entry, or ok=false for an empty ledger.
	Last(ctx context.Context) (AuditEntry, bool, error)
}
