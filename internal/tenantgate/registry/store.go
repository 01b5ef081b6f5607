package registry

import "context"

// Store is the durable source of restricted-domain augmentations.
type Store interface {
	ListAll(ctx context.Context) ([]RestrictedDomain, error)
}
