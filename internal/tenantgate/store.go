package tenantgate

import (
	"context"

	"custos/internal/tenantgate/models"
	id "custos/pkg/domain"
)

// AccountStore persists provisioned deployment accounts. Both shapes go
// through one interface; the sum type keeps them distinct in memory and the
// store keeps them distinct at rest.
type AccountStore interface {
	Save(ctx context.Context, account models.Account) error
	FindByID(ctx context.Context, accountID id.AccountID) (models.Account, error)
}
