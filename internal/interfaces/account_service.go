package interfaces

import (
	"context"

	"github.com/ternarybob/speckle-accounts/internal/models"
)

// AccountProvider is the read side of the account manager used by stream resolution
type AccountProvider interface {
	GetAccounts(ctx context.Context) ([]*models.Account, error)
	GetAccountsForServer(ctx context.Context, serverURL string) ([]*models.Account, error)
	GetDefaultAccount(ctx context.Context) (*models.Account, error)
}

// AccountService manages every account known on this machine
type AccountService interface {
	AccountProvider

	AddAccount(ctx context.Context, serverURL string) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error
	UpdateAccounts(ctx context.Context) []*models.Account
	ChangeDefaultAccount(ctx context.Context, id string) error
	RemoveAccount(ctx context.Context, id string) error
	ValidateAccount(ctx context.Context, account *models.Account) (*models.UserInfo, error)
}

// SchedulerService runs the periodic account refresh
type SchedulerService interface {
	Start(schedule string) error
	Stop() error
	RunNow(ctx context.Context)
}
