package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pkg/browser"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/common"
	"github.com/ternarybob/speckle-accounts/internal/interfaces"
	"github.com/ternarybob/speckle-accounts/internal/models"
	"github.com/ternarybob/speckle-accounts/internal/storage/localfiles"
)

var (
	// ErrAccountNotFound is returned when no managed account has the given id
	ErrAccountNotFound = errors.New("account not found")

	// ErrLoginTimeout is returned when the browser never redirected back in time
	ErrLoginTimeout = errors.New("login timed out waiting for the browser")

	// ErrLoginDenied is returned when the user declined access in the browser
	ErrLoginDenied = errors.New("login was denied in the browser")
)

// BrowserOpener opens url in the user's browser
type BrowserOpener func(url string) error

// Service manages the accounts stored on this machine
type Service struct {
	store   interfaces.ObjectStorage
	client  interfaces.SpeckleClient
	config  *common.Config
	logger  arbor.ILogger
	browser BrowserOpener
}

var _ interfaces.AccountService = (*Service)(nil)

// Option configures the Service
type Option func(*Service)

// WithBrowserOpener replaces the system browser launcher
func WithBrowserOpener(opener BrowserOpener) Option {
	return func(s *Service) {
		s.browser = opener
	}
}

// NewService creates a new account service
func NewService(store interfaces.ObjectStorage, client interfaces.SpeckleClient, config *common.Config, logger arbor.ILogger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		client:  client,
		config:  config,
		logger:  logger,
		browser: browser.OpenURL,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetAccounts returns managed accounts followed by accounts from local JSON files.
// Managed records missing user or server info are deleted as a side effect.
func (s *Service) GetAccounts(ctx context.Context) ([]*models.Account, error) {
	managed, err := s.managedAccounts(ctx)
	if err != nil {
		return nil, err
	}

	local := localfiles.LoadAccounts(s.config.Accounts.Dir, s.logger)
	return append(managed, local...), nil
}

// GetAccountsForServer returns the accounts whose server url matches exactly
func (s *Service) GetAccountsForServer(ctx context.Context, serverURL string) ([]*models.Account, error) {
	all, err := s.GetAccounts(ctx)
	if err != nil {
		return nil, err
	}

	matching := []*models.Account{}
	for _, acc := range all {
		if acc.ServerInfo.URL == serverURL {
			matching = append(matching, acc)
		}
	}
	return matching, nil
}

// GetDefaultAccount returns the default account, else the first account, else nil.
// The fallback is not persisted.
func (s *Service) GetDefaultAccount(ctx context.Context) (*models.Account, error) {
	all, err := s.GetAccounts(ctx)
	if err != nil {
		return nil, err
	}

	for _, acc := range all {
		if acc.IsDefault {
			return acc, nil
		}
	}

	if len(all) == 0 {
		s.logger.Info().Msg("No Speckle accounts found. Visit the Speckle web app to create one.")
		return nil, nil
	}

	return all[0], nil
}

// SaveAccount inserts or replaces an account keyed by its id
func (s *Service) SaveAccount(ctx context.Context, account *models.Account) error {
	id, err := account.ID()
	if err != nil {
		return err
	}

	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to serialize account: %w", err)
	}

	if err := s.store.SaveObject(ctx, id, string(data)); err != nil {
		s.logger.Error().Err(err).Str("account", account.HashedEmail()).Msg("Failed to save account")
		return fmt.Errorf("failed to save account: %w", err)
	}

	s.logger.Debug().
		Str("account", account.HashedEmail()).
		Str("server", account.HashedServer()).
		Msg("Saved account")
	return nil
}

// ChangeDefaultAccount makes id the only default among managed accounts
func (s *Service) ChangeDefaultAccount(ctx context.Context, id string) error {
	managed, err := s.managedAccounts(ctx)
	if err != nil {
		return err
	}

	found := false
	for _, acc := range managed {
		if acc.MustID() == id {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}

	for _, acc := range managed {
		acc.IsDefault = acc.MustID() == id
		if err := s.SaveAccount(ctx, acc); err != nil {
			return err
		}
	}

	s.logger.Info().Str("id", id).Msg("Changed default account")
	return nil
}

// RemoveAccount deletes a managed account. When no default remains the first
// remaining managed account is promoted.
func (s *Service) RemoveAccount(ctx context.Context, id string) error {
	if err := s.store.DeleteObject(ctx, id); err != nil {
		return fmt.Errorf("failed to remove account %s: %w", id, err)
	}
	s.logger.Info().Str("id", id).Msg("Removed account")

	remaining, err := s.GetAccounts(ctx)
	if err != nil {
		return err
	}
	for _, acc := range remaining {
		if acc.IsDefault {
			return nil
		}
	}

	managed, err := s.managedAccounts(ctx)
	if err != nil {
		return err
	}
	if len(managed) == 0 {
		return nil
	}

	return s.ChangeDefaultAccount(ctx, managed[0].MustID())
}

// ValidateAccount confirms the account's token is accepted by its server
func (s *Service) ValidateAccount(ctx context.Context, account *models.Account) (*models.UserInfo, error) {
	if !account.IsComplete() {
		return nil, models.ErrIncompleteAccount
	}
	return s.client.GetUserInfo(ctx, account.ServerInfo.URL, account.Token)
}

// GetServerInfo fetches a server's public info
func (s *Service) GetServerInfo(ctx context.Context, serverURL string) (*models.ServerInfo, error) {
	return s.client.GetServerInfo(ctx, serverURL)
}

// GetUserInfo fetches the user a token authenticates as
func (s *Service) GetUserInfo(ctx context.Context, serverURL, token string) (*models.UserInfo, error) {
	return s.client.GetUserInfo(ctx, serverURL, token)
}

// GetUserServerInfo fetches user and server info with one query
func (s *Service) GetUserServerInfo(ctx context.Context, serverURL, token string) (*models.UserServerInfo, error) {
	return s.client.GetUserServerInfo(ctx, serverURL, token)
}

// storedID reads the id written alongside a stored record
type storedID struct {
	ID string `json:"id"`
}

// managedAccounts reads the store, removing records that are not usable accounts
func (s *Service) managedAccounts(ctx context.Context) ([]*models.Account, error) {
	records, err := s.store.GetAllObjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read account store: %w", err)
	}

	accounts := make([]*models.Account, 0, len(records))
	for _, record := range records {
		var account models.Account
		if err := json.Unmarshal([]byte(record), &account); err == nil && account.IsComplete() {
			accounts = append(accounts, &account)
			continue
		}

		var stored storedID
		if err := json.Unmarshal([]byte(record), &stored); err != nil || stored.ID == "" {
			s.logger.Warn().Str("scope", s.store.Scope()).Msg("Unreadable account record without id, skipping")
			continue
		}

		if err := s.store.DeleteObject(ctx, stored.ID); err != nil {
			s.logger.Warn().Err(err).Str("id", stored.ID).Msg("Failed to remove invalid account")
			continue
		}
		s.logger.Warn().Str("id", stored.ID).Msg("Removed invalid account missing user or server info")
	}

	return accounts, nil
}
