package accounts

import (
	"context"

	"github.com/ternarybob/speckle-accounts/internal/models"
	"github.com/ternarybob/speckle-accounts/internal/storage/localfiles"
)

// UpdateAccounts refreshes user and server info for every account, one at a
// time. Failures only mark the account offline; managed accounts are persisted
// either way. Accounts not reached before ctx ends are returned unchanged.
func (s *Service) UpdateAccounts(ctx context.Context) []*models.Account {
	managed, err := s.managedAccounts(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read managed accounts for refresh")
		managed = nil
	}
	local := localfiles.LoadAccounts(s.config.Accounts.Dir, s.logger)

	online := 0
	for _, acc := range managed {
		if ctx.Err() != nil {
			break
		}
		oldID := acc.MustID()
		if s.refreshAccount(ctx, acc) {
			online++
		}
		if err := s.SaveAccount(ctx, acc); err != nil {
			s.logger.Warn().Err(err).Str("account", acc.HashedEmail()).Msg("Failed to persist refreshed account")
			continue
		}
		// A changed email moves the record to its new id
		if newID := acc.MustID(); newID != oldID {
			if err := s.store.DeleteObject(ctx, oldID); err != nil {
				s.logger.Warn().Err(err).Str("id", oldID).Msg("Failed to remove account stored under its previous id")
				continue
			}
			s.logger.Info().Str("old_id", oldID).Str("id", newID).Msg("Account id changed after refresh")
		}
	}
	for _, acc := range local {
		if ctx.Err() != nil {
			break
		}
		if s.refreshAccount(ctx, acc) {
			online++
		}
	}

	all := append(managed, local...)
	s.logger.Info().
		Int("accounts", len(all)).
		Int("online", online).
		Msg("Account refresh completed")

	return all
}

// refreshAccount updates acc in memory and reports whether it is online
func (s *Service) refreshAccount(ctx context.Context, acc *models.Account) bool {
	serverURL := acc.ServerInfo.URL

	info, err := s.client.GetUserServerInfo(ctx, serverURL, acc.Token)
	token, refreshToken := acc.Token, acc.RefreshToken

	if err != nil && acc.RefreshToken != "" {
		s.logger.Debug().Err(err).Str("account", acc.HashedEmail()).Msg("Token rejected, trying refresh token")

		pair, refreshErr := s.client.RefreshToken(ctx, serverURL, acc.RefreshToken)
		if refreshErr == nil {
			token, refreshToken = pair.Token, pair.RefreshToken
			info, err = s.client.GetUserServerInfo(ctx, serverURL, token)
		} else {
			err = refreshErr
		}
	}

	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("account", acc.HashedEmail()).
			Str("server", acc.HashedServer()).
			Msg("Account is offline")
		acc.IsOnline = false
		return false
	}

	// Keep the stored url; only a changed email can change the id
	info.ServerInfo.URL = serverURL
	acc.UserInfo = info.User
	acc.ServerInfo = info.ServerInfo
	acc.ResetID()
	acc.Token = token
	if refreshToken != "" {
		acc.RefreshToken = refreshToken
	}
	acc.IsOnline = true
	return true
}
