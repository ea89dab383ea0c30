package streams

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/interfaces"
	"github.com/ternarybob/speckle-accounts/internal/models"
)

// Resolver builds stream wrappers bound to the local accounts and a Speckle client
type Resolver struct {
	accounts interfaces.AccountProvider
	client   interfaces.SpeckleClient
	logger   arbor.ILogger
}

// NewResolver creates a new stream resolver
func NewResolver(accounts interfaces.AccountProvider, client interfaces.SpeckleClient, logger arbor.ILogger) *Resolver {
	return &Resolver{
		accounts: accounts,
		client:   client,
		logger:   logger,
	}
}

// New wraps a stream url or a bare stream id. A bare id borrows the server and
// user of the default account and fails with ErrNoAccounts when there is none.
func (r *Resolver) New(ctx context.Context, input string) (*StreamWrapper, error) {
	if isAbsoluteURL(input) {
		w, err := ParseURL(input)
		if err != nil {
			return nil, err
		}
		w.resolver = r
		return w, nil
	}

	acc, err := r.accounts.GetDefaultAccount(ctx)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrNoAccounts
	}

	return &StreamWrapper{
		OriginalInput: input,
		ServerURL:     acc.ServerInfo.URL,
		UserID:        acc.UserInfo.ID,
		StreamID:      input,
		resolver:      r,
	}, nil
}

// NewFromParts wraps a stream given its id, an optional user id and a server url
func (r *Resolver) NewFromParts(streamID, userID, serverURL string) *StreamWrapper {
	input := serverURL + "/streams/" + streamID
	if userID != "" {
		input += "?u=" + userID
	}

	return &StreamWrapper{
		OriginalInput: input,
		UserID:        userID,
		ServerURL:     serverURL,
		StreamID:      streamID,
		resolver:      r,
	}
}

// GetAccount finds an account that can access this stream, trying in order the
// account named by ?u=, the default account, then every account on the
// stream's server. The first success is cached. When every candidate fails the
// last validation error is returned.
func (w *StreamWrapper) GetAccount(ctx context.Context) (*models.Account, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.account != nil {
		return w.account, nil
	}
	if w.resolver == nil {
		return nil, ErrNoResolver
	}
	r := w.resolver

	var (
		lastErr error
		tried   []*models.Account
	)
	attempt := func(acc *models.Account) bool {
		for _, t := range tried {
			if t.Equal(acc) && t.Token == acc.Token {
				return false
			}
		}
		tried = append(tried, acc)

		if err := w.validate(ctx, acc); err != nil {
			r.logger.Debug().
				Err(err).
				Str("account", acc.HashedEmail()).
				Str("stream", w.StreamID).
				Msg("Account failed to authenticate stream")
			lastErr = err
			return false
		}
		w.account = acc
		return true
	}

	if strings.Contains(w.OriginalInput, "?u=") && w.UserID != "" {
		all, err := r.accounts.GetAccounts(ctx)
		if err != nil {
			return nil, err
		}
		for _, acc := range all {
			if acc.UserInfo.ID == w.UserID {
				if attempt(acc) {
					return w.account, nil
				}
				break
			}
		}
	}

	def, err := r.accounts.GetDefaultAccount(ctx)
	if err != nil {
		return nil, err
	}
	if def != nil && attempt(def) {
		return w.account, nil
	}

	candidates, err := r.accounts.GetAccountsForServer(ctx, w.ServerURL)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("You don't have any accounts for %s: %w", w.ServerURL, ErrNoAccountsForServer)
	}

	for _, acc := range candidates {
		if attempt(acc) {
			return w.account, nil
		}
	}

	if lastErr == nil {
		lastErr = &ValidationError{Message: "Failed to validate stream wrapper"}
	}
	return nil, lastErr
}

// ValidateWithAccount checks that acc belongs to this stream's server, that
// the server is reachable, and that the stream (and branch) exist for acc.
func (w *StreamWrapper) ValidateWithAccount(ctx context.Context, acc *models.Account) error {
	if w.resolver == nil {
		return ErrNoResolver
	}
	return w.validate(ctx, acc)
}

func (w *StreamWrapper) validate(ctx context.Context, acc *models.Account) error {
	client := w.resolver.client

	if _, err := url.ParseRequestURI(w.ServerURL); err != nil {
		return &ValidationError{Message: "Server Url is improperly formatted", Err: err}
	}
	if !acc.IsComplete() {
		return &ValidationError{Message: "Account is incomplete", Err: models.ErrIncompleteAccount}
	}
	if !sameServer(w.ServerURL, acc.ServerInfo) {
		return &ValidationError{Message: fmt.Sprintf("Account is not from server %s", w.ServerURL)}
	}

	if err := client.Ping(ctx, w.ServerURL); err != nil {
		return &ValidationError{Message: ErrNoInternet.Error(), Err: fmt.Errorf("%w: %v", ErrNoInternet, err)}
	}

	if _, err := client.StreamGet(ctx, w.ServerURL, acc.Token, w.StreamID); err != nil {
		return &ValidationError{
			Message: fmt.Sprintf("You don't have access to stream %s on server %s, or the stream does not exist.", w.StreamID, w.ServerURL),
			Err:     err,
		}
	}

	if w.Type() == TypeBranch {
		branch, err := client.BranchGet(ctx, w.ServerURL, acc.Token, w.StreamID, w.BranchName)
		if err != nil || branch == nil {
			return &ValidationError{
				Message: fmt.Sprintf("The branch with name '%s' doesn't exist in stream %s on server %s", w.BranchName, w.StreamID, w.ServerURL),
				Err:     err,
			}
		}
	}

	return nil
}

// sameServer accepts the account's current url or the url its server moved from
func sameServer(serverURL string, info *models.ServerInfo) bool {
	if serverURL == info.URL {
		return true
	}
	if info.Migration != nil && info.Migration.MovedFrom != "" {
		return strings.TrimRight(info.Migration.MovedFrom, "/") == strings.TrimRight(serverURL, "/")
	}
	return false
}
