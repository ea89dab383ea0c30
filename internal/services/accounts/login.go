package accounts

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ternarybob/speckle-accounts/internal/common"
	"github.com/ternarybob/speckle-accounts/internal/models"
)

const loginCompletePage = `<!DOCTYPE html>
<html>
<head><title>Speckle</title></head>
<body>
<p>Hooray! Your account was added. You can close this window.</p>
<script>window.setTimeout(function () { window.close(); }, 1000);</script>
</body>
</html>`

const loginDeniedPage = `<!DOCTYPE html>
<html>
<head><title>Speckle</title></head>
<body><p>Login was cancelled. You can close this window.</p></body>
</html>`

// callbackResult is what the loopback listener hands back to AddAccount
type callbackResult struct {
	accessCode string
	err        error
}

// AddAccount runs the browser login against server and stores the new account.
// An empty server resolves to the default server. When the browser does not
// redirect back within the login timeout, ErrLoginTimeout is returned and
// nothing is stored.
func (s *Service) AddAccount(ctx context.Context, server string) (*models.Account, error) {
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	if server == "" {
		server = s.ResolveDefaultServerURL()
	}

	challenge, err := GenerateChallenge()
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	logger := s.logger.WithCorrelationId(sessionID)

	listener, err := net.Listen("tcp", net.JoinHostPort(s.config.Auth.CallbackHost, strconv.Itoa(s.config.Auth.CallbackPort)))
	if err != nil {
		return nil, fmt.Errorf("failed to start login callback listener: %w", err)
	}

	results := make(chan callbackResult, 1)
	httpServer := &http.Server{
		Handler:           s.callbackRouter(results),
		ReadHeaderTimeout: 10 * time.Second,
	}

	common.SafeGo(logger, "loginCallback", func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn().Err(err).Msg("Login callback listener stopped")
		}
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	verifyURL := fmt.Sprintf("%s/authn/verify/%s/%s", server, s.config.Auth.AppID, challenge)
	logger.Info().
		Str("server", models.CleanURL(server)).
		Str("callback", listener.Addr().String()).
		Msg("Opening browser for Speckle login")

	if err := s.browser(verifyURL); err != nil {
		logger.Warn().Err(err).Str("url", verifyURL).Msg("Failed to open browser, open the login url manually")
	}

	timer := time.NewTimer(s.config.LoginTimeout())
	defer timer.Stop()

	var result callbackResult
	select {
	case result = <-results:
	case <-timer.C:
		logger.Warn().Dur("timeout", s.config.LoginTimeout()).Msg("Login timed out, no account was added")
		return nil, ErrLoginTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.err != nil {
		return nil, result.err
	}

	pair, err := s.client.ExchangeAccessCode(ctx, server, result.accessCode, challenge)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange access code: %w", err)
	}

	info, err := s.client.GetUserServerInfo(ctx, server, pair.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account info: %w", err)
	}
	info.ServerInfo.URL = server

	managed, err := s.managedAccounts(ctx)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Token:        pair.Token,
		RefreshToken: pair.RefreshToken,
		IsDefault:    len(managed) == 0,
		IsOnline:     true,
		ServerInfo:   info.ServerInfo,
		UserInfo:     info.User,
	}

	if err := s.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	logger.Info().
		Str("account", account.HashedEmail()).
		Str("server", account.HashedServer()).
		Bool("default", account.IsDefault).
		Msg("Account added")

	return account, nil
}

// callbackRouter answers the browser redirect and reports the first outcome
func (s *Service) callbackRouter(results chan<- callbackResult) http.Handler {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		query := req.URL.Query()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")

		if query.Get("success") == "false" {
			_, _ = w.Write([]byte(loginDeniedPage))
			report(results, callbackResult{err: ErrLoginDenied})
			return
		}

		code := query.Get("access_code")
		if code == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(loginDeniedPage))
			return
		}

		_, _ = w.Write([]byte(loginCompletePage))
		report(results, callbackResult{accessCode: code})
	})

	return r
}

// report delivers only the first result; later redirects are ignored
func report(results chan<- callbackResult, result callbackResult) {
	select {
	case results <- result:
	default:
	}
}
