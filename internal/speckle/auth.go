package speckle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/speckle-accounts/internal/models"
)

// ExchangeAccessCode trades a login access code and its challenge for a token pair
func (c *Client) ExchangeAccessCode(ctx context.Context, serverURL, accessCode, challenge string) (*models.TokenPair, error) {
	return c.postToken(ctx, serverURL, models.TokenExchangeRequest{
		AppID:      c.appID,
		AppSecret:  c.appSecret,
		AccessCode: accessCode,
		Challenge:  challenge,
	})
}

// RefreshToken trades a refresh token for a new token pair
func (c *Client) RefreshToken(ctx context.Context, serverURL, refreshToken string) (*models.TokenPair, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}
	return c.postToken(ctx, serverURL, models.TokenRefreshRequest{
		AppID:        c.appID,
		AppSecret:    c.appSecret,
		RefreshToken: refreshToken,
	})
}

func (c *Client) postToken(ctx context.Context, serverURL string, payload interface{}) (*models.TokenPair, error) {
	endpoint := strings.TrimRight(serverURL, "/") + "/auth/token"

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token request: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, endpoint, "", body)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain token: %w", err)
	}

	var pair models.TokenPair
	if err := json.Unmarshal(respBody, &pair); err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to decode token response: %w", err)}
	}
	if pair.Token == "" {
		return nil, fmt.Errorf("failed to obtain token: server returned an empty token")
	}

	return &pair, nil
}

// Ping checks that the server can be reached. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context, serverURL string) error {
	ctx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()

	endpoint := strings.TrimRight(serverURL, "/") + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := (&http.Client{Timeout: c.pingTimeout}).Do(req)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	resp.Body.Close()
	return nil
}

// Frontend2Header is set on responses from servers running the new web frontend
const Frontend2Header = "x-speckle-frontend-2"

// isFrontend2 reports whether the server root answers with Frontend2Header.
// An unreachable server counts as the old frontend.
func (c *Client) isFrontend2(ctx context.Context, serverURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()

	endpoint := strings.TrimRight(serverURL, "/") + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}

	resp, err := (&http.Client{Timeout: c.pingTimeout}).Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("server", models.CleanURL(serverURL)).Msg("Frontend detection failed")
		return false
	}
	resp.Body.Close()

	return resp.Header.Get(Frontend2Header) != ""
}
