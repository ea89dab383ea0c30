package httpclient

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// NewDefaultHTTPClient creates a simple HTTP client with a timeout
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// NewBearerHTTPClient creates an HTTP client that sends the token as an
// Authorization: Bearer header on every request. An empty token yields a
// plain client.
func NewBearerHTTPClient(ctx context.Context, token string, timeout time.Duration) *http.Client {
	if token == "" {
		return NewDefaultHTTPClient(timeout)
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	})

	client := oauth2.NewClient(ctx, source)
	client.Timeout = timeout
	return client
}
