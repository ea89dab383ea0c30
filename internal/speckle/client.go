// Package speckle provides a client for the Speckle server GraphQL and auth APIs.
package speckle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/httpclient"
	"github.com/ternarybob/speckle-accounts/internal/interfaces"
	"github.com/ternarybob/speckle-accounts/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPingTimeout bounds the connectivity probe.
	DefaultPingTimeout = 5 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10

	// DefaultAppID is the app id and secret registered on every Speckle server.
	DefaultAppID = "sca"
)

// Client is a Speckle server API client. A single Client serves any number of servers.
type Client struct {
	appID       string
	appSecret   string
	timeout     time.Duration
	pingTimeout time.Duration
	logger      arbor.ILogger
	limiter     *rate.Limiter
}

var _ interfaces.SpeckleClient = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithApp sets the app id and secret used for the token endpoint.
func WithApp(appID, appSecret string) ClientOption {
	return func(c *Client) {
		c.appID = appID
		c.appSecret = appSecret
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithPingTimeout sets the connectivity probe timeout.
func WithPingTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.pingTimeout = timeout
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// NewClient creates a new Speckle API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		appID:       DefaultAppID,
		appSecret:   DefaultAppID,
		timeout:     DefaultTimeout,
		pingTimeout: DefaultPingTimeout,
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = arbor.NewLogger()
	}

	return c
}

// graphqlRequest is the body of a POST /graphql call
type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// Response is a GraphQL response envelope with a query-specific data shape
type Response[T any] struct {
	Data   *T             `json:"data"`
	Errors []GraphQLIssue `json:"errors"`
}

// GraphQLIssue is one entry of a GraphQL errors array
type GraphQLIssue struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// query posts a GraphQL query and decodes the data into a T
func query[T any](ctx context.Context, c *Client, serverURL, token, gql string, variables map[string]interface{}) (*T, error) {
	endpoint := strings.TrimRight(serverURL, "/") + "/graphql"

	body, err := json.Marshal(graphqlRequest{Query: gql, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, endpoint, token, body)
	if err != nil {
		return nil, err
	}

	var resp Response[T]
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(resp.Errors) > 0 {
		return nil, &GraphQLError{Endpoint: endpoint, Issues: resp.Errors}
	}
	if resp.Data == nil {
		return nil, &GraphQLError{Endpoint: endpoint, Issues: []GraphQLIssue{{Message: "response contained no data"}}}
	}

	return resp.Data, nil
}

// do executes one rate-limited request and returns the body of a 2xx response
func (c *Client) do(ctx context.Context, method, endpoint, token string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("method", method).
		Str("server", models.CleanURL(endpoint)).
		Bool("authenticated", token != "").
		Msg("Speckle API request")

	client := httpclient.NewBearerHTTPClient(ctx, token, c.timeout)
	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// GraphQL servers may answer errors with 4xx and a regular errors body
		if strings.HasSuffix(endpoint, "/graphql") && isGraphQLErrorBody(respBody) {
			return respBody, nil
		}
		return nil, &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(respBody))),
		}
	}

	return respBody, nil
}

func isGraphQLErrorBody(body []byte) bool {
	var probe struct {
		Errors []GraphQLIssue `json:"errors"`
	}
	return json.Unmarshal(body, &probe) == nil && len(probe.Errors) > 0
}
