package accounts

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/speckle-accounts/internal/models"
)

func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())
	return port
}

// fakeBrowser records opened urls and follows the login redirect with query
type fakeBrowser struct {
	mu     sync.Mutex
	opened []string
	env    *testEnv
	query  string
	err    error
}

func (b *fakeBrowser) open(url string) error {
	b.mu.Lock()
	b.opened = append(b.opened, url)
	query, openErr := b.query, b.err
	b.mu.Unlock()

	if query == "" {
		return openErr
	}

	callback := fmt.Sprintf("http://127.0.0.1:%d/?%s", b.env.config.Auth.CallbackPort, query)
	go func() {
		resp, err := http.Get(callback)
		if err == nil {
			resp.Body.Close()
		}
	}()
	return openErr
}

func setupLoginTest(t *testing.T, query string) (*testEnv, *fakeBrowser) {
	t.Helper()
	browser := &fakeBrowser{query: query}
	env := setupTestService(t, WithBrowserOpener(browser.open))
	browser.env = env
	env.config.Auth.CallbackPort = freePort(t)
	return env, browser
}

func TestAddAccount_EndToEnd(t *testing.T) {
	env, browser := setupLoginTest(t, "access_code=code-1")
	ctx := context.Background()

	env.server.AddAccessCode("code-1", models.TokenPair{Token: "tok-1", RefreshToken: "ref-1"})
	env.server.AddUser("tok-1", models.UserInfo{ID: "u1", Name: "First", Email: "first@example.com"})

	acc, err := env.service.AddAccount(ctx, env.server.URL+"/")
	require.NoError(t, err)
	require.NotNil(t, acc)

	assert.Equal(t, "tok-1", acc.Token)
	assert.Equal(t, "ref-1", acc.RefreshToken)
	assert.True(t, acc.IsDefault, "first account becomes default")
	assert.True(t, acc.IsOnline)
	assert.Equal(t, env.server.URL, acc.ServerInfo.URL)
	assert.Equal(t, "first@example.com", acc.UserInfo.Email)

	require.Len(t, browser.opened, 1)
	assert.True(t, strings.HasPrefix(browser.opened[0], env.server.URL+"/authn/verify/sca/"))

	challenge := strings.TrimPrefix(browser.opened[0], env.server.URL+"/authn/verify/sca/")
	requests := env.server.TokenRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, "code-1", requests[0]["accessCode"])
	assert.Equal(t, challenge, requests[0]["challenge"])

	stored, err := env.service.GetAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	// A second login is not the default and logging in again does not duplicate
	env.config.Auth.CallbackPort = freePort(t)
	browser.query = "access_code=code-2"
	env.server.AddAccessCode("code-2", models.TokenPair{Token: "tok-2", RefreshToken: "ref-2"})
	env.server.AddUser("tok-2", models.UserInfo{ID: "u2", Name: "Second", Email: "second@example.com"})

	second, err := env.service.AddAccount(ctx, env.server.URL)
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	env.config.Auth.CallbackPort = freePort(t)
	browser.query = "access_code=code-3"
	env.server.AddAccessCode("code-3", models.TokenPair{Token: "tok-3", RefreshToken: "ref-3"})
	env.server.AddUser("tok-3", models.UserInfo{ID: "u2", Name: "Second", Email: "second@example.com"})

	_, err = env.service.AddAccount(ctx, env.server.URL)
	require.NoError(t, err)

	stored, err = env.service.GetAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Equal(t, 1, countDefaults(t, env))
}

func TestAddAccount_BrowserFailureStillWaitsForRedirect(t *testing.T) {
	env, browser := setupLoginTest(t, "access_code=code-1")
	browser.err = errors.New("no browser available")
	env.server.AddAccessCode("code-1", models.TokenPair{Token: "tok-1", RefreshToken: "ref-1"})
	env.server.AddUser("tok-1", models.UserInfo{ID: "u1", Name: "First", Email: "first@example.com"})

	// The url is handed to the opener, which owns any fallback output
	acc, err := env.service.AddAccount(context.Background(), env.server.URL)
	require.NoError(t, err)
	assert.Equal(t, "first@example.com", acc.UserInfo.Email)
	require.Len(t, browser.opened, 1)
}

func TestAddAccount_Timeout(t *testing.T) {
	env, _ := setupLoginTest(t, "")
	env.config.Auth.LoginTimeout = "200ms"

	start := time.Now()
	acc, err := env.service.AddAccount(context.Background(), env.server.URL)
	assert.ErrorIs(t, err, ErrLoginTimeout)
	assert.Nil(t, acc)
	assert.Less(t, time.Since(start), 5*time.Second)

	// The listener is released once the login gives up
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", env.config.Auth.CallbackPort))
	require.NoError(t, err)
	listener.Close()

	accounts, err := env.service.GetAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestAddAccount_ContextCancelled(t *testing.T) {
	env, _ := setupLoginTest(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := env.service.AddAccount(ctx, env.server.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAddAccount_Denied(t *testing.T) {
	env, _ := setupLoginTest(t, "success=false")

	_, err := env.service.AddAccount(context.Background(), env.server.URL)
	assert.ErrorIs(t, err, ErrLoginDenied)
}

func TestAddAccount_BadAccessCode(t *testing.T) {
	env, _ := setupLoginTest(t, "access_code=unknown")

	_, err := env.service.AddAccount(context.Background(), env.server.URL)
	assert.Error(t, err)

	accounts, err := env.service.GetAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}
