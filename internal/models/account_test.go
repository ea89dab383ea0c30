package models

import (
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(email, server string) *Account {
	return &Account{
		Token:        "token-abc",
		RefreshToken: "refresh-abc",
		ServerInfo:   &ServerInfo{Name: "Test Server", URL: server},
		UserInfo:     &UserInfo{ID: "user-1", Name: "Test User", Email: email},
	}
}

func TestAccount_IDIsStableUppercaseHex(t *testing.T) {
	acc := newTestAccount("user@example.com", "https://speckle.xyz")

	id, err := acc.ID()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{32}$`), id)

	again, err := acc.ID()
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, Hash("user@example.com"+"https://speckle.xyz"), id)
}

func TestAccount_IDIncomplete(t *testing.T) {
	acc := &Account{Token: "x", ServerInfo: &ServerInfo{URL: "https://speckle.xyz"}}

	_, err := acc.ID()
	assert.True(t, errors.Is(err, ErrIncompleteAccount))
	assert.Equal(t, "", acc.MustID())
}

func TestAccount_ResetIDFollowsEmail(t *testing.T) {
	acc := newTestAccount("old@example.com", "https://speckle.xyz")
	oldID := acc.MustID()

	acc.UserInfo = &UserInfo{ID: "user-1", Name: "Test User", Email: "new@example.com"}
	assert.Equal(t, oldID, acc.MustID(), "id stays memoized until reset")

	newID := acc.ResetID()
	assert.NotEqual(t, oldID, newID)
	assert.Equal(t, Hash("new@example.com"+"https://speckle.xyz"), newID)
	assert.Equal(t, newID, acc.MustID())
}

func TestAccount_EqualityAndHash(t *testing.T) {
	a := newTestAccount("user@example.com", "https://speckle.xyz")
	b := newTestAccount("user@example.com", "https://speckle.xyz")
	b.Token = "different"
	b.UserInfo.Name = "Someone Else"

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.HashCode(), b.HashCode())
	assert.Equal(t, a.MustID(), b.MustID())

	c := newTestAccount("other@example.com", "https://speckle.xyz")
	assert.False(t, a.Equal(c))

	d := newTestAccount("USER@example.com", "https://speckle.xyz")
	assert.False(t, a.Equal(d), "equality is case-sensitive")

	var nilAcc *Account
	assert.False(t, a.Equal(nilAcc))
	assert.True(t, nilAcc.Equal(nil))
}

func TestAccount_HashedServerIgnoresPath(t *testing.T) {
	withPath := newTestAccount("user@example.com", "https://speckle.xyz/streams/abc")
	bare := newTestAccount("user@example.com", "https://speckle.xyz")

	assert.Equal(t, bare.HashedServer(), withPath.HashedServer())
	assert.Equal(t, Hash("speckle.xyz"), bare.HashedServer())
}

func TestAccount_HashedFallbacks(t *testing.T) {
	acc := &Account{}

	assert.Equal(t, "@"+Hash("unknown"), acc.HashedEmail())
	assert.Equal(t, Hash(CleanURL(DefaultServerURL)), acc.HashedServer())
}

func TestCleanURL(t *testing.T) {
	assert.Equal(t, "localhost:3000", CleanURL("http://localhost:3000/some/secret?token=1"))
	assert.Equal(t, "speckle.xyz", CleanURL("https://speckle.xyz"))
	assert.Equal(t, "not a url", CleanURL("not a url"))
}

func TestAccount_ValidateLocal(t *testing.T) {
	acc := newTestAccount("user@example.com", "https://speckle.xyz")
	assert.NoError(t, acc.ValidateLocal())

	acc.UserInfo.Name = ""
	assert.Error(t, acc.ValidateLocal())

	acc = newTestAccount("user@example.com", "https://speckle.xyz")
	acc.Token = ""
	assert.Error(t, acc.ValidateLocal())

	acc = newTestAccount("user@example.com", "https://speckle.xyz")
	acc.ServerInfo = nil
	assert.Error(t, acc.ValidateLocal())
}

func TestAccount_JSONIncludesDerivedID(t *testing.T) {
	acc := newTestAccount("user@example.com", "https://speckle.xyz")
	acc.IsDefault = true

	data, err := json.Marshal(acc)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, acc.MustID(), raw["id"])
	assert.Equal(t, "token-abc", raw["token"])
	assert.Equal(t, true, raw["isDefault"])

	var decoded Account
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, acc.Equal(&decoded))
	assert.Equal(t, acc.MustID(), decoded.MustID())
}
