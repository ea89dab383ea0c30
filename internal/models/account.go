package models

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"hash/fnv"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultServerURL is the public Speckle server used when nothing else is configured
const DefaultServerURL = "https://app.speckle.systems"

// ErrIncompleteAccount is returned when an account lacks user or server info
var ErrIncompleteAccount = errors.New("Incomplete account info: cannot generate id.")

var accountValidator = validator.New()

// Account is one authenticated identity against one Speckle server.
// The JSON shape matches the account files written by Speckle Manager.
type Account struct {
	Token        string      `json:"token" validate:"required"`
	RefreshToken string      `json:"refreshToken"`
	IsDefault    bool        `json:"isDefault"`
	IsOnline     bool        `json:"isOnline"`
	ServerInfo   *ServerInfo `json:"serverInfo" validate:"required"`
	UserInfo     *UserInfo   `json:"userInfo" validate:"required"`

	id string
}

// ServerInfo describes the server an account belongs to
type ServerInfo struct {
	Name         string           `json:"name" validate:"required"`
	Company      string           `json:"company,omitempty"`
	Version      string           `json:"version,omitempty"`
	AdminContact string           `json:"adminContact,omitempty"`
	Description  string           `json:"description,omitempty"`
	URL          string           `json:"url" validate:"required"`
	Frontend2    bool             `json:"frontend2,omitempty"`
	Migration    *ServerMigration `json:"migration,omitempty"`
}

// ServerMigration records a server that moved to a new address
type ServerMigration struct {
	MovedFrom string `json:"movedFrom,omitempty"`
	MovedTo   string `json:"movedTo,omitempty"`
}

// UserInfo describes the user an account authenticates as
type UserInfo struct {
	ID      string         `json:"id" validate:"required"`
	Name    string         `json:"name" validate:"required"`
	Email   string         `json:"email" validate:"required"`
	Company string         `json:"company,omitempty"`
	Avatar  string         `json:"avatar,omitempty"`
	Streams *ResourceCount `json:"streams,omitempty"`
	Commits *ResourceCount `json:"commits,omitempty"`
}

// ResourceCount wraps a GraphQL totalCount field
type ResourceCount struct {
	TotalCount int `json:"totalCount"`
}

// ID returns the deterministic account id derived from email and server url.
func (a *Account) ID() (string, error) {
	if a.UserInfo == nil || a.ServerInfo == nil {
		return "", ErrIncompleteAccount
	}
	if a.id == "" {
		a.id = Hash(a.UserInfo.Email + a.ServerInfo.URL)
	}
	return a.id, nil
}

// MustID is ID for accounts already known to be complete; incomplete accounts yield ""
func (a *Account) MustID() string {
	id, _ := a.ID()
	return id
}

// ResetID drops the memoized id and derives it again from the current
// email and server url
func (a *Account) ResetID() string {
	a.id = ""
	return a.MustID()
}

// IsComplete reports whether the account carries both user and server info
func (a *Account) IsComplete() bool {
	return a != nil && a.UserInfo != nil && a.ServerInfo != nil
}

// ValidateLocal applies the stricter checks used for hand-written account files:
// token, user id/email/name and server url/name must all be present.
func (a *Account) ValidateLocal() error {
	return accountValidator.Struct(a)
}

// HashedEmail returns an anonymised email suitable for logs
func (a *Account) HashedEmail() string {
	email := "unknown"
	if a.UserInfo != nil {
		email = a.UserInfo.Email
	}
	return "@" + Hash(email)
}

// HashedServer returns an anonymised server authority suitable for logs
func (a *Account) HashedServer() string {
	server := DefaultServerURL
	if a.ServerInfo != nil && a.ServerInfo.URL != "" {
		server = a.ServerInfo.URL
	}
	return Hash(CleanURL(server))
}

// Equal compares server url and email, case-sensitively
func (a *Account) Equal(other *Account) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.serverURL() == other.serverURL() && a.email() == other.email()
}

// HashCode is consistent with Equal
func (a *Account) HashCode() int {
	hash := 17
	hash = hash*23 + stringHash(a.serverURL())
	hash = hash*23 + stringHash(a.email())
	return hash
}

func (a *Account) String() string {
	return "Account (" + a.email() + " | " + a.serverURL() + ")"
}

func (a *Account) serverURL() string {
	if a.ServerInfo == nil {
		return ""
	}
	return a.ServerInfo.URL
}

func (a *Account) email() string {
	if a.UserInfo == nil {
		return ""
	}
	return a.UserInfo.Email
}

// MarshalJSON writes the derived id alongside the stored fields so files stay
// readable by other Speckle tooling.
func (a Account) MarshalJSON() ([]byte, error) {
	type plain Account
	return json.Marshal(struct {
		ID string `json:"id,omitempty"`
		plain
	}{
		ID:    a.MustID(),
		plain: plain(a),
	})
}

// Hash is the uppercase hex MD5 of the lower-cased input
func Hash(input string) string {
	sum := md5.Sum([]byte(strings.ToLower(input)))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// CleanURL reduces a URL to its host[:port] authority so that path-embedded
// secrets never reach a hash. Unparseable input is returned unchanged.
func CleanURL(server string) string {
	u, err := url.Parse(server)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return server
	}
	return u.Host
}

func stringHash(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32())
}
