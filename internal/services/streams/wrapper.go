// Package streams parses Speckle stream urls and resolves the account to use with them.
package streams

import (
	"net/url"
	"strings"
	"sync"

	"github.com/ternarybob/speckle-accounts/internal/models"
)

// Type is the kind of resource a StreamWrapper points at
type Type int

const (
	TypeUndefined Type = iota
	TypeStream
	TypeCommit
	TypeBranch
	TypeObject
)

func (t Type) String() string {
	switch t {
	case TypeStream:
		return "Stream"
	case TypeCommit:
		return "Commit"
	case TypeBranch:
		return "Branch"
	case TypeObject:
		return "Object"
	default:
		return "Undefined"
	}
}

// StreamWrapper is a normalised reference to a stream, branch, commit or object.
// Identifiers are fixed after construction; only the resolved account changes.
type StreamWrapper struct {
	OriginalInput string
	UserID        string
	ServerURL     string
	StreamID      string
	BranchName    string // model id for project urls
	CommitID      string
	ObjectID      string

	resolver *Resolver
	mu       sync.Mutex
	account  *models.Account
}

// Type derives the kind from the populated identifiers: Object, Commit, Branch, Stream
func (w *StreamWrapper) Type() Type {
	switch {
	case w.ObjectID != "":
		return TypeObject
	case w.CommitID != "":
		return TypeCommit
	case w.BranchName != "":
		return TypeBranch
	case w.StreamID != "":
		return TypeStream
	default:
		return TypeUndefined
	}
}

// IsValid reports whether the wrapper points at anything
func (w *StreamWrapper) IsValid() bool {
	return w.Type() != TypeUndefined
}

// SetAccount caches acc for this wrapper and adopts its user id
func (w *StreamWrapper) SetAccount(acc *models.Account) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.account = acc
	if acc != nil && acc.UserInfo != nil {
		w.UserID = acc.UserInfo.ID
	}
}

// Account returns the cached account, if any, without resolving one
func (w *StreamWrapper) Account() *models.Account {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.account
}

// Equal compares type, server, user and stream, plus the identifier that
// defines the type (branch, commit or object).
func (w *StreamWrapper) Equal(other *StreamWrapper) bool {
	if w == nil || other == nil {
		return w == other
	}

	t := w.Type()
	if t != other.Type() {
		return false
	}
	if w.ServerURL != other.ServerURL || w.UserID != other.UserID || w.StreamID != other.StreamID {
		return false
	}

	switch t {
	case TypeBranch:
		return w.BranchName == other.BranchName
	case TypeCommit:
		return w.CommitID == other.CommitID
	case TypeObject:
		return w.ObjectID == other.ObjectID
	default:
		return true
	}
}

// String rebuilds a canonical url. Project urls are used when the resolved
// account's server runs the new frontend, or when the input was a project url.
func (w *StreamWrapper) String() string {
	if acc := w.Account(); acc != nil && acc.ServerInfo != nil {
		if acc.ServerInfo.Frontend2 {
			return w.projectURL()
		}
		return w.streamURL()
	}

	if isAbsoluteURL(w.OriginalInput) {
		if u, err := url.Parse(w.OriginalInput); err == nil && projectPattern.MatchString(u.EscapedPath()) {
			return w.projectURL()
		}
	}

	return w.streamURL()
}

func (w *StreamWrapper) streamURL() string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(w.ServerURL, "/"))
	b.WriteString("/streams/")
	b.WriteString(url.PathEscape(w.StreamID))

	switch w.Type() {
	case TypeCommit:
		b.WriteString("/commits/" + url.PathEscape(w.CommitID))
	case TypeBranch:
		b.WriteString("/branches/" + escapeBranch(w.BranchName))
	case TypeObject:
		b.WriteString("/objects/" + url.PathEscape(w.ObjectID))
	}

	w.writeUser(&b)
	return b.String()
}

func (w *StreamWrapper) projectURL() string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(w.ServerURL, "/"))
	b.WriteString("/projects/")
	b.WriteString(url.PathEscape(w.StreamID))

	switch w.Type() {
	case TypeCommit:
		b.WriteString("/models/" + url.PathEscape(w.BranchName) + "@" + url.PathEscape(w.CommitID))
	case TypeBranch:
		b.WriteString("/models/" + url.PathEscape(w.BranchName))
	case TypeObject:
		b.WriteString("/models/" + url.PathEscape(w.ObjectID))
	}

	w.writeUser(&b)
	return b.String()
}

func (w *StreamWrapper) writeUser(b *strings.Builder) {
	if w.UserID != "" {
		b.WriteString("?u=" + url.QueryEscape(w.UserID))
	}
}

// escapeBranch escapes each part of a branch name but keeps its slashes
func escapeBranch(name string) string {
	parts := strings.Split(name, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
