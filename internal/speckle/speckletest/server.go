// Package speckletest provides an in-process fake Speckle server for tests.
package speckletest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/ternarybob/speckle-accounts/internal/models"
)

// Server fakes the GraphQL and /auth/token endpoints of a Speckle server
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	info          models.ServerInfo
	users         map[string]*models.UserInfo // token -> user
	refresh       map[string]models.TokenPair // refresh token -> new pair
	accessCodes   map[string]models.TokenPair // access code -> pair
	streams       map[string]map[string]bool  // stream id -> branch names
	tokenRequests []map[string]string
	graphqlCalls  int
}

// NewServer starts a fake server. Close it with t.Cleanup(server.Close).
func NewServer(name string) *Server {
	s := &Server{
		info:        models.ServerInfo{Name: name, Company: "Speckle Test"},
		users:       make(map[string]*models.UserInfo),
		refresh:     make(map[string]models.TokenPair),
		accessCodes: make(map[string]models.TokenPair),
		streams:     make(map[string]map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", s.handleGraphQL)
	mux.HandleFunc("/auth/token", s.handleToken)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		frontend2 := s.info.Frontend2
		s.mu.Unlock()
		if frontend2 {
			w.Header().Set("x-speckle-frontend-2", "true")
		}
		w.WriteHeader(http.StatusOK)
	})

	s.Server = httptest.NewServer(mux)
	return s
}

// SetFrontend2 marks the server as serving the new web frontend. Like a real
// server it is only advertised by a response header on the root url.
func (s *Server) SetFrontend2(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info.Frontend2 = enabled
}

// SetMovedFrom records a server migration from an older address
func (s *Server) SetMovedFrom(oldURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info.Migration = &models.ServerMigration{MovedFrom: oldURL}
}

// AddUser makes token authenticate as user
func (s *Server) AddUser(token string, user models.UserInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[token] = &user
}

// RevokeToken makes token stop authenticating
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, token)
}

// AddRefreshToken lets refreshToken be exchanged for pair. The new token
// authenticates as the same user as userToken.
func (s *Server) AddRefreshToken(refreshToken string, pair models.TokenPair, userToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[refreshToken] = pair
	if user, ok := s.users[userToken]; ok {
		copied := *user
		s.users[pair.Token] = &copied
	}
}

// AddAccessCode lets accessCode be exchanged for pair
func (s *Server) AddAccessCode(accessCode string, pair models.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessCodes[accessCode] = pair
}

// AddStream creates a stream with the given branches
func (s *Server) AddStream(id string, branches ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := map[string]bool{"main": true}
	for _, b := range branches {
		names[b] = true
	}
	s.streams[id] = names
}

// TokenRequests returns the decoded bodies posted to /auth/token
func (s *Server) TokenRequests() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.tokenRequests...)
}

// GraphQLCalls returns how many GraphQL requests were served
func (s *Server) GraphQLCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graphqlCalls
}

type gqlRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req gqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphqlCalls++

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	user := s.users[token]
	info := s.info

	switch {
	case strings.Contains(req.Query, "branch("):
		branches, ok := s.streams[req.Variables["streamId"]]
		if user == nil || !ok {
			writeErrors(w, "Stream not found")
			return
		}
		var branch interface{}
		if name := req.Variables["branchName"]; branches[name] {
			branch = map[string]string{"id": "b-" + name, "name": name}
		}
		writeData(w, map[string]interface{}{"stream": map[string]interface{}{"branch": branch}})

	case strings.Contains(req.Query, "stream("):
		id := req.Variables["id"]
		if _, ok := s.streams[id]; user == nil || !ok {
			writeErrors(w, "Stream not found")
			return
		}
		writeData(w, map[string]interface{}{"stream": map[string]string{"id": id, "name": "Stream " + id}})

	case strings.Contains(req.Query, "user"):
		if user == nil {
			writeErrors(w, "Your token is not valid")
			return
		}
		data := map[string]interface{}{"user": user}
		if strings.Contains(req.Query, "serverInfo") {
			data["serverInfo"] = serverInfoFields(info)
		}
		writeData(w, data)

	case strings.Contains(req.Query, "serverInfo"):
		writeData(w, map[string]interface{}{"serverInfo": serverInfoFields(info)})

	default:
		writeErrors(w, "Unknown query")
	}
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenRequests = append(s.tokenRequests, body)

	if body["appId"] != "sca" || body["appSecret"] != "sca" {
		http.Error(w, "invalid app", http.StatusUnauthorized)
		return
	}

	var (
		pair models.TokenPair
		ok   bool
	)
	if code := body["accessCode"]; code != "" {
		pair, ok = s.accessCodes[code]
	} else if refresh := body["refreshToken"]; refresh != "" {
		pair, ok = s.refresh[refresh]
	}
	if !ok {
		http.Error(w, "invalid grant", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pair)
}

// serverInfoFields returns only what the serverInfo query selects; url and
// frontend2 are not part of the GraphQL schema
func serverInfoFields(info models.ServerInfo) map[string]interface{} {
	fields := map[string]interface{}{
		"name":         info.Name,
		"company":      info.Company,
		"version":      info.Version,
		"adminContact": info.AdminContact,
		"description":  info.Description,
		"migration":    nil,
	}
	if info.Migration != nil {
		fields["migration"] = map[string]string{
			"movedFrom": info.Migration.MovedFrom,
			"movedTo":   info.Migration.MovedTo,
		}
	}
	return fields
}

func writeData(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func writeErrors(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"data":   nil,
		"errors": []map[string]string{{"message": message}},
	})
}
