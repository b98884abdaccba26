// Package spamwatchtest provides an in-memory SpamWatch API server for testing.
package spamwatchtest

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/s0up4200/spamwatch/spamwatch"
)

// Server is a fake SpamWatch API server. Tokens and bans live in memory.
type Server struct {
	*httptest.Server
	state  *serverState
	router chi.Router
}

type serverState struct {
	mu sync.RWMutex

	tokens      map[int]*spamwatch.Token
	byToken     map[string]int
	bans        map[int64]*spamwatch.Ban
	nextTokenID int

	now func() time.Time

	failureInjection failureInjection
}

// failureInjection holds scheduled failures
type failureInjection struct {
	nextErrorStatus int
	nextErrorBody   string
	nextErrorCount  int
	rateLimitUntil  time.Time
}

// New starts a new fake server. Call Close when done.
func New() *Server {
	s := &Server{
		state: &serverState{
			tokens:      make(map[int]*spamwatch.Token),
			byToken:     make(map[string]int),
			bans:        make(map[int64]*spamwatch.Ban),
			nextTokenID: 1,
			now:         time.Now,
		},
	}
	s.router = s.newRouter()
	s.Server = httptest.NewServer(s.router)
	return s
}

// URL returns the base URL of the server
func (s *Server) URL() string {
	return s.Server.URL
}

// AddToken registers a token and returns its ID and secret
func (s *Server) AddToken(userID int64, permission spamwatch.Permission) (int, string) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	tok := s.state.addToken(userID, permission)
	return tok.ID, tok.APIToken
}

// RetireToken marks a token as retired; it is rejected from then on
func (s *Server) RetireToken(id int) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if tok, ok := s.state.tokens[id]; ok {
		tok.Retired = true
	}
}

// AddBan puts a user on the ban list as if the given admin token had banned them
func (s *Server) AddBan(userID int64, reason, message string, admin int) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.bans[userID] = &spamwatch.Ban{
		UserID:  userID,
		Reason:  reason,
		Message: message,
		Admin:   admin,
		Date:    s.state.now().Truncate(time.Second),
	}
}

// Bans returns a snapshot of the ban list
func (s *Server) Bans() []spamwatch.Ban {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.sortedBans()
}

// SetNextError makes the next count requests fail with status and body
func (s *Server) SetNextError(status int, body string, count int) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.failureInjection.nextErrorStatus = status
	s.state.failureInjection.nextErrorBody = body
	s.state.failureInjection.nextErrorCount = count
}

// SetRateLimited answers every request with 429 until the given time.
// A zero time lifts the limit.
func (s *Server) SetRateLimited(until time.Time) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.failureInjection.rateLimitUntil = until
}

// Reset clears all tokens, bans and scheduled failures
func (s *Server) Reset() {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.tokens = make(map[int]*spamwatch.Token)
	s.state.byToken = make(map[string]int)
	s.state.bans = make(map[int64]*spamwatch.Ban)
	s.state.nextTokenID = 1
	s.state.failureInjection = failureInjection{}
}

// addToken must be called with mu held
func (st *serverState) addToken(userID int64, permission spamwatch.Permission) *spamwatch.Token {
	tok := &spamwatch.Token{
		ID:         st.nextTokenID,
		Permission: permission,
		APIToken:   generateRandomToken(),
		UserID:     userID,
	}
	st.nextTokenID++
	st.tokens[tok.ID] = tok
	st.byToken[tok.APIToken] = tok.ID
	return tok
}

// generateRandomToken generates a random token as a hex string
func generateRandomToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func (s *Server) newRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(s.failureMiddleware)
	r.Use(s.tokenAuthMiddleware)

	r.With(s.require(spamwatch.PermissionUser)).Get("/version", s.handleVersion)
	r.With(s.require(spamwatch.PermissionUser)).Get("/stats", s.handleStats)

	r.Route("/tokens", func(r chi.Router) {
		r.With(s.require(spamwatch.PermissionUser)).Get("/self", s.handleSelf)

		r.Group(func(r chi.Router) {
			r.Use(s.require(spamwatch.PermissionRoot))
			r.Get("/", s.handleListTokens)
			r.Post("/", s.handleCreateToken)
			r.Get("/{id}", s.handleGetToken)
			r.Delete("/{id}", s.handleDeleteToken)
		})
	})

	r.Route("/banlist", func(r chi.Router) {
		r.With(s.require(spamwatch.PermissionUser)).Get("/all", s.handleBanIDs)
		r.With(s.require(spamwatch.PermissionUser)).Get("/{id}", s.handleGetBan)

		r.Group(func(r chi.Router) {
			r.Use(s.require(spamwatch.PermissionAdmin))
			r.Get("/", s.handleListBans)
			r.Post("/", s.handleAddBans)
			r.Delete("/{id}", s.handleDeleteBan)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "")
	})

	return r
}
