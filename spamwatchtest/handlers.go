package spamwatchtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/s0up4200/spamwatch/spamwatch"
)

// ServerVersion is the version reported by GET /version
var ServerVersion = spamwatch.Version{Major: 0, Minor: 3, Patch: 0, Version: "0.3.0"}

// errorResponse is the JSON error body of the API
type errorResponse struct {
	Code   int    `json:"code"`
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	Until  int64  `json:"until,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, errorResponse{
		Code:   status,
		Error:  http.StatusText(status),
		Reason: reason,
	})
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ServerVersion)
}

// handleStats handles GET /stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	count := len(s.state.bans)
	s.state.mu.RUnlock()

	writeJSON(w, http.StatusOK, spamwatch.Stats{TotalBanCount: int64(count)})
}

// handleSelf handles GET /tokens/self
func (s *Server) handleSelf(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tokenFromContext(r.Context()))
}

// handleListTokens handles GET /tokens
func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	tokens := make([]spamwatch.Token, 0, len(s.state.tokens))
	for _, tok := range s.state.tokens {
		tokens = append(tokens, *tok)
	}
	s.state.mu.RUnlock()

	slices.SortFunc(tokens, func(a, b spamwatch.Token) int { return a.ID - b.ID })
	writeJSON(w, http.StatusOK, tokens)
}

// handleCreateToken handles POST /tokens
func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     int64  `json:"id"`
		Permission string `json:"permission"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	permission, err := spamwatch.ParsePermission(req.Permission)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown permission %q", req.Permission))
		return
	}

	s.state.mu.Lock()
	tok := *s.state.addToken(req.UserID, permission)
	s.state.mu.Unlock()

	writeJSON(w, http.StatusCreated, tok)
}

// handleGetToken handles GET /tokens/{id}
func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r)
	if !ok {
		return
	}

	s.state.mu.RLock()
	tok, found := s.state.tokens[id]
	var cp spamwatch.Token
	if found {
		cp = *tok
	}
	s.state.mu.RUnlock()

	if !found {
		writeError(w, http.StatusNotFound, "")
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

// handleDeleteToken handles DELETE /tokens/{id}. The token is retired, not removed.
func (s *Server) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r)
	if !ok {
		return
	}

	s.state.mu.Lock()
	tok, found := s.state.tokens[id]
	if found {
		tok.Retired = true
	}
	s.state.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBanIDs handles GET /banlist/all
func (s *Server) handleBanIDs(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	ids := make([]int64, 0, len(s.state.bans))
	for id := range s.state.bans {
		ids = append(ids, id)
	}
	s.state.mu.RUnlock()

	slices.Sort(ids)

	var b strings.Builder
	for _, id := range ids {
		b.WriteString(strconv.FormatInt(id, 10))
		b.WriteByte('\n')
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	w.Write([]byte(b.String()))
}

// handleGetBan handles GET /banlist/{id}
func (s *Server) handleGetBan(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	s.state.mu.RLock()
	ban, found := s.state.bans[userID]
	var cp spamwatch.Ban
	if found {
		cp = *ban
	}
	s.state.mu.RUnlock()

	if !found {
		writeError(w, http.StatusNotFound, "")
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

// handleListBans handles GET /banlist
func (s *Server) handleListBans(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	bans := s.state.sortedBans()
	s.state.mu.RUnlock()

	writeJSON(w, http.StatusOK, bans)
}

// handleAddBans handles POST /banlist
func (s *Server) handleAddBans(w http.ResponseWriter, r *http.Request) {
	var reqs []spamwatch.BanRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a list of bans")
		return
	}
	for i, req := range reqs {
		if req.UserID <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("ban %d: id is required", i))
			return
		}
		if strings.TrimSpace(req.Reason) == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("ban %d: reason is required", i))
			return
		}
	}

	admin := tokenFromContext(r.Context()).ID

	s.state.mu.Lock()
	for _, req := range reqs {
		s.state.bans[req.UserID] = &spamwatch.Ban{
			UserID:  req.UserID,
			Reason:  req.Reason,
			Message: req.Message,
			Admin:   admin,
			Date:    s.state.now().Truncate(time.Second),
		}
	}
	s.state.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
}

// handleDeleteBan handles DELETE /banlist/{id}
func (s *Server) handleDeleteBan(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	s.state.mu.Lock()
	_, found := s.state.bans[userID]
	delete(s.state.bans, userID)
	s.state.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sortedBans must be called with mu held
func (st *serverState) sortedBans() []spamwatch.Ban {
	bans := make([]spamwatch.Ban, 0, len(st.bans))
	for _, b := range st.bans {
		bans = append(bans, *b)
	}
	slices.SortFunc(bans, func(a, b spamwatch.Ban) int {
		switch {
		case a.UserID < b.UserID:
			return -1
		case a.UserID > b.UserID:
			return 1
		}
		return 0
	})
	return bans
}

func intParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return 0, false
	}
	return id, true
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return 0, false
	}
	return id, true
}
