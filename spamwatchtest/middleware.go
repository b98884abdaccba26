package spamwatchtest

import (
	"context"
	"net/http"
	"strings"

	"github.com/s0up4200/spamwatch/spamwatch"
)

type contextKey struct{}

// tokenFromContext returns the authenticated token of the request
func tokenFromContext(ctx context.Context) *spamwatch.Token {
	tok, _ := ctx.Value(contextKey{}).(*spamwatch.Token)
	return tok
}

// failureMiddleware serves scheduled failures before any other handling
func (s *Server) failureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.state.mu.Lock()
		fi := &s.state.failureInjection

		if !fi.rateLimitUntil.IsZero() && s.state.now().Before(fi.rateLimitUntil) {
			until := fi.rateLimitUntil.Unix()
			s.state.mu.Unlock()
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Code:  http.StatusTooManyRequests,
				Error: http.StatusText(http.StatusTooManyRequests),
				Until: until,
			})
			return
		}

		if fi.nextErrorCount > 0 {
			fi.nextErrorCount--
			status, body := fi.nextErrorStatus, fi.nextErrorBody
			s.state.mu.Unlock()
			w.WriteHeader(status)
			//nolint:errcheck
			w.Write([]byte(body))
			return
		}
		s.state.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// tokenAuthMiddleware resolves the bearer token. Unknown and retired tokens get 401.
func (s *Server) tokenAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || secret == "" {
			writeError(w, http.StatusUnauthorized, "")
			return
		}

		s.state.mu.RLock()
		var tok *spamwatch.Token
		if id, found := s.state.byToken[secret]; found {
			cp := *s.state.tokens[id]
			tok = &cp
		}
		s.state.mu.RUnlock()

		if tok == nil || tok.Retired {
			writeError(w, http.StatusUnauthorized, "")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, tok)))
	})
}

// require rejects tokens below the given permission with 403
func (s *Server) require(level spamwatch.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := tokenFromContext(r.Context())
			if tok == nil || !tok.Permission.AtLeast(level) {
				writeError(w, http.StatusForbidden, "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
