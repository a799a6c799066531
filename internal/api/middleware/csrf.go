package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"sync"
	"time"
)

const (
	csrfTokenLength = 32
	csrfCookieName  = "csrf_token"
	csrfHeaderName  = "X-CSRF-Token"
	csrfTokenExpiry = 24 * time.Hour
)

type csrfToken struct {
	value     string
	expiresAt time.Time
}

// CSRFStore keeps one token per cookie session in memory.
type CSRFStore struct {
	tokens map[string]csrfToken
	mu     sync.Mutex
	now    func() time.Time
}

func NewCSRFStore() *CSRFStore {
	return &CSRFStore{
		tokens: make(map[string]csrfToken),
		now:    time.Now,
	}
}

// Issue returns the live token for sessionID, minting one if needed.
// Expired tokens are swept on the way.
func (s *CSRFStore) Issue(sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if tok, ok := s.tokens[sessionID]; ok && now.Before(tok.expiresAt) {
		return tok.value, nil
	}
	for id, tok := range s.tokens {
		if !now.Before(tok.expiresAt) {
			delete(s.tokens, id)
		}
	}

	buf := make([]byte, csrfTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	value := base64.RawURLEncoding.EncodeToString(buf)
	s.tokens[sessionID] = csrfToken{value: value, expiresAt: now.Add(csrfTokenExpiry)}
	return value, nil
}

func (s *CSRFStore) Validate(sessionID, provided string) bool {
	s.mu.Lock()
	tok, ok := s.tokens[sessionID]
	s.mu.Unlock()

	if !ok || !s.now().Before(tok.expiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(tok.value), []byte(provided)) == 1
}

// CSRF guards mutations authenticated by the token cookie. Requests that
// carry their token in a header are not exposed to CSRF and pass through.
// Safe requests get the csrf_token cookie the client echoes back in
// X-CSRF-Token.
func CSRF(store *CSRFStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := cookieSessionID(r)

			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				if sessionID != "" {
					setCSRFCookie(w, r, store, sessionID)
				}
				next.ServeHTTP(w, r)
				return
			}

			if sessionID == "" || r.Header.Get("Authorization") != "" || r.Header.Get("X-Auth-Token") != "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(csrfHeaderName)
			if provided == "" {
				writeError(w, http.StatusForbidden, "CSRF token missing")
				return
			}
			if !store.Validate(sessionID, provided) {
				writeError(w, http.StatusForbidden, "Invalid CSRF token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setCSRFCookie(w http.ResponseWriter, r *http.Request, store *CSRFStore, sessionID string) {
	if c, err := r.Cookie(csrfCookieName); err == nil && store.Validate(sessionID, c.Value) {
		return
	}
	token, err := store.Issue(sessionID)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false, // read by the client to echo in the header
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(csrfTokenExpiry.Seconds()),
	})
}

// cookieSessionID keys CSRF tokens by the tail of the JWT cookie, which
// carries the signature and so differs per issued token.
func cookieSessionID(r *http.Request) string {
	c, err := r.Cookie(TokenCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	if len(c.Value) > 24 {
		return c.Value[len(c.Value)-24:]
	}
	return c.Value
}
