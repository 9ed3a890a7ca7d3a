// Package auth guards the status server with a single admin account whose
// bcrypt hash comes from configuration.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDisabled           = errors.New("admin login is not configured")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const (
	cookieName = "gymbook_session"
	sessionTTL = 7 * 24 * time.Hour
)

type Store struct {
	sc           *securecookie.SecureCookie
	username     string
	passwordHash string
}

type ctxKey string

const usernameKey ctxKey = "username"

// NewStore builds the admin store. Nil keys are replaced by random ones, so
// sessions then last only as long as the process.
func NewStore(username, passwordHash string, hashKey, blockKey []byte) *Store {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(64)
	}
	if len(blockKey) == 0 {
		blockKey = securecookie.GenerateRandomKey(32)
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionTTL.Seconds()))
	return &Store{sc: sc, username: username, passwordHash: passwordHash}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	return err == nil
}

// Enabled reports whether an admin password hash is configured.
func (s *Store) Enabled() bool { return s.passwordHash != "" }

func (s *Store) Authenticate(username, password string) error {
	if !s.Enabled() {
		return ErrDisabled
	}
	userOK := secureEq(username, s.username)
	// always run bcrypt so a wrong username costs the same
	pwOK := CheckPassword(s.passwordHash, password)
	if !userOK || !pwOK {
		return ErrInvalidCredentials
	}
	return nil
}

type Session struct {
	Username string
	IssuedAt int64
}

func (s *Store) SetSession(w http.ResponseWriter, r *http.Request, username string) error {
	encoded, err := s.sc.Encode(cookieName, Session{Username: username, IssuedAt: time.Now().Unix()})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(sessionTTL.Seconds()),
	})
	return nil
}

func (s *Store) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (s *Store) GetSession(r *http.Request) (Session, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return Session{}, false
	}
	var sess Session
	if err := s.sc.Decode(cookieName, c.Value, &sess); err != nil {
		return Session{}, false
	}
	// a session for a renamed admin is stale
	if sess.Username == "" || !secureEq(sess.Username, s.username) {
		return Session{}, false
	}
	return sess, true
}

// RequireAuth answers 403 when login is not configured. Without a session,
// browsers are sent to /login and other clients get 401.
func (s *Store) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Enabled() {
			http.Error(w, ErrDisabled.Error(), http.StatusForbidden)
			return
		}
		sess, ok := s.GetSession(r)
		if !ok {
			if r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html") {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), usernameKey, sess.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UsernameFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(usernameKey).(string)
	return u, ok
}

func secureEq(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
