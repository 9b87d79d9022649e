package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the session cookie set after a successful login.
const CookieName = "fleet_session"

var ErrNoSession = errors.New("no valid session")

// Claims is the session payload. LoggedIn is the only state the dashboard
// needs; Subject records which account logged in.
type Claims struct {
	LoggedIn bool `json:"logged_in"`
	jwt.RegisteredClaims
}

// SessionManager issues and validates HS256-signed session cookies.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessionManager returns a manager signing with secret. An empty secret
// is rejected; use RandomSecret for ephemeral sessions.
func NewSessionManager(secret []byte, ttl time.Duration, secure bool) (*SessionManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("session: secret is required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionManager{secret: secret, ttl: ttl, secure: secure, now: time.Now}, nil
}

// RandomSecret returns 32 random bytes. Sessions signed with it do not
// survive a restart.
func RandomSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("session: generate secret: %w", err)
	}
	return b, nil
}

// Token issues a signed session token for username.
func (m *SessionManager) Token(username string) (string, error) {
	now := m.now().UTC()
	claims := Claims{
		LoggedIn: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate verifies a session token and its logged_in flag.
func (m *SessionManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("session: unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || !claims.LoggedIn {
		return nil, ErrNoSession
	}
	return claims, nil
}

// Issue sets the session cookie on w.
func (m *SessionManager) Issue(w http.ResponseWriter, username string) error {
	token, err := m.Token(username)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest returns the session claims carried by r.
func (m *SessionManager) FromRequest(r *http.Request) (*Claims, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}
	return m.Validate(c.Value)
}

// LoggedIn reports whether r carries a valid session.
func (m *SessionManager) LoggedIn(r *http.Request) bool {
	_, err := m.FromRequest(r)
	return err == nil
}
