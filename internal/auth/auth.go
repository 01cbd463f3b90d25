// Package auth resolves the calling user from a bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// DefaultTokenTTL is how long issued tokens stay valid
const DefaultTokenTTL = 30 * 24 * time.Hour

var (
	// ErrMissingToken is returned when a request has no bearer token
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned for tokens that fail verification
	ErrInvalidToken = errors.New("invalid token")
)

type contextKey struct{}

// Authenticator verifies HS256 tokens whose subject is the user id. With no
// secret every request acts as the default user.
type Authenticator struct {
	secret      []byte
	defaultUser string
	log         *logrus.Entry
	now         func() time.Time
}

// New creates an Authenticator
func New(secret, defaultUser string, log *logrus.Entry) *Authenticator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Authenticator{
		secret:      []byte(secret),
		defaultUser: defaultUser,
		log:         log.WithField("component", "auth"),
		now:         time.Now,
	}
}

// Enabled reports whether tokens are required
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// IssueToken signs a token for userID valid for ttl
func (a *Authenticator) IssueToken(userID string, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", errors.New("no signing secret configured")
	}
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns its subject
func (a *Authenticator) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Middleware stores the caller's user id in the request context, rejecting
// requests without a valid token when a secret is configured.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), a.defaultUser)))
			return
		}

		userID, err := a.fromRequest(r)
		if err != nil {
			a.log.WithError(err).WithField("path", r.URL.Path).Debug("rejected request")
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer realm="moneyclip"`)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
	})
}

func (a *Authenticator) fromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return a.Verify(strings.TrimSpace(token))
}

// WithUser returns a context carrying userID
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the user id stored by Middleware
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}
