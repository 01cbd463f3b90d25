package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := UserID(r.Context())
		w.Write([]byte(id))
	})
}

func TestMiddlewareWithoutSecret(t *testing.T) {
	a := New("", "default", nil)
	rec := httptest.NewRecorder()
	a.Middleware(echoUser()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calculation/daily-clip", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "default" {
		t.Errorf("got %d %q, want 200 default", rec.Code, rec.Body.String())
	}
}

func TestMiddlewareWithToken(t *testing.T) {
	a := New("s3cret", "default", nil)
	token, err := a.IssueToken("alice", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"valid token", "Bearer " + token, http.StatusOK, "alice"},
		{"missing header", "", http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized, `{"error":"unauthorized"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/calculation/daily-clip", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			a.Middleware(echoUser()).ServeHTTP(rec, req)
			if rec.Code != tt.code || rec.Body.String() != tt.body {
				t.Errorf("got %d %q, want %d %q", rec.Code, rec.Body.String(), tt.code, tt.body)
			}
		})
	}
}

func TestVerifyRejects(t *testing.T) {
	a := New("s3cret", "default", nil)

	other := New("different", "default", nil)
	forged, _ := other.IssueToken("alice", time.Hour)
	if _, err := a.Verify(forged); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token signed with another secret: got %v", err)
	}

	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := a.IssueToken("alice", time.Hour)
	a.now = time.Now
	if _, err := a.Verify(expired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := a.Verify(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("unsigned token: got %v", err)
	}

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, _ := noSubject.SignedString([]byte("s3cret"))
	if _, err := a.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token without subject: got %v", err)
	}
}

func TestIssueTokenNeedsSecret(t *testing.T) {
	if _, err := New("", "default", nil).IssueToken("alice", time.Hour); err == nil {
		t.Error("expected error without secret")
	}
}
