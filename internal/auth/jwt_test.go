package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fpang/storyfairy/internal/story"
)

const testSecret = "test-signing-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestNewJWTAuthenticator_EmptySecret(t *testing.T) {
	if _, err := NewJWTAuthenticator(""); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestAuthenticate(t *testing.T) {
	a, _ := NewJWTAuthenticator(testSecret)
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		header  string
		value   string
		want    string
		wantErr error
	}{
		{
			name:   "bearer sub",
			header: "Authorization",
			value:  "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "user-1", "oid": "oid-1", "exp": future}),
			want:   "user-1",
		},
		{
			name:   "custom header oid",
			header: TokenHeader,
			value:  sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"oid": "oid-1", "name": "Ada", "exp": future}),
			want:   "oid-1",
		},
		{
			name:   "name fallback",
			header: TokenHeader,
			value:  "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"name": "Ada"}),
			want:   "Ada",
		},
		{
			name:    "missing token",
			wantErr: ErrNoToken,
		},
		{
			name:    "expired",
			header:  "Authorization",
			value:   "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantErr: ErrTokenExpired,
		},
		{
			name:    "malformed",
			header:  "Authorization",
			value:   "Bearer not.a.jwt",
			wantErr: ErrTokenMalformed,
		},
		{
			name:    "wrong secret",
			header:  "Authorization",
			value:   "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "u"}),
			wantErr: ErrTokenInvalid,
		},
		{
			name:    "no principal claim",
			header:  "Authorization",
			value:   "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"exp": future}),
			wantErr: ErrTokenInvalid,
		},
		{
			name:    "unsigned token",
			header:  "Authorization",
			value:   "Bearer " + sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"sub": "u"}),
			wantErr: ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/subscription", nil)
			if tt.header != "" {
				r.Header.Set(tt.header, tt.value)
			}
			got, err := a.Authenticate(r)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrUnauthenticated) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("principal = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVerify_IssuerAndAudience(t *testing.T) {
	a, _ := NewJWTAuthenticator(testSecret)
	a.WithIssuer("storyfairy").WithAudience("web")

	good := sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "u", "iss": "storyfairy", "aud": "web"})
	if _, err := a.Verify(good); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	bad := sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "u", "iss": "someone-else", "aud": "web"})
	if _, err := a.Verify(bad); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("wrong issuer should be rejected, got %v", err)
	}
}

type fakeUsers map[string]*story.User

func (f fakeUsers) GetUser(_ context.Context, id string) (*story.User, error) {
	return f[id], nil
}

func TestUserGate(t *testing.T) {
	g := NewUserGate(fakeUsers{
		"active":    {ID: "active", SubscriptionStatus: story.SubscriptionActive},
		"cancelled": {ID: "cancelled", SubscriptionStatus: story.SubscriptionCancelled},
	})
	for id, want := range map[string]bool{"active": true, "cancelled": false, "unknown": false} {
		got, err := g.Entitled(context.Background(), id)
		if err != nil || got != want {
			t.Errorf("Entitled(%q) = %v, %v; want %v", id, got, err, want)
		}
	}
}
