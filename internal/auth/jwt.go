// Package auth identifies callers and decides whether they may use premium
// features. It also resolves provider credentials for local runs.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// ErrUnauthenticated is returned when a request carries no valid token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Token validation failures, all wrapping ErrUnauthenticated.
var (
	ErrNoToken        = fmt.Errorf("%w: no authorization token provided", ErrUnauthenticated)
	ErrTokenExpired   = fmt.Errorf("%w: token expired", ErrUnauthenticated)
	ErrTokenMalformed = fmt.Errorf("%w: token malformed", ErrUnauthenticated)
	ErrTokenInvalid   = fmt.Errorf("%w: token invalid", ErrUnauthenticated)
)

// TokenHeader is the alternate header the web client sends tokens in.
const TokenHeader = "X-My-Auth-Token"

// Authenticator resolves the principal of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// JWTAuthenticator validates HMAC-signed bearer tokens.
type JWTAuthenticator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTAuthenticator creates an authenticator for tokens signed with secret.
func NewJWTAuthenticator(secret string) (*JWTAuthenticator, error) {
	if secret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	return &JWTAuthenticator{secret: []byte(secret)}, nil
}

// WithIssuer requires the iss claim to equal issuer.
func (a *JWTAuthenticator) WithIssuer(issuer string) *JWTAuthenticator {
	a.issuer = issuer
	return a
}

// WithAudience requires the aud claim to contain audience.
func (a *JWTAuthenticator) WithAudience(audience string) *JWTAuthenticator {
	a.audience = audience
	return a
}

// TokenFromRequest extracts a token from the Authorization bearer header or
// the X-My-Auth-Token header.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	tok := strings.TrimSpace(r.Header.Get(TokenHeader))
	if scheme, rest, ok := strings.Cut(tok, " "); ok && strings.EqualFold(scheme, "Bearer") {
		tok = strings.TrimSpace(rest)
	}
	return tok
}

// Authenticate returns the user ID carried by the request's token.
func (a *JWTAuthenticator) Authenticate(r *http.Request) (string, error) {
	tok := TokenFromRequest(r)
	if tok == "" {
		return "", ErrNoToken
	}
	return a.Verify(tok)
}

// Verify checks the token signature and registered claims and returns the
// principal: the first non-empty of sub, oid and name.
func (a *JWTAuthenticator) Verify(tokenString string) (string, error) {
	var opts []jwt.ParserOption
	opts = append(opts, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		log.Debug().Err(err).Str("tokenSnippet", tokenSnippet(tokenString)).Msg("Token rejected")
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", ErrTokenMalformed
		default:
			return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}
	if !token.Valid {
		return "", ErrTokenInvalid
	}

	principal := Principal(claims)
	if principal == "" {
		return "", fmt.Errorf("%w: no subject claim", ErrTokenInvalid)
	}
	return principal, nil
}

// Principal picks the user identifier from claims: sub, then oid, then name.
func Principal(claims jwt.MapClaims) string {
	for _, k := range []string{"sub", "oid", "name"} {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func tokenSnippet(tokenString string) string {
	const limit = 15
	if len(tokenString) > limit {
		return tokenString[:limit] + "..."
	}
	return tokenString
}
