// Package auth provides the credential collaborators used by the user and
// task services: bcrypt password hashing and HS256 access tokens.
//
// Callers only consume outcomes. Any failure surfaced here is translated into
// an unauthorized_error by the HTTP layer; token internals never leak into
// response bodies.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// CookieName is the cookie carrying the access token for browser clients.
const CookieName = "access_token"

var (
	// ErrNoToken is returned when the request carries no credential.
	ErrNoToken = errors.New("auth: no token")
	// ErrInvalidToken is returned for malformed, forged or unparsable tokens.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrTokenExpired is returned when the token's exp is in the past.
	ErrTokenExpired = errors.New("auth: token expired")
)

// TokenIssuer signs and verifies HS256 access tokens whose subject is the
// numeric user ID.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer. A non-positive ttl defaults to 24h.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL reports the lifetime of issued tokens.
func (ti *TokenIssuer) TTL() time.Duration { return ti.ttl }

// Issue signs a token for userID and returns it with its expiry.
func (ti *TokenIssuer) Issue(userID uint) (string, time.Time, error) {
	now := ti.now().UTC()
	exp := now.Add(ti.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify parses token and returns the user ID it was issued for.
func (ti *TokenIssuer) Verify(token string) (uint, error) {
	if token == "" {
		return 0, ErrNoToken
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ti.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return 0, ErrTokenExpired
	default:
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	return uint(id), nil
}

// ExtractToken reads the credential from "Authorization: Bearer <t>",
// "Authorization: Token <t>" or the access_token cookie, in that order.
func ExtractToken(r *http.Request) (string, error) {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if !ok {
			return "", ErrInvalidToken
		}
		switch strings.ToLower(scheme) {
		case "bearer", "token":
			if tok = strings.TrimSpace(tok); tok != "" {
				return tok, nil
			}
		}
		return "", ErrInvalidToken
	}
	if ck, err := r.Cookie(CookieName); err == nil && ck.Value != "" {
		return ck.Value, nil
	}
	return "", ErrNoToken
}
