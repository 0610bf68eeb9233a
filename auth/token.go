// Package auth turns bearer tokens into leave.Caller identities.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

var (
	ErrInvalidToken = generic.NewError(generic.KindUnauthorized, "Invalid token")
	ErrTokenExpired = generic.NewError(generic.KindUnauthorized, "Token expired")
)

// Claims carries the caller's role next to the standard claims. The user id
// is the subject.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens with one shared secret.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret, issuer string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for the caller.
func (t *Tokens) Issue(c leave.Caller) (string, error) {
	now := t.now()
	claims := Claims{
		Role: string(c.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token and returns its caller.
func (t *Tokens) Verify(raw string) (leave.Caller, error) {
	var claims Claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return leave.Caller{}, generic.Wrap(generic.KindUnauthorized, ErrTokenExpired.Message, err)
		}
		return leave.Caller{}, generic.Wrap(generic.KindUnauthorized, ErrInvalidToken.Message, err)
	}
	if !token.Valid || claims.Subject == "" {
		return leave.Caller{}, ErrInvalidToken
	}

	role := leave.Role(claims.Role)
	if !role.Valid() {
		return leave.Caller{}, generic.NewError(generic.KindUnauthorized, "Unknown role in token")
	}
	return leave.Caller{ID: claims.Subject, Role: role}, nil
}
