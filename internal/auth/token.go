// Package auth issues and verifies the bearer tokens that carry a resolved
// principal's identity and role.
package auth

import (
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/merako/storefront/internal/domain/user"
)

// Sentinel errors for token verification.
var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims carried by an issued token.
type Claims struct {
	Role user.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and parses HS256 tokens for principals.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token issuer with the given signing secret and TTL.
func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	return &Tokens{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for the principal.
func (t *Tokens) Issue(p *user.Principal) (string, error) {
	now := t.now()
	claims := &Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID(), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			Issuer:    "storefront",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Parse verifies a token and returns the principal's role and account ID.
func (t *Tokens) Parse(tokenString string) (user.Role, int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return t.now() }))
	if err != nil || !token.Valid {
		return "", 0, ErrInvalidToken
	}

	if claims.Role != user.RoleUser && claims.Role != user.RoleAdmin {
		return "", 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return "", 0, ErrInvalidToken
	}
	return claims.Role, id, nil
}
