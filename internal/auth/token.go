package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agendalink/server/internal/model/user"
)

// ErrInvalidToken covers missing, malformed, expired, and badly signed
// tokens. Callers only need to know the credential was rejected; the log
// carries the detail.
var ErrInvalidToken = errors.New("invalid token")

// tokenClaims is the internal claims type used for JWT parsing.
type tokenClaims struct {
	jwt.RegisteredClaims
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// TokenService mints and verifies the signed tokens that authenticate both
// REST requests and websocket sessions.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService builds a service signing with the given HS256 secret.
// Tokens expire after ttl.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Mint issues a signed token carrying the identity's id, name, and role.
func (t *TokenService) Mint(identity user.Identity) (string, error) {
	now := t.now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		ID:   identity.ID,
		Name: identity.Name,
		Role: string(identity.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a presented token and returns the identity it carries.
// All failures collapse into ErrInvalidToken.
func (t *TokenService) Verify(token string) (user.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Identity{}, fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return user.Identity{}, mapJWTError(err)
	}

	id := claims.ID
	if id == "" {
		id = claims.Subject
	}
	role := user.Role(claims.Role)
	if id == "" || !role.Valid() {
		return user.Identity{}, fmt.Errorf("%w: missing identity claims", ErrInvalidToken)
	}

	return user.Identity{ID: id, Name: claims.Name, Role: role}, nil
}

// mapJWTError translates jwt library errors into the package error.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: token is expired", ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: signature is invalid", ErrInvalidToken)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}
