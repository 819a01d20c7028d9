package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken   = errors.New("auth: missing bearer token")
	ErrMalformedToken = errors.New("auth: malformed authorization header")
	ErrInvalidToken   = errors.New("auth: invalid or expired token")
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = time.Hour

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Identity is what a verified token tells us about the caller.
type Identity struct {
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer signs and verifies HS256 bearer tokens. Tokens are not stored;
// verification is stateless.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Issuer)

// WithClock replaces the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(secret string, ttl time.Duration, opts ...Option) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	i := &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Issuer) Issue(email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", errors.New("auth: email claim is required")
	}
	now := i.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a raw token.
func (i *Issuer) Verify(token string) (Identity, error) {
	var claims Claims
	t, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !t.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Email == "" {
		return Identity{}, ErrInvalidToken
	}

	id := Identity{Email: claims.Email, ExpiresAt: claims.ExpiresAt.Time}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	return id, nil
}

// BearerToken pulls the credential out of an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || token == "" || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedToken
	}
	return token, nil
}
