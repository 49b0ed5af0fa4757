package utils // package utils provides token signing, password hashing and random helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every reason a session token is refused: bad
// encoding, wrong algorithm, bad signature, missing claims or expiry.
// Callers are not told which one applied.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken is a signed session token and its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// SessionClaims is the token payload: the user id travels in "sub".
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTSigner issues and verifies HS256 session tokens.
type JWTSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTSigner(secret string, ttl time.Duration) *JWTSigner {
	return &JWTSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for issuing and checking expiry.
func (s *JWTSigner) WithClock(now func() time.Time) *JWTSigner {
	s.now = now
	return s
}

// Sign builds a token for userID expiring ttl after now. Both instants are
// cut to whole seconds, the resolution of the iat and exp claims, so the
// returned Exp is exactly the signed exp.
func (s *JWTSigner) Sign(userID, role string) (AccessToken, error) {
	now := s.now().UTC().Truncate(time.Second)
	exp := now.Add(s.ttl)
	claims := SessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Verify checks signature and expiry and returns the embedded identity.
// Expiry is compared at whole-second granularity: a token with exp=E is
// accepted anywhere inside second E and refused from E+1. The one second
// leeway is what keeps second E itself valid.
func (s *JWTSigner) Verify(raw string) (userID, role string, err error) {
	var claims SessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(time.Second),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return "", "", ErrInvalidToken
	}
	if claims.Subject == "" || claims.Role == "" {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.Role, nil
}
