package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the fixed-field bearer claim set: subject (user id) and email
// identify the user, SID binds the token to one server-side session record.
// The token is self-contained and signed; whether the session still exists is
// the gate's business, not the verifier's.
type Claims struct {
	Email string `json:"email"`
	SID   string `json:"sid"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret []byte
	iss    string
	ttl    time.Duration // matches the session lifetime, e.g. 7 days
}

func NewTokenIssuer(secret []byte, iss string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, iss: iss, ttl: ttl}
}

func (s *TokenIssuer) Issue(userID, email, sid string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.ttl)

	claims := &Claims{
		Email: email,
		SID:   sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.iss,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(s.secret)
	return ss, exp, err
}

// ParseAndValidate checks signature, expiry and issuer only. It deliberately
// does not consult the session store; revocation is enforced by composing this
// with the session check in Required.
func (s *TokenIssuer) ParseAndValidate(tokenStr string) (*Claims, error) {
	keyFunc := func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}

	var claims Claims
	tok, err := jwt.ParseWithClaims(
		tokenStr,
		&claims,
		keyFunc,
		jwt.WithIssuer(s.iss),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.SID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
