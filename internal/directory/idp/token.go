package idp

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// assertionTTL bounds how long a minted bearer assertion stays valid.
// Each request mints a fresh one, so this only needs to cover clock skew
// plus the round trip.
const assertionTTL = time.Minute

// TokenMinter mints the short-lived HS256 bearer assertions the provider
// admin API expects on every call.
type TokenMinter struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewTokenMinter(signingKey string, issuer string, audience string) *TokenMinter {
	return &TokenMinter{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// Mint signs a fresh assertion. Failures here are provider-call failures
// from the caller's point of view.
func (m *TokenMinter) Mint() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    m.issuer,
		Audience:  []string{m.audience},
		ID:        uuid.NewString(),
	})
	return token.SignedString(m.signingKey)
}
