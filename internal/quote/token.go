package quote

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "alarm-configurator"

// QuoteClaims travel with a quote to the estimate system, which verifies
// the total and fingerprint it receives.
type QuoteClaims struct {
	QuoteID     string `json:"quote_id"`
	Total       string `json:"total"`
	Fingerprint string `json:"fingerprint"`
	jwt.RegisteredClaims
}

type TokenSigner struct {
	secretKey []byte
	ttl       time.Duration
}

func NewTokenSigner(secretKey string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{
		secretKey: []byte(secretKey),
		ttl:       ttl,
	}
}

// Sign issues an HS256 token for q
func (s *TokenSigner) Sign(q *Quote) (string, error) {
	now := time.Now()
	claims := QuoteClaims{
		QuoteID:     q.ID.String(),
		Total:       q.Total.StringFixed(2),
		Fingerprint: q.Fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   q.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Verify validates and parses a quote token
func (s *TokenSigner) Verify(tokenString string) (*QuoteClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &QuoteClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*QuoteClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
