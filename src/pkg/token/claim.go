package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Claim struct {
	Metadata Metadata `json:"metadata"`
	jwt.RegisteredClaims
}

type Metadata struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
}

// Sign issues an HS256 token for userID valid for ttl.
func Sign(secret, issuer, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claim := Claim{
		Metadata: Metadata{UserID: userID},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claim).SignedString([]byte(secret))
}

func Parse(secret, raw string) (*Claim, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claim{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claim, ok := parsed.Claims.(*Claim)
	if !ok || !parsed.Valid || claim.Metadata.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claim, nil
}
