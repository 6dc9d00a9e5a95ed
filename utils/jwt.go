package utils

import (
	"fmt"
	"time"

	"cmrp/models"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource records which registry issued a token so middleware re-checks the right one.
type TokenSource string

const (
	SourceUser    TokenSource = "user"
	SourceOfficer TokenSource = "officer"
	SourceAdmin   TokenSource = "admin"
)

// Claims carried by every access token; Subject is the principal's email.
type Claims struct {
	UserID string      `json:"uid"`
	Name   string      `json:"name,omitempty"`
	Role   models.Role `json:"role"`
	Source TokenSource `json:"src"`
	jwt.RegisteredClaims
}

// Principal rebuilds the caller identity from the claims.
func (c *Claims) Principal() models.Principal {
	return models.Principal{ID: c.UserID, Email: c.Subject, Name: c.Name, Role: c.Role}
}

// GenerateJWT signs an HS256 token for the principal
func GenerateJWT(p models.Principal, src TokenSource, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: p.ID,
		Name:   p.Name,
		Role:   p.Role,
		Source: src,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseJWT validates signature, algorithm and expiry and returns the claims.
func ParseJWT(tokenString string, secret []byte) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.UserID == "" || claims.Source == "" {
		return nil, fmt.Errorf("token missing identity claims")
	}
	return claims, nil
}
