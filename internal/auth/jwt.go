package auth

import (
	"errors"
	"time"

	"lipa/config"

	"github.com/golang-jwt/jwt/v5"
)

// Roles an operator token may carry.
const (
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid token")

// GenerateAccessToken signs an HS256 token for subject. A zero ttl falls back
// to cfg.AccessExpiry.
func GenerateAccessToken(cfg *config.JWTConfig, subject, role string, ttl time.Duration) (string, error) {
	if cfg.AccessSecret == "" {
		return "", errors.New("jwt access secret is not configured")
	}
	if ttl <= 0 {
		ttl = cfg.AccessExpiry
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    cfg.Issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.AccessSecret))
}

func ParseAccessToken(cfg *config.JWTConfig, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.AccessSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(cfg.Issuer))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
