package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/opticshop/optics/pkg/config"
)

var jwtConfig *config.JWTConfig

// ErrNotInitialized is returned when Initialize was not called
var ErrNotInitialized = errors.New("JWT configuration not initialized")

// TenantClaims carries the profile identity and its tenant context
type TenantClaims struct {
	Email       string `json:"email"`
	UserID      uint   `json:"user_id"`
	TenantID    *uint  `json:"tenant_id,omitempty"`
	Role        string `json:"role,omitempty"`
	IsSuperuser bool   `json:"is_superuser,omitempty"`
	jwt.RegisteredClaims
}

// Initialize sets up the JWT utility with configuration
func Initialize(cfg *config.JWTConfig) {
	jwtConfig = cfg
}

// GenerateToken signs a token for the profile
func GenerateToken(email string, userID uint, tenantID *uint, role string, isSuperuser bool) (string, error) {
	if jwtConfig == nil {
		return "", ErrNotInitialized
	}

	now := time.Now()
	claims := &TenantClaims{
		Email:       email,
		UserID:      userID,
		TenantID:    tenantID,
		Role:        role,
		IsSuperuser: isSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(Lifetime())),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtConfig.SigningKey))
}

// Lifetime returns how long issued tokens stay valid
func Lifetime() time.Duration {
	if jwtConfig == nil {
		return 0
	}
	return time.Duration(jwtConfig.ExpirationHours) * time.Hour
}

// ValidateToken validates the token and returns the claims
func ValidateToken(tokenString string) (*TenantClaims, error) {
	if jwtConfig == nil {
		return nil, ErrNotInitialized
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&TenantClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtConfig.SigningKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*TenantClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
