package utils

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessTokenTTL  = 2 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour

	accessIssuer  = "taproom-backend"
	refreshIssuer = "taproom-refresh"
)

var ErrWrongTokenKind = errors.New("wrong token kind")

type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

func getJWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		panic("FATAL: JWT_SECRET environment variable is not set. Refusing to start with an insecure configuration.")
	}
	return secret
}

func sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(getJWTSecret()))
}

func newClaims(userID uuid.UUID, email, role, issuer string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
}

func GenerateToken(userID uuid.UUID, email, role string) (string, error) {
	return sign(newClaims(userID, email, role, accessIssuer, AccessTokenTTL))
}

// GenerateRefreshToken returns the signed token and its jti. The jti is what
// gets persisted so a logout can revoke the token server-side.
func GenerateRefreshToken(userID uuid.UUID, email, role string) (string, string, error) {
	claims := newClaims(userID, email, role, refreshIssuer, RefreshTokenTTL)
	signed, err := sign(claims)
	if err != nil {
		return "", "", err
	}
	return signed, claims.ID, nil
}

func parse(tokenString string) (*Claims, error) {
	secret := getJWTSecret()

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// ValidateToken accepts access tokens only.
func ValidateToken(tokenString string) (*Claims, error) {
	claims, err := parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Issuer != accessIssuer {
		return nil, ErrWrongTokenKind
	}
	return claims, nil
}

func ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Issuer != refreshIssuer {
		return nil, ErrWrongTokenKind
	}
	return claims, nil
}
