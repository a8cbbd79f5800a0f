package utils

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func init() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-unit-tests")
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(uuid.New(), "tokengen@test.com", "customer")
	if err != nil {
		t.Fatalf("expected no error generating token, got: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("expected JWT with 2 dots, got %q", token)
	}
}

func TestValidateToken(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateToken(userID, "validate@test.com", "staff")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("expected no error validating token, got: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Email != "validate@test.com" || claims.Role != "staff" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "taproom-backend" {
		t.Errorf("expected issuer 'taproom-backend', got %s", claims.Issuer)
	}
	if claims.ExpiresAt.Sub(claims.IssuedAt.Time) != AccessTokenTTL {
		t.Errorf("expected access ttl %v", AccessTokenTTL)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	claims := newClaims(uuid.New(), "expired@test.com", "customer", accessIssuer, time.Hour)
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	expired, err := sign(claims)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateToken(expired); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	token, _ := GenerateToken(uuid.New(), "a@test.com", "customer")

	os.Setenv("JWT_SECRET", "another-secret")
	defer os.Setenv("JWT_SECRET", "test-secret-key-for-unit-tests")

	if _, err := ValidateToken(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestRefreshTokenKinds(t *testing.T) {
	userID := uuid.New()

	refresh, jti, err := GenerateRefreshToken(userID, "r@test.com", "customer")
	if err != nil {
		t.Fatal(err)
	}
	if jti == "" {
		t.Fatal("expected jti")
	}

	claims, err := ValidateRefreshToken(refresh)
	if err != nil {
		t.Fatalf("expected refresh token to validate, got %v", err)
	}
	if claims.ID != jti || claims.UserID != userID {
		t.Errorf("unexpected refresh claims: %+v", claims)
	}

	if _, err := ValidateToken(refresh); !errors.Is(err, ErrWrongTokenKind) {
		t.Errorf("refresh token must not pass as access token, got %v", err)
	}

	access, _ := GenerateToken(userID, "r@test.com", "customer")
	if _, err := ValidateRefreshToken(access); !errors.Is(err, ErrWrongTokenKind) {
		t.Errorf("access token must not pass as refresh token, got %v", err)
	}
}
