package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "share_places_test_jwt_secret_key_123456"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	svc := newTestTokenService(t)

	token, err := svc.Issue("u1", "test@test.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "test@test.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Fatalf("expected one hour lifetime, got %s", got)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := newTestTokenService(t)
	issuedAt := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.Issue("u1", "test@test.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	svc.now = time.Now
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	svc := newTestTokenService(t)
	other, err := NewTokenService("another_secret_that_is_long_enough_1234", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, err := other.Issue("u1", "test@test.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	svc := newTestTokenService(t)
	claims := Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    jwtIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := svc.Verify(token); err == nil {
		t.Fatalf("expected HS512 token to be rejected")
	}
}

func TestNewTokenServiceRejectsShortSecret(t *testing.T) {
	if _, err := NewTokenService("short", time.Hour); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}

func TestPasswordHasher(t *testing.T) {
	hasher := NewPasswordHasher(4)
	hashed, err := hasher.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hashed == "secret123" {
		t.Fatalf("hash must not equal plaintext")
	}
	if !hasher.Matches(hashed, "secret123") {
		t.Fatalf("expected password to match")
	}
	if hasher.Matches(hashed, "wrong") {
		t.Fatalf("expected wrong password to fail")
	}
}
