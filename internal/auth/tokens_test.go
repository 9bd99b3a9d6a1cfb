package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	token, expires, err := issuer.Issue(&User{ID: 7, Email: "admin@example.com", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Fatalf("expected future expiry, got %s", expires)
	}

	p, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.UserID != 7 || p.Email != "admin@example.com" || !p.IsAdmin() {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestTokenIssuerRejectsEmptySecret(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestTokenIssuerRejectsWrongSecret(t *testing.T) {
	a, _ := NewTokenIssuer("secret-a", time.Hour)
	b, _ := NewTokenIssuer("secret-b", time.Hour)
	token, _, err := a.Issue(&User{ID: 1, Email: "a@example.com", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuerRejectsExpired(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := issuer.Issue(&User{ID: 1, Email: "a@example.com", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	issuer.now = time.Now
	if _, err := issuer.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuerRejectsMissingExpiry(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret", time.Hour)
	claims := Claims{Role: "ADMIN", UserID: 1, RegisteredClaims: jwt.RegisteredClaims{Subject: "a@example.com"}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := issuer.Verify(signed); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuerUnknownRoleDowngradesToUser(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret", time.Hour)
	token, _, err := issuer.Issue(&User{ID: 3, Email: "x@example.com", Role: Role("ROOT")})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	p, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Role != RoleUser {
		t.Fatalf("expected USER role, got %s", p.Role)
	}
}
