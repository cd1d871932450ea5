package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/agendalink/server/internal/model/user"
)

func TestMintVerifyRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	identity := user.Identity{ID: "u1", Name: "Maria", Role: user.RoleUser}

	token, err := svc.Mint(identity)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	got, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if got != identity {
		t.Fatalf("expected %+v, got %+v", identity, got)
	}
}

func TestVerifyRejectsEmptyToken(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	if _, err := svc.Verify("  "); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	if _, err := svc.Verify("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	minter := NewTokenService("secret-a", time.Hour)
	verifier := NewTokenService("secret-b", time.Hour)

	token, err := minter.Mint(user.Identity{ID: "u1", Name: "Maria", Role: user.RoleUser})
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	svc.now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }

	token, err := svc.Mint(user.Identity{ID: "u1", Name: "Maria", Role: user.RoleUser})
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	svc.now = func() time.Time { return time.Date(2025, 1, 1, 14, 0, 0, 0, time.UTC) }
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Mint(user.Identity{ID: "u1", Name: "Maria", Role: "superuser"})
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for unknown role, got %v", err)
	}
}
