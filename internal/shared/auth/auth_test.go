package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIssuerRoundTrip(t *testing.T) {
	issuer, err := NewIssuer("s3cret", "dev", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	token, err := issuer.Sign("user-1", "u@example.com", "U One")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "u@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestIssuerRejectsForeignAndExpiredTokens(t *testing.T) {
	issuer, _ := NewIssuer("s3cret", "dev", time.Minute)
	other, _ := NewIssuer("different", "dev", time.Minute)

	token, err := other.Sign("user-1", "", "")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}

	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return issued }
	token, err = issuer.Sign("user-1", "", "")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	issuer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
	if _, err := issuer.Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected garbage to be rejected, got %v", err)
	}
}

func TestNewIssuerRequiresSecretInProduction(t *testing.T) {
	if _, err := NewIssuer("", "production", 0); err == nil {
		t.Fatal("expected error without secret in production")
	}
	if _, err := NewIssuer("", "dev", 0); err != nil {
		t.Fatalf("dev should fall back to a development secret: %v", err)
	}
}

func TestContextSession(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := ContextSession{Now: func() time.Time { return now }}

	if _, err := s.CurrentUser(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	ctx := WithUser(context.Background(), User{ID: "user-1", ExpiresAt: now.Add(time.Minute)})
	u, err := s.CurrentUser(ctx)
	if err != nil || u.ID != "user-1" {
		t.Fatalf("expected user-1, got %+v %v", u, err)
	}

	expired := WithUser(context.Background(), User{ID: "user-1", ExpiresAt: now})
	if _, err := s.CurrentUser(expired); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestStaticSession(t *testing.T) {
	if _, err := (StaticSession{}).CurrentUser(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	u, err := StaticSession{User: User{ID: "u"}}.CurrentUser(context.Background())
	if err != nil || u.ID != "u" {
		t.Fatalf("unexpected %+v %v", u, err)
	}
}
