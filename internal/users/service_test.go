package users

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"resume-screening/internal/shared/auth"
)

func newTestService() *Service {
	svc := NewService(NewMemoryRepo())
	svc.Cost = bcrypt.MinCost
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	t.Setenv("JWT_SECRET", "users-secret")
	svc := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "  Ada@Example.com ", "correct-horse", "Ada")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == "correct-horse" || user.PasswordHash == "" {
		t.Fatalf("password must be stored hashed")
	}

	token, logged, err := svc.Login(ctx, "ADA@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("expected same user, got %s", logged.ID)
	}
	claims, err := auth.VerifyJWT(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.Subject != user.ID {
		t.Fatalf("expected sub %s, got %s", user.ID, claims.Subject)
	}
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@example.com", "password1", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "A@example.com", "password2", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := svc.Register(ctx, "not-an-email", "password1", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for email, got %v", err)
	}
	if _, err := svc.Register(ctx, "b@example.com", "short", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for password, got %v", err)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@example.com", "password1", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.Login(ctx, "a@example.com", "password2"); !errors.Is(err, ErrBadLogin) {
		t.Fatalf("expected ErrBadLogin, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "missing@example.com", "password1"); !errors.Is(err, ErrBadLogin) {
		t.Fatalf("expected ErrBadLogin for unknown email, got %v", err)
	}
}
