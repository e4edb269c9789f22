package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yourorg/taskboard/internal/domain"
	"github.com/yourorg/taskboard/internal/security/auth"
)

func newAuthService() (*AuthService, *memUserRepo, *memTokenRepo) {
	users := newMemUserRepo()
	tokens := newMemTokenRepo()
	tm := auth.NewTokenManager("secret", "taskboard-test")
	return NewAuthService(users, tokens, tm, time.Hour, nil), users, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	s, _, _ := newAuthService()
	ctx := context.Background()

	user, err := s.Register(RegisterInput{Name: "Ann", Email: "ann@x.com", Password: "secret12"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected user id")
	}
	if user.PasswordHash == "secret12" {
		t.Fatalf("password must be stored hashed")
	}

	token, err := s.Login(ctx, LoginInput{Email: "ann@x.com", Password: "secret12"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token on login")
	}

	resolved, err := s.ResolveToken(ctx, token)
	if err != nil {
		t.Fatalf("resolve token failed: %v", err)
	}
	if resolved.ID != user.ID {
		t.Fatalf("token resolved to %s, want %s", resolved.ID, user.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s, _, _ := newAuthService()

	if _, err := s.Register(RegisterInput{Name: "Ann", Email: "ann@x.com", Password: "secret12"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, err := s.Register(RegisterInput{Name: "Other Ann", Email: "ann@x.com", Password: "secret34"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.Fields["email"]; !ok {
		t.Fatalf("expected email field error, got %v", verr.Fields)
	}
}

func TestRegisterValidation(t *testing.T) {
	s, _, _ := newAuthService()

	_, err := s.Register(RegisterInput{Name: "Ann", Email: "not-an-email", Password: "short"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.Fields["email"]; !ok {
		t.Fatalf("expected email error, got %v", verr.Fields)
	}
	if _, ok := verr.Fields["password"]; !ok {
		t.Fatalf("expected password error, got %v", verr.Fields)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	s, _, _ := newAuthService()
	ctx := context.Background()

	if _, err := s.Register(RegisterInput{Name: "Ann", Email: "ann@x.com", Password: "secret12"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Wrong password and unknown email must produce the same field error so
	// responses never reveal which accounts exist.
	for _, input := range []LoginInput{
		{Email: "ann@x.com", Password: "wrong-password"},
		{Email: "nobody@x.com", Password: "secret12"},
	} {
		_, err := s.Login(ctx, input)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected validation error for %s, got %v", input.Email, err)
		}
		msgs, ok := verr.Fields["password"]
		if !ok || len(msgs) == 0 || msgs[0] != "Invalid password." {
			t.Fatalf("expected password error, got %v", verr.Fields)
		}
	}
}

func TestResolveRevokedToken(t *testing.T) {
	s, _, tokens := newAuthService()
	ctx := context.Background()

	if _, err := s.Register(RegisterInput{Name: "Ann", Email: "ann@x.com", Password: "secret12"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	token, err := s.Login(ctx, LoginInput{Email: "ann@x.com", Password: "secret12"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Revoke the only live token and the bearer must stop resolving.
	for jti := range tokens.live {
		if err := tokens.Revoke(ctx, jti); err != nil {
			t.Fatalf("revoke failed: %v", err)
		}
	}

	if _, err := s.ResolveToken(ctx, token); err == nil {
		t.Fatalf("expected revoked token to fail resolution")
	}
}

func TestResolveGarbageToken(t *testing.T) {
	s, _, _ := newAuthService()
	if _, err := s.ResolveToken(context.Background(), "not-a-token"); err == nil {
		t.Fatalf("expected garbage token to fail")
	}
}
