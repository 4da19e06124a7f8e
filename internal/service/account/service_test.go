package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository/memory"
)

func newTestService() (*Service, *memory.Store) {
	store := memory.New()
	return New(store.Users, store.Sessions, time.Hour, nil), store
}

func TestSignupAndLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Signup(ctx, SignupInput{Email: " Shopper@Example.com ", Password: "Abcdefg1", ConfirmPassword: "Abcdefg1"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if u.Email != "shopper@example.com" || u.PasswordHash == "Abcdefg1" {
		t.Fatalf("unexpected user %+v", u)
	}

	got, sess, err := svc.Login(ctx, "shopper@example.com", "Abcdefg1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != u.ID || sess.Token == "" {
		t.Fatalf("unexpected login result user=%+v session=%+v", got, sess)
	}

	authed, err := svc.Authenticate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if authed.ID != u.ID {
		t.Fatalf("expected %s, got %s", u.ID, authed.ID)
	}

	if err := svc.Logout(ctx, sess.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, sess.Token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected invalid session after logout, got %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []SignupInput{
		{Email: "not-an-email", Password: "Abcdefg1", ConfirmPassword: "Abcdefg1"},
		{Email: "a@example.com", Password: "short1A", ConfirmPassword: "short1A"},
		{Email: "a@example.com", Password: "alllowercase1", ConfirmPassword: "alllowercase1"},
		{Email: "a@example.com", Password: "Abcdefg1", ConfirmPassword: "Abcdefg2"},
	}
	for _, in := range cases {
		if _, err := svc.Signup(ctx, in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", in, err)
		}
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	in := SignupInput{Email: "a@example.com", Password: "Abcdefg1", ConfirmPassword: "Abcdefg1"}

	if _, err := svc.Signup(ctx, in); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := svc.Signup(ctx, in); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Signup(ctx, SignupInput{Email: "a@example.com", Password: "Abcdefg1", ConfirmPassword: "Abcdefg1"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	if _, _, err := svc.Login(ctx, "a@example.com", "Wrong1234"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "Abcdefg1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestExpiredSessionIsRemoved(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	if _, err := svc.Signup(ctx, SignupInput{Email: "a@example.com", Password: "Abcdefg1", ConfirmPassword: "Abcdefg1"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	_, sess, err := svc.Login(ctx, "a@example.com", "Abcdefg1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	svc.sessions.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svc.Authenticate(ctx, sess.Token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected invalid session, got %v", err)
	}
	if _, err := store.Sessions.Get(ctx, sess.Token); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected expired session to be deleted, got %v", err)
	}
}
