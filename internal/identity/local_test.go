package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"costtracker/internal/core"
)

func newTestProvider() *LocalProvider {
	return NewLocalProvider(NewMemoryUsers(), NewJWTManager("test-secret", time.Hour))
}

func TestSignupAndLogin(t *testing.T) {
	p := newTestProvider()
	ctx := context.Background()

	user, token, err := p.Signup(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if user.UID == "" || token == "" {
		t.Fatal("Signup returned empty uid or token")
	}

	got, _, err := p.Login(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.UID != user.UID {
		t.Fatalf("Login uid = %s, want %s", got.UID, user.UID)
	}
}

func TestSignupRejects(t *testing.T) {
	p := newTestProvider()
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"bad email", "not-an-email", "hunter22", core.ErrInvalidEmail},
		{"short password", "bob@example.com", "abc", ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := p.Signup(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Signup error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("duplicate email", func(t *testing.T) {
		if _, _, err := p.Signup(ctx, "carol@example.com", "hunter22"); err != nil {
			t.Fatalf("first Signup: %v", err)
		}
		_, _, err := p.Signup(ctx, "carol@example.com", "other-pass")
		if !errors.Is(err, ErrEmailTaken) {
			t.Fatalf("duplicate Signup error = %v, want %v", err, ErrEmailTaken)
		}
	})
}

func TestLoginWrongPassword(t *testing.T) {
	p := newTestProvider()
	ctx := context.Background()

	if _, _, err := p.Signup(ctx, "dave@example.com", "hunter22"); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	_, _, err := p.Login(ctx, "dave@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login error = %v, want %v", err, ErrInvalidCredentials)
	}
	_, _, err = p.Login(ctx, "nobody@example.com", "hunter22")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user Login error = %v, want %v", err, ErrInvalidCredentials)
	}
}

func TestSubscribeAuthStatePushesCurrentState(t *testing.T) {
	p := newTestProvider()
	ctx := context.Background()

	_, token, err := p.Signup(ctx, "erin@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	var pushes []*core.User
	unsub, err := p.SubscribeAuthState(token, func(u *core.User) {
		pushes = append(pushes, u)
	})
	if err != nil {
		t.Fatalf("SubscribeAuthState: %v", err)
	}
	defer unsub()

	if len(pushes) != 1 || pushes[0] == nil {
		t.Fatalf("expected initial authenticated push, got %v", pushes)
	}
	if pushes[0].Email != "erin@example.com" {
		t.Fatalf("pushed email = %s", pushes[0].Email)
	}
}

func TestLogoutPushesNilAndRevokes(t *testing.T) {
	p := newTestProvider()
	ctx := context.Background()

	_, token, err := p.Signup(ctx, "frank@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	var pushes []*core.User
	unsub, err := p.SubscribeAuthState(token, func(u *core.User) {
		pushes = append(pushes, u)
	})
	if err != nil {
		t.Fatalf("SubscribeAuthState: %v", err)
	}
	defer unsub()

	if err := p.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if len(pushes) != 2 || pushes[1] != nil {
		t.Fatalf("expected nil push after logout, got %v", pushes)
	}
	if _, err := p.Resolve(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Resolve after logout = %v, want %v", err, ErrInvalidToken)
	}
}

func TestSubscribeWithDeadToken(t *testing.T) {
	p := newTestProvider()

	var pushes []*core.User
	unsub, err := p.SubscribeAuthState("garbage-token", func(u *core.User) {
		pushes = append(pushes, u)
	})
	if err != nil {
		t.Fatalf("SubscribeAuthState: %v", err)
	}
	defer unsub()

	if len(pushes) != 1 || pushes[0] != nil {
		t.Fatalf("expected initial nil push for dead token, got %v", pushes)
	}
}
