// Package identity is the identity-provider collaborator: signup, login,
// logout, and a push-based auth-state subscription. The application never
// writes auth state directly; it learns about transitions, including its own
// logout, through the subscription callback.
package identity

import (
	"context"
	"errors"

	"costtracker/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired session")
)

// Provider is the narrow interface consumed by the HTTP layer.
type Provider interface {
	// Signup creates an account and opens a session, returning the identity
	// and its session token.
	Signup(ctx context.Context, email, password string) (core.User, string, error)

	// Login verifies credentials and opens a session.
	Login(ctx context.Context, email, password string) (core.User, string, error)

	// Logout revokes a session. The state transition reaches the
	// application through the auth-state push, not through the return.
	Logout(ctx context.Context, token string) error

	// Resolve returns the identity behind a live session token.
	Resolve(ctx context.Context, token string) (core.User, error)

	// SubscribeAuthState registers fn against a session token. fn fires
	// immediately with the current state (the identity, or nil when the
	// token is dead) and again on every later transition of that session.
	SubscribeAuthState(token string, fn func(*core.User)) (func(), error)
}
