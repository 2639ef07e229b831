package auth

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoSession means the request carries no authenticated user.
	ErrNoSession = errors.New("no active session")
	// ErrSessionExpired means the session was valid once but has lapsed.
	ErrSessionExpired = errors.New("session expired")
)

// User is the authenticated caller.
type User struct {
	ID        string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// SessionProvider answers who the current user is and whether the session is
// still valid.
type SessionProvider interface {
	CurrentUser(ctx context.Context) (User, error)
}

type userKey struct{}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromClaims converts verified claims into a User.
func UserFromClaims(c Claims) User {
	u := User{ID: c.Subject, Email: c.Email, Name: c.Name}
	if c.ExpiresAt != nil {
		u.ExpiresAt = c.ExpiresAt.Time
	}
	return u
}

// ContextSession reads the user placed in the context by the auth middleware.
type ContextSession struct {
	Now func() time.Time
}

// CurrentUser returns the context user, rejecting missing or lapsed sessions.
func (s ContextSession) CurrentUser(ctx context.Context) (User, error) {
	u, ok := ctx.Value(userKey{}).(User)
	if !ok || u.ID == "" {
		return User{}, ErrNoSession
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if !u.ExpiresAt.IsZero() && !now().Before(u.ExpiresAt) {
		return User{}, ErrSessionExpired
	}
	return u, nil
}

// StaticSession always reports the same user or error.
type StaticSession struct {
	User User
	Err  error
}

func (s StaticSession) CurrentUser(context.Context) (User, error) {
	if s.Err != nil {
		return User{}, s.Err
	}
	if s.User.ID == "" {
		return User{}, ErrNoSession
	}
	return s.User, nil
}

var (
	_ SessionProvider = ContextSession{}
	_ SessionProvider = StaticSession{}
)
