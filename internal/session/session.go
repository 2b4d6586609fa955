// Package session persists the authentication token and carries the signed-in
// user to every controller.
package session

import (
	"context"
	"fmt"
	"sync"

	"socialfeed/internal/models"
)

// Store persists a single bearer token. Token returns "" when none is held.
// Stores never check expiry; the backend is the only judge of a stale token.
type Store interface {
	SetToken(ctx context.Context, token string) error
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Session is the explicit authentication context handed to controllers at
// construction. It pairs the token Store with a cached copy of the current user.
type Session struct {
	store Store

	mu   sync.RWMutex
	user *models.User
}

// New creates a Session backed by store.
func New(store Store) *Session {
	return &Session{store: store}
}

// Token returns the stored token, or "" when signed out.
func (s *Session) Token(ctx context.Context) (string, error) {
	token, err := s.store.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("read session token: %w", err)
	}
	return token, nil
}

// HasToken reports whether a token is stored. Store failures count as signed out.
func (s *Session) HasToken(ctx context.Context) bool {
	token, err := s.Token(ctx)
	return err == nil && token != ""
}

// SignIn stores token and forgets any previously cached user.
func (s *Session) SignIn(ctx context.Context, token string) error {
	if err := s.store.SetToken(ctx, token); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}
	s.SetCurrentUser(nil)
	return nil
}

// Logout clears the token and the cached user.
func (s *Session) Logout(ctx context.Context) error {
	s.SetCurrentUser(nil)
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	return nil
}

// CurrentUser returns the cached signed-in user, or nil.
func (s *Session) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// CurrentUserID returns the signed-in user's id, or 0 when unknown.
func (s *Session) CurrentUserID() uint {
	if u := s.CurrentUser(); u != nil {
		return u.ID
	}
	return 0
}

// SetCurrentUser replaces the cached user.
func (s *Session) SetCurrentUser(u *models.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}
