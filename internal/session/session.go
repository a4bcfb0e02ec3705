// Package session owns the bearer credential used for every backend call.
//
// A Session is created once per process, initialized from a TokenStore, and
// torn down by Logout or by Expire when the backend answers 401.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abgdnv/storefront/pkg/auth"
)

// Event describes a session transition.
type Event struct {
	Authenticated bool
	// Expired is set when the backend rejected the credential; the UI should route to login.
	Expired bool
}

// Listener is called synchronously after a transition and must not block.
type Listener func(ctx context.Context, ev Event)

type Session struct {
	mu        sync.RWMutex
	token     string
	store     TokenStore
	listeners []Listener
	now       func() time.Time
	logger    *slog.Logger
}

func New(store TokenStore, logger *slog.Logger) *Session {
	return &Session{
		store:  store,
		now:    time.Now,
		logger: logger.With("component", "session"),
	}
}

// Init loads the persisted token. A JWT that has already expired is discarded.
func (s *Session) Init(ctx context.Context) error {
	token, err := s.store.Load(ctx)
	if errors.Is(err, ErrNoToken) {
		s.logger.DebugContext(ctx, "No persisted session")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if auth.Expired(token, s.now()) {
		s.logger.InfoContext(ctx, "Persisted session token has expired, discarding")
		if err := s.store.Delete(ctx); err != nil {
			return fmt.Errorf("failed to discard expired session: %w", err)
		}
		return nil
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.publish(ctx, Event{Authenticated: true})
	return nil
}

// Token returns the current bearer token, or "" when unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Login persists token and marks the session authenticated.
func (s *Session) Login(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("empty session token")
	}
	if err := s.store.Save(ctx, token); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "Session started")
	s.publish(ctx, Event{Authenticated: true})
	return nil
}

// Logout forgets the token locally and in the store.
func (s *Session) Logout(ctx context.Context) error {
	s.clear()
	err := s.store.Delete(ctx)
	s.logger.InfoContext(ctx, "Session ended")
	s.publish(ctx, Event{})
	if err != nil {
		return fmt.Errorf("failed to delete persisted session: %w", err)
	}
	return nil
}

// Expire is the 401 path for a request sent with token. When token is still the current
// credential it is dropped everywhere and listeners are told to re-authenticate; a 401 for
// a token already replaced by a newer Login is ignored.
func (s *Session) Expire(ctx context.Context, token string) {
	if !s.clearIf(token) {
		s.logger.DebugContext(ctx, "Ignoring rejection of a superseded token")
		return
	}
	if err := s.store.Delete(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete expired session", "error", err)
	}
	s.logger.WarnContext(ctx, "Session expired")
	s.publish(ctx, Event{Expired: true})
}

// Subscribe registers l for future transitions.
func (s *Session) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// clear drops the in-memory token.
func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// clearIf drops the in-memory token only when it equals token, reporting whether it did.
func (s *Session) clearIf(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" || s.token != token {
		return false
	}
	s.token = ""
	return true
}

func (s *Session) publish(ctx context.Context, ev Event) {
	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		l(ctx, ev)
	}
}
