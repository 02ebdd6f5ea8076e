package invoice

import (
	"context"
	"log/slog"
	"sync"

	"github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/auth"
)

type session struct {
	manager *Manager
	auth    *auth.Broadcaster
}

// Sessions keeps one Manager per authenticated user. Each manager is driven
// by its own auth broadcaster, so signing a user out drops their collection.
type Sessions struct {
	deps   Dependencies
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessions(deps Dependencies, logger *slog.Logger) *Sessions {
	return &Sessions{
		deps:     deps,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// Manager returns the user's manager, creating and loading it on first use.
// A failed load is returned as an error and leaves no session behind.
func (s *Sessions) Manager(ctx context.Context, user *auth.User) (*Manager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[user.ID]; ok {
		return sess.manager, nil
	}

	broadcaster := auth.NewBroadcaster(auth.State{IsLoading: true})
	manager := NewManager(s.deps, s.logger.With("user_id", user.ID))
	manager.Init(ctx, broadcaster)
	broadcaster.SignIn(user)

	// not cached, so the next request retries the load
	if err := manager.LoadErr(); err != nil {
		manager.Dispose()
		return nil, internal.NewPersistenceError("failed to load invoices", err)
	}

	s.sessions[user.ID] = &session{manager: manager, auth: broadcaster}
	s.logger.Info("invoice session started", "user_id", user.ID, "sessions", len(s.sessions))
	return manager, nil
}

// ServiceFor adapts Manager to the handler's ServiceAPI.
func (s *Sessions) ServiceFor(ctx context.Context, user *auth.User) (ServiceAPI, error) {
	m, err := s.Manager(ctx, user)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SignOut clears the user's collection and forgets the session.
func (s *Sessions) SignOut(userID string) {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()

	if !ok {
		return
	}
	sess.auth.SignOut()
	sess.manager.Dispose()
	s.logger.Info("invoice session ended", "user_id", userID)
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close disposes every session.
func (s *Sessions) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.manager.Dispose()
	}
}
