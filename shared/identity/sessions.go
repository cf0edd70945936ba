package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/utils"
)

// MemorySessionStore is an in-process SessionStore for tests and local runs
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.TokenSession
	now      func() time.Time
}

// NewMemorySessionStore creates an empty store. A nil now uses time.Now.
func NewMemorySessionStore(now func() time.Time) *MemorySessionStore {
	if now == nil {
		now = time.Now
	}
	return &MemorySessionStore{sessions: make(map[string]models.TokenSession), now: now}
}

func (s *MemorySessionStore) Create(_ context.Context, accessToken string, identity models.Identity, ttl time.Duration) (*models.TokenSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	session := models.TokenSession{
		Identity:   identity,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  now.Add(ttl),
		SessionID:  uuid.New().String(),
	}
	s.sessions[accessToken] = session
	return &session, nil
}

func (s *MemorySessionStore) Get(_ context.Context, accessToken string) (*models.TokenSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[accessToken]
	if !ok {
		return nil, utils.ErrSessionNotFound
	}
	if session.IsExpired(s.now()) {
		delete(s.sessions, accessToken)
		return nil, utils.ErrSessionExpired
	}
	return &session, nil
}

func (s *MemorySessionStore) Revoke(_ context.Context, accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, accessToken)
	return nil
}

// SessionResolver resolves tokens from the session store alone, for
// services that never talk to the provider
type SessionResolver struct {
	sessions SessionStore
}

// NewSessionResolver creates a resolver on sessions
func NewSessionResolver(sessions SessionStore) *SessionResolver {
	return &SessionResolver{sessions: sessions}
}

// CurrentIdentity returns the identity of a live session, or nil
func (r *SessionResolver) CurrentIdentity(ctx context.Context, accessToken string) (*models.Identity, error) {
	return currentIdentity(ctx, r.sessions, accessToken)
}
