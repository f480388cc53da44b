// Package auth issues and resolves opaque bearer tokens and hashes passwords.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campuslink/commons/internal/cache"
)

// ErrInvalidToken is returned for unknown, revoked or expired tokens
var ErrInvalidToken = errors.New("invalid or expired token")

// Session is what a token resolves to
type Session struct {
	UserID   string    `json:"userId"`
	IssuedAt time.Time `json:"issuedAt"`
}

// TokenStore persists sessions keyed by token
type TokenStore interface {
	Save(ctx context.Context, token string, session Session, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (Session, error)
	Revoke(ctx context.Context, token string) error
}

// NewTokenStore picks Redis when available and process memory otherwise
func NewTokenStore(c *cache.Cache) TokenStore {
	if c == nil {
		return NewMemoryTokenStore()
	}
	return &RedisTokenStore{cache: c}
}

// RedisTokenStore keeps sessions in Redis with a TTL
type RedisTokenStore struct {
	cache *cache.Cache
}

func sessionKey(token string) string {
	return "session:" + token
}

// Save stores the session
func (s *RedisTokenStore) Save(ctx context.Context, token string, session Session, ttl time.Duration) error {
	return s.cache.SetJSON(ctx, sessionKey(token), session, ttl)
}

// Lookup loads the session
func (s *RedisTokenStore) Lookup(ctx context.Context, token string) (Session, error) {
	var session Session
	err := s.cache.GetJSON(ctx, sessionKey(token), &session)
	if errors.Is(err, cache.ErrMiss) {
		return Session{}, ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

// Revoke deletes the session
func (s *RedisTokenStore) Revoke(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, sessionKey(token))
}

type memorySession struct {
	session Session
	expires time.Time
}

// MemoryTokenStore keeps sessions in process memory. Sessions do not survive a restart.
type MemoryTokenStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

// NewMemoryTokenStore creates an empty in-memory store
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

// Save stores the session and sweeps out expired ones
func (s *MemoryTokenStore) Save(_ context.Context, token string, session Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for t, entry := range s.sessions {
		if !now.Before(entry.expires) {
			delete(s.sessions, t)
		}
	}
	s.sessions[token] = memorySession{session: session, expires: now.Add(ttl)}
	return nil
}

// Lookup loads the session, evicting it when expired
func (s *MemoryTokenStore) Lookup(_ context.Context, token string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrInvalidToken
	}
	if !s.now().Before(entry.expires) {
		delete(s.sessions, token)
		return Session{}, ErrInvalidToken
	}
	return entry.session, nil
}

// Revoke deletes the session
func (s *MemoryTokenStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// Issuer mints tokens with a fixed lifetime
type Issuer struct {
	store TokenStore
	ttl   time.Duration
}

// NewIssuer creates an issuer over store
func NewIssuer(store TokenStore, ttl time.Duration) *Issuer {
	return &Issuer{store: store, ttl: ttl}
}

// Issue creates a new token for userID
func (i *Issuer) Issue(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	session := Session{UserID: userID, IssuedAt: time.Now().UTC()}
	if err := i.store.Save(ctx, token, session, i.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the user id behind token
func (i *Issuer) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	session, err := i.store.Lookup(ctx, token)
	if err != nil {
		return "", err
	}
	return session.UserID, nil
}

// Revoke invalidates token
func (i *Issuer) Revoke(ctx context.Context, token string) error {
	return i.store.Revoke(ctx, token)
}
