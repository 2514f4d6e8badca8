package redis

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"techkwiz-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions live in a local map; the charged category of each session is mirrored to
// Redis with a TTL so a paid entry survives a restart and is not charged twice.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	logger   *slog.Logger
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		logger:   logger,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(userID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[userID]; ok {
		return session
	}
	session := app.NewSession(userID)
	charged, err := s.client.Get(context.Background(), s.key(userID)).Result()
	switch {
	case err == nil:
		session.RestoreCharge(charged)
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("session charge not restored", "user", userID, "error", err)
	}
	session.Observe(s.persist)
	s.sessions[userID] = session
	return session
}

func (s *SessionStore) Get(userID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

// DeleteIfIdle drops the local session when no quiz is running. A held charge stays in
// Redis until it expires.
func (s *SessionStore) DeleteIfIdle(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	if !ok {
		return
	}
	if session.IsIdle() {
		delete(s.sessions, userID)
	}
}

// persist is best-effort; a lost write only risks a second charge after a restart.
func (s *SessionStore) persist(userID, chargedCategory string) {
	ctx := context.Background()
	var err error
	if chargedCategory == "" {
		err = s.client.Del(ctx, s.key(userID)).Err()
	} else {
		err = s.client.Set(ctx, s.key(userID), chargedCategory, s.ttl).Err()
	}
	if err != nil {
		s.logger.Warn("session charge not persisted", "user", userID, "error", err)
	}
}

func (s *SessionStore) key(userID string) string {
	return "quiz:session:" + userID
}
