package memory

import (
	"sync"

	"techkwiz-quiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
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
	s.sessions[userID] = session
	return session
}

func (s *SessionStore) Get(userID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

// DeleteIfIdle drops the session unless a quiz is running or an entry fee is held.
func (s *SessionStore) DeleteIfIdle(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	if !ok {
		return
	}
	if session.IsIdle() && session.ChargedCategory() == "" {
		delete(s.sessions, userID)
	}
}
