package app

import (
	"sync"
	"time"
)

// Session is the per-user play state: which category has been paid for and which
// quiz is running.
type Session struct {
	userID    string
	createdAt time.Time
	now       func() time.Time

	// chargeMu serializes entry-fee charging for this user.
	chargeMu sync.Mutex

	mu              sync.RWMutex
	chargedCategory string
	activeCategory  string
	progression     *Progression
	lastSeen        time.Time
	observer        func(userID, chargedCategory string)
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(userID string) *Session {
	return NewSessionWithClock(userID, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(userID string, now func() time.Time) *Session {
	created := now()
	return &Session{
		userID:    userID,
		createdAt: created,
		now:       now,
		lastSeen:  created,
	}
}

// UserID returns the owner of the session.
func (s *Session) UserID() string {
	return s.userID
}

// ChargedCategory is the category whose entry fee has been paid for the running quiz.
func (s *Session) ChargedCategory() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chargedCategory
}

// RestoreCharge seeds the charged category without notifying the observer.
func (s *Session) RestoreCharge(category string) {
	s.mu.Lock()
	s.chargedCategory = category
	s.mu.Unlock()
}

// Observe registers fn to be told whenever the charged category changes.
func (s *Session) Observe(fn func(userID, chargedCategory string)) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

// LastSeen is the last time the session was touched.
func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// Touch records activity.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

// Active returns the running progression, if any, with its category.
func (s *Session) Active() (*Progression, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.progression == nil {
		return nil, "", false
	}
	return s.progression, s.activeCategory, true
}

// IsIdle reports whether no quiz is running.
func (s *Session) IsIdle() bool {
	p, _, ok := s.Active()
	return !ok || p.Done()
}

func (s *Session) markCharged(category string) {
	s.setCharge(category)
}

func (s *Session) clearCharge() {
	s.setCharge("")
}

func (s *Session) setCharge(category string) {
	s.mu.Lock()
	changed := s.chargedCategory != category
	s.chargedCategory = category
	observer := s.observer
	s.mu.Unlock()
	if changed && observer != nil {
		observer(s.userID, category)
	}
}

func (s *Session) setActive(p *Progression, category string) {
	s.mu.Lock()
	s.progression = p
	s.activeCategory = category
	s.lastSeen = s.now()
	s.mu.Unlock()
}

// finish detaches p if it is still the running quiz and clears the charge.
// It reports whether p was the running quiz.
func (s *Session) finish(p *Progression) bool {
	s.mu.Lock()
	if s.progression != p {
		s.mu.Unlock()
		return false
	}
	s.progression = nil
	s.activeCategory = ""
	s.mu.Unlock()
	s.clearCharge()
	return true
}
