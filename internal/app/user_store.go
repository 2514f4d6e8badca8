package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"techkwiz-quiz-service/internal/domain"
)

const (
	userKeyPrefix = "techkwiz_user:"
	defaultAvatar = "robot"
	guestName     = "Guest"

	// maxHistory bounds the quiz history kept on a user record.
	maxHistory = 50
)

// UserStore persists user records as JSON in the key/value store. Every read goes to the
// store, so several processes can share one backend. A record whose write failed is held
// in unsaved and served from there until a later write succeeds, so a failed write
// degrades to a warning.
type UserStore struct {
	kv            KVStore
	logger        *slog.Logger
	now           func() time.Time
	startingCoins int

	mu      sync.Mutex
	unsaved map[string]domain.UserRecord
}

func NewUserStore(kv KVStore, logger *slog.Logger, startingCoins int) *UserStore {
	return &UserStore{
		kv:            kv,
		logger:        logger,
		now:           time.Now,
		startingCoins: startingCoins,
		unsaved:       make(map[string]domain.UserRecord),
	}
}

// Load returns the user record, or nil when none exists or the stored value is malformed.
func (s *UserStore) Load(ctx context.Context, id string) (*domain.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.loadLocked(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	out := cloneUser(*u)
	return &out, nil
}

// Save writes the record. On a write failure the record is still kept in memory and
// the returned error wraps domain.ErrPersistence.
func (s *UserStore) Save(ctx context.Context, user domain.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, user)
}

// Ensure loads the user or creates a guest record. A blank id gets a generated one.
func (s *UserStore) Ensure(ctx context.Context, id, name string) (domain.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		u, err := s.loadLocked(ctx, id)
		if err != nil {
			return domain.UserRecord{}, err
		}
		if u != nil {
			return cloneUser(*u), nil
		}
	} else {
		id = uuid.NewString()
	}
	if name == "" {
		name = guestName
	}
	user := domain.UserRecord{
		ID:          id,
		Name:        name,
		Avatar:      defaultAvatar,
		Coins:       s.startingCoins,
		Level:       1,
		QuizHistory: []domain.QuizHistoryEntry{},
		JoinDate:    s.now().UTC(),
	}
	err := s.saveLocked(ctx, user)
	return cloneUser(user), err
}

// Update applies fn to the user record and persists the result as one step.
// If fn returns an error nothing is written. A persistence failure returns the
// updated record together with an error wrapping domain.ErrPersistence.
func (s *UserStore) Update(ctx context.Context, id string, fn func(*domain.UserRecord) error) (domain.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.loadLocked(ctx, id)
	if err != nil {
		return domain.UserRecord{}, err
	}
	if current == nil {
		return domain.UserRecord{}, domain.ErrUnknownUser
	}
	next := cloneUser(*current)
	if err := fn(&next); err != nil {
		return cloneUser(*current), err
	}
	if next.Coins < 0 {
		return cloneUser(*current), fmt.Errorf("update user %s: balance would go negative", id)
	}
	err = s.saveLocked(ctx, next)
	return cloneUser(next), err
}

func (s *UserStore) loadLocked(ctx context.Context, id string) (*domain.UserRecord, error) {
	if u, ok := s.unsaved[id]; ok {
		return &u, nil
	}
	raw, ok, err := s.kv.Get(ctx, userKey(id))
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	var u domain.UserRecord
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logger.Warn("discarding malformed user record", "user", id, "error", err)
		return nil, nil
	}
	if u.ID == "" {
		u.ID = id
	}
	normalizeUser(&u)
	return &u, nil
}

func (s *UserStore) saveLocked(ctx context.Context, user domain.UserRecord) error {
	data, err := json.Marshal(user)
	if err != nil {
		s.unsaved[user.ID] = cloneUser(user)
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if err := s.kv.Set(ctx, userKey(user.ID), string(data)); err != nil {
		s.logger.Warn("user record not persisted", "user", user.ID, "error", err)
		s.unsaved[user.ID] = cloneUser(user)
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	delete(s.unsaved, user.ID)
	return nil
}

func normalizeUser(u *domain.UserRecord) {
	if u.QuizHistory == nil {
		u.QuizHistory = []domain.QuizHistoryEntry{}
	}
	if u.Level < 1 {
		u.Level = 1
	}
	if u.Avatar == "" {
		u.Avatar = defaultAvatar
	}
	if u.Coins < 0 {
		u.Coins = 0
	}
}

func cloneUser(u domain.UserRecord) domain.UserRecord {
	u.QuizHistory = slices.Clone(u.QuizHistory)
	if u.QuizHistory == nil {
		u.QuizHistory = []domain.QuizHistoryEntry{}
	}
	return u
}

// recordCompletion applies a finished quiz to the user's stats.
func recordCompletion(u *domain.UserRecord, result QuizResult, completedAt time.Time) {
	u.Coins += result.CompletionCredit
	u.TotalQuizzes++
	u.CorrectAnswers += result.Score
	u.Level = u.TotalQuizzes/5 + 1
	u.Streak = result.FinalStreak
	u.QuizHistory = append(u.QuizHistory, domain.QuizHistoryEntry{
		Category:       result.Category,
		CorrectAnswers: result.Score,
		TotalQuestions: result.Total,
		CoinsEarned:    result.CoinsEarned,
		CompletedAt:    completedAt,
	})
	if len(u.QuizHistory) > maxHistory {
		u.QuizHistory = slices.Clone(u.QuizHistory[len(u.QuizHistory)-maxHistory:])
	}
}

func userKey(id string) string {
	return userKeyPrefix + id
}
