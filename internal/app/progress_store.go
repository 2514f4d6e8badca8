package app

import (
	"context"
	"encoding/json"
	"fmt"

	"techkwiz-quiz-service/internal/domain"
)

const progressKeyPrefix = "quiz_progress:"

// ProgressStore keeps the last lock-in position of a running quiz. It is informational;
// quizzes are not resumed from it.
type ProgressStore struct {
	kv KVStore
}

func NewProgressStore(kv KVStore) *ProgressStore {
	return &ProgressStore{kv: kv}
}

func (s *ProgressStore) Save(ctx context.Context, snap domain.ProgressSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := s.kv.Set(ctx, progressKey(snap.UserID), string(data)); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// Load returns nil when no snapshot exists or it cannot be parsed.
func (s *ProgressStore) Load(ctx context.Context, userID string) (*domain.ProgressSnapshot, error) {
	raw, ok, err := s.kv.Get(ctx, progressKey(userID))
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var snap domain.ProgressSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, nil
	}
	return &snap, nil
}

func (s *ProgressStore) Delete(ctx context.Context, userID string) error {
	if err := s.kv.Delete(ctx, progressKey(userID)); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

func progressKey(userID string) string {
	return progressKeyPrefix + userID
}
