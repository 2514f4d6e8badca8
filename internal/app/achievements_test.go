package app_test

import (
	"testing"

	"techkwiz-quiz-service/internal/app"
	"techkwiz-quiz-service/internal/domain"
)

func TestAchievements(t *testing.T) {
	u := domain.UserRecord{TotalQuizzes: 1, Streak: 3, CorrectAnswers: 10, Coins: 999}
	got := app.Achievements(u)
	if len(got) != 2 || got[0].ID != "first-quiz" || got[1].ID != "streak-starter" {
		t.Fatalf("unexpected achievements %+v", got)
	}

	after := u
	after.Coins = 1000
	after.CorrectAnswers = 50
	fresh := app.NewlyUnlocked(u, after)
	if len(fresh) != 2 || fresh[0].ID != "quiz-master" || fresh[1].ID != "coin-collector" {
		t.Fatalf("unexpected newly unlocked %+v", fresh)
	}
	if len(app.NewlyUnlocked(after, after)) != 0 {
		t.Fatalf("expected nothing new for unchanged user")
	}
}

func TestFirstQuizUnlocksOnFirstCompletion(t *testing.T) {
	if got := app.Achievements(domain.UserRecord{}); len(got) != 0 {
		t.Fatalf("expected no achievements before any quiz, got %+v", got)
	}
	fresh := app.NewlyUnlocked(domain.UserRecord{}, domain.UserRecord{TotalQuizzes: 1})
	if len(fresh) != 1 || fresh[0].ID != "first-quiz" {
		t.Fatalf("expected first-quiz after one completion, got %+v", fresh)
	}
}
