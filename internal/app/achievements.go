package app

import "techkwiz-quiz-service/internal/domain"

type achievementRule struct {
	achievement domain.Achievement
	unlocked    func(u domain.UserRecord) bool
}

var achievementRules = []achievementRule{
	{
		achievement: domain.Achievement{ID: "first-quiz", Name: "First Quiz", Description: "Complete your first quiz", Icon: "🏆", Reward: 50},
		unlocked:    func(u domain.UserRecord) bool { return u.TotalQuizzes >= 1 },
	},
	{
		achievement: domain.Achievement{ID: "streak-starter", Name: "Streak Starter", Description: "Answer 3 questions correctly in a row", Icon: "🔥", Reward: 75},
		unlocked:    func(u domain.UserRecord) bool { return u.Streak >= 3 },
	},
	{
		achievement: domain.Achievement{ID: "quiz-master", Name: "Quiz Master", Description: "Answer 50 questions correctly", Icon: "🧠", Reward: 200},
		unlocked:    func(u domain.UserRecord) bool { return u.CorrectAnswers >= 50 },
	},
	{
		achievement: domain.Achievement{ID: "coin-collector", Name: "Coin Collector", Description: "Earn 1000 coins", Icon: "💰", Reward: 150},
		unlocked:    func(u domain.UserRecord) bool { return u.Coins >= 1000 },
	},
}

// Achievements lists what the user has unlocked. Rewards are informational; no coins are credited.
func Achievements(u domain.UserRecord) []domain.Achievement {
	var out []domain.Achievement
	for _, rule := range achievementRules {
		if rule.unlocked(u) {
			out = append(out, rule.achievement)
		}
	}
	return out
}

// NewlyUnlocked lists achievements held by after but not by before.
func NewlyUnlocked(before, after domain.UserRecord) []domain.Achievement {
	var out []domain.Achievement
	for _, rule := range achievementRules {
		if !rule.unlocked(before) && rule.unlocked(after) {
			out = append(out, rule.achievement)
		}
	}
	return out
}
