package reward

import "techkwiz-quiz-service/internal/domain"

// Config holds the coin values the calculator pays out.
type Config struct {
	Coins struct {
		Correct int
		Bonus   int
	}
	Streak struct {
		// Value is paid once per full Window of the streak.
		Value  int
		Window int
	}
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	var cfg Config
	cfg.Coins.Correct = 50
	cfg.Coins.Bonus = 100
	cfg.Streak.Value = 10
	cfg.Streak.Window = 1
	return cfg
}

// QuestionCounter reports how many questions the static bank holds for a category.
type QuestionCounter interface {
	QuestionCount(categoryID string) int
}

// Calculator turns quiz outcomes into coins. It holds no mutable state.
type Calculator struct {
	config  Config
	counter QuestionCounter
}

// NewCalculator creates a calculator. counter may be nil when CategoryMaxCoins is unused.
func NewCalculator(config Config, counter QuestionCounter) *Calculator {
	if config.Streak.Window <= 0 {
		config.Streak.Window = 1
	}
	return &Calculator{config: config, counter: counter}
}

// Config returns the active coin values.
func (c *Calculator) Config() Config {
	return c.config
}

// QuizReward computes the breakdown for a quiz.
// correct counts regular correct answers; bonusCorrect counts correct bonus questions.
func (c *Calculator) QuizReward(correct, total, bonusCorrect, streak int) (domain.RewardBreakdown, error) {
	if correct < 0 || total < 0 || bonusCorrect < 0 || streak < 0 {
		return domain.RewardBreakdown{}, domain.ErrNegativeInput
	}
	if total == 0 {
		return domain.RewardBreakdown{}, nil
	}
	if correct+bonusCorrect > total {
		return domain.RewardBreakdown{}, domain.ErrTooManyCorrect
	}

	b := domain.RewardBreakdown{
		CorrectAnswers: correct * c.config.Coins.Correct,
		BonusQuestions: bonusCorrect * c.config.Coins.Bonus,
		StreakBonus:    (streak / c.config.Streak.Window) * c.config.Streak.Value,
	}
	b.TotalCoins = b.CorrectAnswers + b.BonusQuestions + b.StreakBonus
	return b, nil
}

// QuestionReward is the coin credit for one correctly answered question.
func (c *Calculator) QuestionReward(bonus bool) int {
	var (
		b   domain.RewardBreakdown
		err error
	)
	if bonus {
		b, err = c.QuizReward(0, 1, 1, 0)
	} else {
		b, err = c.QuizReward(1, 1, 0, 0)
	}
	if err != nil {
		return 0
	}
	return b.TotalCoins
}

// CategoryMaxCoins is the coins available from every static question in a category.
func (c *Calculator) CategoryMaxCoins(categoryID string) int {
	if c.counter == nil {
		return 0
	}
	return c.counter.QuestionCount(categoryID) * c.config.Coins.Correct
}

// EarningPotential is the payout of a perfect run of n regular questions with no streak.
func (c *Calculator) EarningPotential(n int) int {
	b, err := c.QuizReward(n, n, 0, 0)
	if err != nil {
		return 0
	}
	return b.TotalCoins
}
