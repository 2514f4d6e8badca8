package domain

import "time"

// Difficulty grades a question.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// Section hints where a question is meant to be shown.
type Section string

const (
	SectionOnboarding Section = "onboarding"
	SectionHomepage   Section = "homepage"
	SectionCategory   Section = "category"
	SectionGeneral    Section = "general"
)

// Valid reports whether s is empty or a known section.
func (s Section) Valid() bool {
	switch s {
	case "", SectionOnboarding, SectionHomepage, SectionCategory, SectionGeneral:
		return true
	}
	return false
}

// QuestionType marks bonus questions, which pay the bonus coin rate.
type QuestionType string

const (
	QuestionRegular QuestionType = "regular"
	QuestionBonus   QuestionType = "bonus"
)

// Question is the canonical multiple-choice question. A normalized question always
// carries exactly four options and a correct answer index in [0,4).
type Question struct {
	ID               string       `json:"id" yaml:"id"`
	Question         string       `json:"question" yaml:"question"`
	Options          []string     `json:"options" yaml:"options"`
	CorrectAnswer    int          `json:"correct_answer" yaml:"correct_answer"`
	Difficulty       Difficulty   `json:"difficulty" yaml:"difficulty"`
	FunFact          string       `json:"fun_fact" yaml:"fun_fact"`
	Category         string       `json:"category" yaml:"category"`
	Subcategory      string       `json:"subcategory" yaml:"subcategory"`
	Section          Section      `json:"section,omitempty" yaml:"section,omitempty"`
	Type             QuestionType `json:"type,omitempty" yaml:"type,omitempty"`
	Tags             []string     `json:"tags,omitempty" yaml:"tags,omitempty"`
	EmojiClue        string       `json:"emoji_clue,omitempty" yaml:"emoji_clue,omitempty"`
	VisualOptions    []string     `json:"visual_options,omitempty" yaml:"visual_options,omitempty"`
	PersonalityTrait string       `json:"personality_trait,omitempty" yaml:"personality_trait,omitempty"`
	PredictionYear   string       `json:"prediction_year,omitempty" yaml:"prediction_year,omitempty"`
}

// IsBonus reports whether the question pays the bonus rate.
func (q Question) IsBonus() bool {
	return q.Type == QuestionBonus
}

// Category groups questions and carries the entry fee charged to start a quiz in it.
type Category struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Description   string   `json:"description" yaml:"description"`
	Icon          string   `json:"icon" yaml:"icon"`
	Color         string   `json:"color" yaml:"color"`
	Subcategories []string `json:"subcategories" yaml:"subcategories"`
	EntryFee      int      `json:"entry_fee" yaml:"entry_fee"`
	PrizePool     int      `json:"prize_pool" yaml:"prize_pool"`
}

// UserRecord is the persisted player profile. Coins never go negative.
type UserRecord struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Avatar         string             `json:"avatar"`
	Coins          int                `json:"coins"`
	Level          int                `json:"level"`
	TotalQuizzes   int                `json:"totalQuizzes"`
	CorrectAnswers int                `json:"correctAnswers"`
	Streak         int                `json:"streak"`
	QuizHistory    []QuizHistoryEntry `json:"quizHistory"`
	JoinDate       time.Time          `json:"joinDate"`
}

// QuizHistoryEntry records one completed quiz.
type QuizHistoryEntry struct {
	Category       string    `json:"category"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	CoinsEarned    int       `json:"coinsEarned"`
	CompletedAt    time.Time `json:"completedAt"`
}

// RewardBreakdown itemizes the coins earned for a quiz.
type RewardBreakdown struct {
	TotalCoins     int `json:"totalCoins"`
	CorrectAnswers int `json:"correctAnswers"`
	BonusQuestions int `json:"bonusQuestions"`
	StreakBonus    int `json:"streakBonus"`
}

// ProgressSnapshot is the last known position in an active quiz.
type ProgressSnapshot struct {
	UserID        string    `json:"userId"`
	Category      string    `json:"category"`
	QuestionIndex int       `json:"questionIndex"`
	Score         int       `json:"score"`
	Streak        int       `json:"streak"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Achievement is a display-only milestone unlocked by a user's stats.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Reward      int    `json:"reward"`
}
