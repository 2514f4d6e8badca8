package questions

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"techkwiz-quiz-service/internal/domain"
)

// DefaultFunFact is shown when a question carries no fun fact.
const DefaultFunFact = "Thanks for playing!"

// Format identifies which field-naming convention a raw question uses.
type Format int

const (
	FormatUnknown Format = iota
	FormatLegacy
	FormatUnified
)

func (f Format) String() string {
	switch f {
	case FormatLegacy:
		return "legacy"
	case FormatUnified:
		return "unified"
	}
	return "unknown"
}

// RawQuestion decodes either the legacy camelCase shape or the unified snake_case shape.
type RawQuestion struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Difficulty  string   `json:"difficulty"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Section     string   `json:"section"`
	Type        string   `json:"type"`
	Tags        []string `json:"tags"`

	CorrectAnswer *int    `json:"correct_answer"`
	FunFact       *string `json:"fun_fact"`

	LegacyCorrectAnswer *int    `json:"correctAnswer"`
	LegacyFunFact       *string `json:"funFact"`

	EmojiClue        string   `json:"emoji_clue"`
	VisualOptions    []string `json:"visual_options"`
	PersonalityTrait string   `json:"personality_trait"`
	PredictionYear   string   `json:"prediction_year"`
}

// Format reports the naming convention in use. Unified wins when both are present.
func (r RawQuestion) Format() Format {
	switch {
	case r.CorrectAnswer != nil || r.FunFact != nil:
		return FormatUnified
	case r.LegacyCorrectAnswer != nil || r.LegacyFunFact != nil:
		return FormatLegacy
	}
	return FormatUnknown
}

// Decode parses a JSON array of raw questions.
func Decode(data []byte) ([]RawQuestion, error) {
	var raws []RawQuestion
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	return raws, nil
}

// Normalize maps a raw question of either shape onto the canonical question.
func Normalize(r RawQuestion) (domain.Question, error) {
	var (
		correct *int
		funFact *string
	)
	switch r.Format() {
	case FormatUnified:
		correct, funFact = r.CorrectAnswer, r.FunFact
		if correct == nil {
			correct = r.LegacyCorrectAnswer
		}
		if funFact == nil {
			funFact = r.LegacyFunFact
		}
	case FormatLegacy:
		correct, funFact = r.LegacyCorrectAnswer, r.LegacyFunFact
	}
	if correct == nil {
		return domain.Question{}, fmt.Errorf("%w: question %q has no correct answer", domain.ErrInvalidQuestion, r.ID)
	}

	q := domain.Question{
		ID:               r.ID,
		Question:         r.Question,
		Options:          r.Options,
		CorrectAnswer:    *correct,
		Difficulty:       domain.Difficulty(r.Difficulty),
		Category:         r.Category,
		Subcategory:      r.Subcategory,
		Section:          domain.Section(r.Section),
		Type:             domain.QuestionType(r.Type),
		Tags:             r.Tags,
		EmojiClue:        r.EmojiClue,
		VisualOptions:    r.VisualOptions,
		PersonalityTrait: r.PersonalityTrait,
		PredictionYear:   r.PredictionYear,
	}
	if funFact != nil {
		q.FunFact = *funFact
	}
	return Validate(q)
}

// Validate fills defaults on a canonical question and checks its shape.
func Validate(q domain.Question) (domain.Question, error) {
	if strings.TrimSpace(q.ID) == "" {
		return q, fmt.Errorf("%w: missing id", domain.ErrInvalidQuestion)
	}
	if strings.TrimSpace(q.Question) == "" {
		return q, fmt.Errorf("%w: question %q has no text", domain.ErrInvalidQuestion, q.ID)
	}
	if len(q.Options) != 4 {
		return q, fmt.Errorf("%w: question %q has %d options", domain.ErrInvalidQuestion, q.ID, len(q.Options))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return q, fmt.Errorf("%w: question %q option %d is empty", domain.ErrInvalidQuestion, q.ID, i)
		}
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return q, fmt.Errorf("%w: question %q correct answer %d out of range", domain.ErrInvalidQuestion, q.ID, q.CorrectAnswer)
	}

	if q.Difficulty == "" {
		q.Difficulty = domain.DifficultyBeginner
	}
	if !q.Difficulty.Valid() {
		return q, fmt.Errorf("%w: question %q has difficulty %q", domain.ErrInvalidQuestion, q.ID, q.Difficulty)
	}
	if !q.Section.Valid() {
		return q, fmt.Errorf("%w: question %q has section %q", domain.ErrInvalidQuestion, q.ID, q.Section)
	}
	switch q.Type {
	case "":
		q.Type = domain.QuestionRegular
	case domain.QuestionRegular, domain.QuestionBonus:
	default:
		return q, fmt.Errorf("%w: question %q has type %q", domain.ErrInvalidQuestion, q.ID, q.Type)
	}
	if strings.TrimSpace(q.FunFact) == "" {
		q.FunFact = DefaultFunFact
	}
	if q.Subcategory == "" {
		q.Subcategory = q.Category
	}
	return q, nil
}

// NormalizeAll normalizes raws, dropping and logging the ones that fail.
// It returns the valid questions and the number rejected.
func NormalizeAll(logger *slog.Logger, raws []RawQuestion) ([]domain.Question, int) {
	out := make([]domain.Question, 0, len(raws))
	rejected := 0
	for _, r := range raws {
		q, err := Normalize(r)
		if err != nil {
			rejected++
			logger.Warn("dropping question", "id", r.ID, "format", r.Format().String(), "error", err)
			continue
		}
		out = append(out, q)
	}
	return out, rejected
}

// ValidateAll is NormalizeAll for questions already in canonical form.
func ValidateAll(logger *slog.Logger, qs []domain.Question) ([]domain.Question, int) {
	out := make([]domain.Question, 0, len(qs))
	rejected := 0
	for _, q := range qs {
		valid, err := Validate(q)
		if err != nil {
			rejected++
			logger.Debug("dropping question", "id", q.ID, "error", err)
			continue
		}
		out = append(out, valid)
	}
	return out, rejected
}
