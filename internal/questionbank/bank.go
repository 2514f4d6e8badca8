package questionbank

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
	"techkwiz-quiz-service/internal/domain"
)

//go:embed bank.yaml
var bankYAML []byte

// minPlayable is the fewest scorable questions a listed category must carry.
const minPlayable = 3

// Bank is the read-only static question database shipped with the service.
type Bank struct {
	categories []domain.Category
	byID       map[string]domain.Category
	questions  map[string][]domain.Question
}

type bankFile struct {
	Categories []domain.Category            `yaml:"categories"`
	Questions  map[string][]domain.Question `yaml:"questions"`
}

// Load parses the embedded bank.
func Load() (*Bank, error) {
	return Parse(bankYAML)
}

// Parse builds a bank from YAML.
func Parse(data []byte) (*Bank, error) {
	var file bankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	b := &Bank{
		categories: file.Categories,
		byID:       make(map[string]domain.Category, len(file.Categories)),
		questions:  file.Questions,
	}
	if b.questions == nil {
		b.questions = make(map[string][]domain.Question)
	}
	for _, c := range file.Categories {
		if c.ID == "" {
			return nil, fmt.Errorf("parse question bank: category without id")
		}
		if n := b.QuestionCount(c.ID); n < minPlayable {
			return nil, fmt.Errorf("parse question bank: category %s has %d scorable questions, need %d", c.ID, n, minPlayable)
		}
		b.byID[c.ID] = c
	}
	return b, nil
}

// Categories returns every category in declaration order.
func (b *Bank) Categories() []domain.Category {
	out := make([]domain.Category, len(b.categories))
	copy(out, b.categories)
	return out
}

// Category looks up a category by id.
func (b *Bank) Category(id string) (domain.Category, bool) {
	c, ok := b.byID[id]
	return c, ok
}

// Questions returns a copy of the raw questions stored for a category.
func (b *Bank) Questions(categoryID string) []domain.Question {
	qs := b.questions[categoryID]
	out := make([]domain.Question, len(qs))
	copy(out, qs)
	return out
}

// QuestionCount is the number of scorable questions stored for a category.
func (b *Bank) QuestionCount(categoryID string) int {
	n := 0
	for _, q := range b.questions[categoryID] {
		if scorable(q) {
			n++
		}
	}
	return n
}

// scorable reports whether q has text, four options and a correct answer among them.
func scorable(q domain.Question) bool {
	return q.ID != "" && q.Question != "" && len(q.Options) == 4 && q.CorrectAnswer >= 0 && q.CorrectAnswer < len(q.Options)
}
