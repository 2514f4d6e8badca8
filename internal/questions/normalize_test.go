package questions

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"techkwiz-quiz-service/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizeBothShapes(t *testing.T) {
	raws, err := Decode([]byte(`[
		{"id":"legacy-1","question":"Q?","options":["a","b","c","d"],"correctAnswer":2,"funFact":"legacy fact","difficulty":"intermediate","category":"programming"},
		{"id":"unified-1","question":"Q?","options":["a","b","c","d"],"correct_answer":1,"fun_fact":"unified fact","category":"ai","subcategory":"ML","type":"bonus"}
	]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raws[0].Format() != FormatLegacy || raws[1].Format() != FormatUnified {
		t.Fatalf("unexpected formats %v %v", raws[0].Format(), raws[1].Format())
	}

	legacy, err := Normalize(raws[0])
	if err != nil {
		t.Fatalf("normalize legacy: %v", err)
	}
	if legacy.CorrectAnswer != 2 || legacy.FunFact != "legacy fact" || legacy.Difficulty != domain.DifficultyIntermediate {
		t.Fatalf("legacy mapped wrong: %+v", legacy)
	}
	if legacy.Subcategory != "programming" || legacy.Type != domain.QuestionRegular {
		t.Fatalf("expected defaults on legacy question, got %+v", legacy)
	}

	unified, err := Normalize(raws[1])
	if err != nil {
		t.Fatalf("normalize unified: %v", err)
	}
	if unified.CorrectAnswer != 1 || unified.FunFact != "unified fact" || !unified.IsBonus() {
		t.Fatalf("unified mapped wrong: %+v", unified)
	}
	if unified.Difficulty != domain.DifficultyBeginner {
		t.Fatalf("expected beginner default, got %q", unified.Difficulty)
	}
}

func TestNormalizeFillsFunFact(t *testing.T) {
	idx := 0
	q, err := Normalize(RawQuestion{ID: "x", Question: "Q?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: &idx})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if q.FunFact != DefaultFunFact {
		t.Fatalf("expected placeholder fun fact, got %q", q.FunFact)
	}
}

func TestNormalizeRejectsBadShape(t *testing.T) {
	idx := func(i int) *int { return &i }
	four := []string{"a", "b", "c", "d"}

	tests := []struct {
		name string
		raw  RawQuestion
	}{
		{name: "no correct answer", raw: RawQuestion{ID: "q", Question: "Q?", Options: four}},
		{name: "missing id", raw: RawQuestion{Question: "Q?", Options: four, CorrectAnswer: idx(0)}},
		{name: "missing text", raw: RawQuestion{ID: "q", Options: four, CorrectAnswer: idx(0)}},
		{name: "three options", raw: RawQuestion{ID: "q", Question: "Q?", Options: four[:3], CorrectAnswer: idx(0)}},
		{name: "empty option", raw: RawQuestion{ID: "q", Question: "Q?", Options: []string{"a", "", "c", "d"}, CorrectAnswer: idx(0)}},
		{name: "personality answer", raw: RawQuestion{ID: "q", Question: "Q?", Options: four, CorrectAnswer: idx(-1)}},
		{name: "answer too high", raw: RawQuestion{ID: "q", Question: "Q?", Options: four, CorrectAnswer: idx(4)}},
		{name: "bad difficulty", raw: RawQuestion{ID: "q", Question: "Q?", Options: four, CorrectAnswer: idx(0), Difficulty: "expert"}},
		{name: "bad section", raw: RawQuestion{ID: "q", Question: "Q?", Options: four, CorrectAnswer: idx(0), Section: "sidebar"}},
		{name: "bad type", raw: RawQuestion{ID: "q", Question: "Q?", Options: four, CorrectAnswer: idx(0), Type: "double"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Normalize(tt.raw); !errors.Is(err, domain.ErrInvalidQuestion) {
				t.Fatalf("expected invalid question, got %v", err)
			}
		})
	}
}

func TestNormalizeAllCountsRejected(t *testing.T) {
	zero, bad := 0, -1
	raws := []RawQuestion{
		{ID: "ok", Question: "Q?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: &zero},
		{ID: "bad", Question: "Q?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: &bad},
	}
	qs, rejected := NormalizeAll(discardLogger(), raws)
	if len(qs) != 1 || rejected != 1 || qs[0].ID != "ok" {
		t.Fatalf("expected one valid and one rejected, got %d/%d", len(qs), rejected)
	}
}

func TestDecodeRejectsNonArray(t *testing.T) {
	if _, err := Decode([]byte(`{"id":"x"}`)); !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
	if _, err := Decode([]byte(`not json`)); !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
}
