package app_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"techkwiz-quiz-service/internal/app"
	"techkwiz-quiz-service/internal/domain"
	"techkwiz-quiz-service/internal/reward"
)

// manualScheduler fires timers only when the test asks it to.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	t := &manualTimer{d: d, f: f}
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.stopped || t.fired {
			return false
		}
		t.stopped = true
		return true
	}
}

// fireNext runs the oldest pending timer and reports whether one existed.
func (s *manualScheduler) fireNext() (time.Duration, bool) {
	s.mu.Lock()
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			s.mu.Unlock()
			t.f()
			return t.d, true
		}
	}
	s.mu.Unlock()
	return 0, false
}

// fireAt runs timer i regardless of whether it was stopped, as a late time.AfterFunc would.
func (s *manualScheduler) fireAt(i int) {
	s.mu.Lock()
	t := s.timers[i]
	s.mu.Unlock()
	t.f()
}

func (s *manualScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func makeQuestions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			ID:            fmt.Sprintf("q%d", i+1),
			Question:      fmt.Sprintf("Question %d?", i+1),
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: 0,
			Difficulty:    domain.DifficultyBeginner,
			FunFact:       "fact",
			Category:      "test",
		}
	}
	return qs
}

type recorder struct {
	mu     sync.Mutex
	events []app.Event
}

func (r *recorder) listen(e app.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) kinds() []app.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]app.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *recorder) count(kind app.EventKind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func newProgression(t *testing.T, n int, opts app.ProgressionOptions, sched app.Scheduler, hooks app.Hooks, listener app.Listener) *app.Progression {
	t.Helper()
	p, err := app.NewProgression(app.ProgressionConfig{
		Category:   "test",
		Questions:  makeQuestions(n),
		Options:    opts,
		Calculator: reward.NewCalculator(reward.DefaultConfig(), nil),
		Scheduler:  sched,
		Hooks:      hooks,
		Listener:   listener,
	})
	if err != nil {
		t.Fatalf("new progression: %v", err)
	}
	return p
}

func TestNewProgressionRequiresQuestions(t *testing.T) {
	_, err := app.NewProgression(app.ProgressionConfig{Category: "empty"})
	if !errors.Is(err, domain.ErrFatalLoad) {
		t.Fatalf("expected ErrFatalLoad, got %v", err)
	}
}

func TestSelectIsIdempotentPerQuestion(t *testing.T) {
	sched := &manualScheduler{}
	opts := app.ProgressionOptions{QuestionTimeout: 30 * time.Second, RevealDelay: time.Second, AutoAdvance: true}
	p := newProgression(t, 3, opts, sched, app.Hooks{}, nil)
	p.Start()

	outcome, ok := p.Select(0, 0)
	if !ok || !outcome.Correct || outcome.Score != 1 {
		t.Fatalf("expected first selection to score, got ok=%v %+v", ok, outcome)
	}
	if _, ok := p.Select(0, 1); ok {
		t.Fatalf("expected second selection for the same question to be ignored")
	}
	snap := p.Snapshot()
	if snap.State != app.StateAnswerLocked || snap.Score != 1 || snap.Selected != 0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestSelectIgnoresStaleAndOutOfRange(t *testing.T) {
	p := newProgression(t, 3, app.ProgressionOptions{}, &manualScheduler{}, app.Hooks{}, nil)
	p.Start()

	if _, ok := p.Select(1, 0); ok {
		t.Fatalf("expected future index to be ignored")
	}
	if _, ok := p.Select(0, 4); ok {
		t.Fatalf("expected out-of-range answer to be ignored")
	}
	if _, ok := p.Select(0, -1); ok {
		t.Fatalf("expected negative answer to be ignored")
	}
	if snap := p.Snapshot(); snap.State != app.StateAwaitingAnswer || snap.Index != 0 {
		t.Fatalf("expected progression untouched, got %+v", snap)
	}
}

func TestSelectBeforeStartIsIgnored(t *testing.T) {
	p := newProgression(t, 2, app.ProgressionOptions{}, &manualScheduler{}, app.Hooks{}, nil)
	if _, ok := p.Select(0, 0); ok {
		t.Fatalf("expected selection before start to be ignored")
	}
	if p.Snapshot().State != app.StateReady {
		t.Fatalf("expected ready state")
	}
}

func TestCountdownExpiryCountsAsWrong(t *testing.T) {
	sched := &manualScheduler{}
	rec := &recorder{}
	opts := app.ProgressionOptions{QuestionTimeout: 30 * time.Second, RevealDelay: time.Second, AutoAdvance: true}
	p := newProgression(t, 2, opts, sched, app.Hooks{}, rec.listen)
	p.Start()

	if d, ok := sched.fireNext(); !ok || d != 30*time.Second {
		t.Fatalf("expected countdown timer of 30s, got %v ok=%v", d, ok)
	}
	snap := p.Snapshot()
	if snap.State != app.StateAnswerLocked || snap.Score != 0 || snap.Streak != 0 || snap.Selected != -1 {
		t.Fatalf("expected timed-out lock, got %+v", snap)
	}

	if d, ok := sched.fireNext(); !ok || d != time.Second {
		t.Fatalf("expected reveal timer of 1s, got %v ok=%v", d, ok)
	}
	if snap := p.Snapshot(); snap.State != app.StateAwaitingAnswer || snap.Index != 1 {
		t.Fatalf("expected to advance to question 1, got %+v", snap)
	}

	rec.mu.Lock()
	scored := rec.events[1]
	rec.mu.Unlock()
	if scored.Kind != app.EventAnswerScored || !scored.Outcome.TimedOut || scored.Outcome.Correct {
		t.Fatalf("expected timed-out answerScored event, got %+v", scored)
	}
}

func TestClientTimerExpiry(t *testing.T) {
	p := newProgression(t, 2, app.ProgressionOptions{}, &manualScheduler{}, app.Hooks{}, nil)
	p.Start()

	outcome, ok := p.TimerExpired(0)
	if !ok || !outcome.TimedOut || outcome.Correct {
		t.Fatalf("expected timed-out outcome, got ok=%v %+v", ok, outcome)
	}
	if _, ok := p.TimerExpired(0); ok {
		t.Fatalf("expected repeated expiry to be ignored")
	}
}

func TestStaleTimerHasNoEffect(t *testing.T) {
	sched := &manualScheduler{}
	opts := app.ProgressionOptions{QuestionTimeout: 30 * time.Second, RevealDelay: time.Second, AutoAdvance: true}
	p := newProgression(t, 3, opts, sched, app.Hooks{}, nil)
	p.Start()

	if _, ok := p.Select(0, 0); !ok {
		t.Fatalf("select failed")
	}
	// The countdown for question 0 was stopped but fires anyway.
	sched.fireAt(0)
	snap := p.Snapshot()
	if snap.State != app.StateAnswerLocked || snap.Score != 1 || snap.Streak != 1 {
		t.Fatalf("expected stale countdown to be ignored, got %+v", snap)
	}

	// Reveal advances to question 1; a second late reveal must not skip question 1.
	sched.fireAt(1)
	sched.fireAt(1)
	if snap := p.Snapshot(); snap.Index != 1 || snap.State != app.StateAwaitingAnswer {
		t.Fatalf("expected to be on question 1, got %+v", snap)
	}
}

func TestAbandonStopsProgression(t *testing.T) {
	sched := &manualScheduler{}
	completed := 0
	hooks := app.Hooks{Completed: func(*app.QuizResult) { completed++ }}
	opts := app.ProgressionOptions{QuestionTimeout: 30 * time.Second, RevealDelay: time.Second, AutoAdvance: true}
	p := newProgression(t, 2, opts, sched, hooks, nil)
	p.Start()

	if !p.Abandon() {
		t.Fatalf("expected abandon to succeed")
	}
	if p.Abandon() {
		t.Fatalf("expected second abandon to report false")
	}
	if sched.pending() != 0 {
		t.Fatalf("expected countdown stopped")
	}
	sched.fireAt(0)
	if _, ok := p.Select(0, 0); ok {
		t.Fatalf("expected selection after abandon to be ignored")
	}
	if !p.Done() || p.Snapshot().State != app.StateAbandoned || completed != 0 {
		t.Fatalf("expected abandoned without completion, state=%v completed=%d", p.Snapshot().State, completed)
	}
}

func TestCompletionHappensOnce(t *testing.T) {
	rec := &recorder{}
	var results []app.QuizResult
	hooks := app.Hooks{Completed: func(r *app.QuizResult) { results = append(results, *r) }}
	p := newProgression(t, 3, app.ProgressionOptions{}, &manualScheduler{}, hooks, rec.listen)
	p.Start()

	for i := 0; i < 3; i++ {
		if _, ok := p.Select(i, 0); !ok {
			t.Fatalf("select %d failed", i)
		}
	}
	if _, ok := p.TimerExpired(2); ok {
		t.Fatalf("expected expiry after completion to be ignored")
	}
	if p.Abandon() {
		t.Fatalf("expected abandon after completion to report false")
	}

	if len(results) != 1 {
		t.Fatalf("expected one completion, got %d", len(results))
	}
	r := results[0]
	// 3 x 50 plus a final streak of 3 x 10.
	if r.Score != 3 || r.Total != 3 || r.Percentage != 100 || r.CoinsEarned != 180 || r.CompletionCredit != 180 {
		t.Fatalf("unexpected result %+v", r)
	}
	if r.BestStreak != 3 || r.FinalStreak != 3 {
		t.Fatalf("unexpected streaks %+v", r)
	}
	if rec.count(app.EventQuizCompleted) != 1 {
		t.Fatalf("expected one quizCompleted event, got %v", rec.kinds())
	}
	want := []app.EventKind{
		app.EventQuestionChanged, app.EventAnswerScored,
		app.EventQuestionChanged, app.EventAnswerScored,
		app.EventQuestionChanged, app.EventAnswerScored,
		app.EventQuizCompleted,
	}
	got := rec.kinds()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCompletionCreditSubtractsPerQuestionCoins(t *testing.T) {
	var result app.QuizResult
	hooks := app.Hooks{
		AnswerLocked: func(o *app.AnswerOutcome) {
			if o.Correct {
				o.CoinsAwarded = 50
			}
		},
		Completed: func(r *app.QuizResult) { result = *r },
	}
	p := newProgression(t, 2, app.ProgressionOptions{}, &manualScheduler{}, hooks, nil)
	p.Start()
	p.Select(0, 1)
	p.Select(1, 0)

	// 50 for one correct answer plus 10 for a final streak of 1; 50 was already paid.
	if result.CoinsEarned != 60 || result.CompletionCredit != 10 || result.Percentage != 50 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestAutoAdvanceOffSchedulesNoCountdown(t *testing.T) {
	sched := &manualScheduler{}
	opts := app.ProgressionOptions{QuestionTimeout: 30 * time.Second, RevealDelay: time.Second, AutoAdvance: false}
	p := newProgression(t, 2, opts, sched, app.Hooks{}, nil)
	p.Start()
	if sched.pending() != 0 {
		t.Fatalf("expected no countdown with auto-advance off")
	}
	p.Select(0, 0)
	if sched.pending() != 1 {
		t.Fatalf("expected a reveal timer after lock-in")
	}
}

func TestReplayReemitsCurrentQuestion(t *testing.T) {
	rec := &recorder{}
	p := newProgression(t, 2, app.ProgressionOptions{}, &manualScheduler{}, app.Hooks{}, rec.listen)
	p.Start()

	other := &recorder{}
	p.SetListener(other.listen)
	p.Replay()

	if rec.count(app.EventQuestionChanged) != 1 {
		t.Fatalf("expected original listener to see one question, got %v", rec.kinds())
	}
	if kinds := other.kinds(); len(kinds) != 1 || kinds[0] != app.EventQuestionChanged {
		t.Fatalf("expected replayed question, got %v", kinds)
	}
}
