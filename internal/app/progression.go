package app

import (
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"techkwiz-quiz-service/internal/domain"
	"techkwiz-quiz-service/internal/reward"
)

// State is a position in the quiz progression.
type State int

const (
	StateReady State = iota
	StateAwaitingAnswer
	StateAnswerLocked
	StateAdvancing
	StateCompleted
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateAwaitingAnswer:
		return "awaitingAnswer"
	case StateAnswerLocked:
		return "answerLocked"
	case StateAdvancing:
		return "advancing"
	case StateCompleted:
		return "completed"
	case StateAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// Scheduler runs f after d. The returned func stops the timer and reports whether it was pending.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// RealScheduler schedules on wall-clock time.
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// ProgressionOptions tunes the timing of a quiz.
type ProgressionOptions struct {
	QuestionTimeout time.Duration
	RevealDelay     time.Duration

	// AutoAdvance off disables the per-question countdown.
	AutoAdvance bool
}

// AnswerOutcome is the result of locking in one question.
type AnswerOutcome struct {
	Index         int    `json:"index"`
	Answer        int    `json:"answer"`
	CorrectAnswer int    `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
	TimedOut      bool   `json:"timedOut"`
	Bonus         bool   `json:"bonus"`
	Score         int    `json:"score"`
	Streak        int    `json:"streak"`
	CoinsAwarded  int    `json:"coinsAwarded"`
	FunFact       string `json:"funFact"`
	Warning       string `json:"warning,omitempty"`
}

// QuizResult is the terminal summary of a completed quiz.
type QuizResult struct {
	Category    string                 `json:"category"`
	Score       int                    `json:"score"`
	Total       int                    `json:"total"`
	Percentage  int                    `json:"percentage"`
	Breakdown   domain.RewardBreakdown `json:"breakdown"`
	CoinsEarned int                    `json:"coinsEarned"`

	// CompletionCredit is CoinsEarned minus what was already credited per question.
	CompletionCredit int                  `json:"completionCredit"`
	BestStreak       int                  `json:"bestStreak"`
	FinalStreak      int                  `json:"finalStreak"`
	Achievements     []domain.Achievement `json:"achievements,omitempty"`
	Warning          string               `json:"warning,omitempty"`
}

// Hooks are called with the progression lock held, so lock-in always precedes completion.
// Hooks must not call back into the progression.
type Hooks struct {
	AnswerLocked func(outcome *AnswerOutcome)
	Completed    func(result *QuizResult)
}

// EventKind tags progression events.
type EventKind string

const (
	EventQuestionChanged EventKind = "questionChanged"
	EventAnswerScored    EventKind = "answerScored"
	EventQuizCompleted   EventKind = "quizCompleted"
)

// Event is delivered to the listener after the progression lock is released.
type Event struct {
	Kind     EventKind
	Index    int
	Total    int
	Question domain.Question
	Outcome  AnswerOutcome
	Result   QuizResult
}

// Listener receives events in order. It must not block or call back into the progression.
type Listener func(Event)

// ProgressionConfig wires a progression.
type ProgressionConfig struct {
	Category   string
	Questions  []domain.Question
	Options    ProgressionOptions
	Calculator *reward.Calculator
	Scheduler  Scheduler
	Hooks      Hooks
	Listener   Listener
	Logger     *slog.Logger
}

// Progression is the timed question state machine for one quiz run.
type Progression struct {
	category  string
	questions []domain.Question
	opts      ProgressionOptions
	calc      *reward.Calculator
	sched     Scheduler
	hooks     Hooks
	logger    *slog.Logger

	mu           sync.Mutex
	emitMu       sync.Mutex
	listener     Listener
	state        State
	index        int
	selected     int
	score        int
	bonusCorrect int
	streak       int
	bestStreak   int
	credited     int
	generation   uint64
	stopTimer    func() bool
	result       *QuizResult
	pending      []Event
}

// ProgressionSnapshot is a read-only view of a progression.
type ProgressionSnapshot struct {
	Category   string
	State      State
	Index      int
	Total      int
	Selected   int
	Score      int
	Streak     int
	BestStreak int
	Result     *QuizResult
}

// NewProgression validates the question set and returns a progression in StateReady.
func NewProgression(cfg ProgressionConfig) (*Progression, error) {
	if len(cfg.Questions) == 0 {
		return nil, domain.ErrFatalLoad
	}
	if cfg.Calculator == nil {
		cfg.Calculator = reward.NewCalculator(reward.DefaultConfig(), nil)
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = RealScheduler{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Progression{
		category:  cfg.Category,
		questions: cfg.Questions,
		opts:      cfg.Options,
		calc:      cfg.Calculator,
		sched:     cfg.Scheduler,
		hooks:     cfg.Hooks,
		logger:    cfg.Logger,
		listener:  cfg.Listener,
		selected:  -1,
	}, nil
}

// Start enters AwaitingAnswer(0). Calling it twice is a no-op.
func (p *Progression) Start() {
	p.mu.Lock()
	if p.state != StateReady {
		p.mu.Unlock()
		return
	}
	p.index = 0
	p.enterQuestionLocked()
	p.unlockAndFlush()
}

// Select locks in answer for the question at index. It reports false when the
// event does not apply: wrong state, stale index, or an answer out of range.
func (p *Progression) Select(index, answer int) (AnswerOutcome, bool) {
	p.mu.Lock()
	if p.state != StateAwaitingAnswer || index != p.index {
		p.mu.Unlock()
		return AnswerOutcome{}, false
	}
	if answer < 0 || answer >= len(p.questions[index].Options) {
		p.mu.Unlock()
		return AnswerOutcome{}, false
	}
	outcome := p.lockLocked(answer, false)
	p.unlockAndFlush()
	return outcome, true
}

// TimerExpired treats the question at index as answered wrong. Stale indexes are ignored.
func (p *Progression) TimerExpired(index int) (AnswerOutcome, bool) {
	p.mu.Lock()
	if p.state != StateAwaitingAnswer || index != p.index {
		p.mu.Unlock()
		return AnswerOutcome{}, false
	}
	outcome := p.lockLocked(-1, true)
	p.unlockAndFlush()
	return outcome, true
}

// Abandon stops the quiz without further credit. It reports false if the quiz already ended.
func (p *Progression) Abandon() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateCompleted || p.state == StateAbandoned {
		return false
	}
	p.state = StateAbandoned
	p.generation++
	p.stopTimerLocked()
	return true
}

// SetListener swaps the event sink, e.g. after a client reconnects.
func (p *Progression) SetListener(l Listener) {
	p.emitMu.Lock()
	p.listener = l
	p.emitMu.Unlock()
}

// Replay re-emits the current question if one is awaiting an answer.
func (p *Progression) Replay() {
	p.mu.Lock()
	if p.state == StateAwaitingAnswer {
		p.pending = append(p.pending, p.questionEventLocked())
	}
	p.unlockAndFlush()
}

// Snapshot returns the current position and counters.
func (p *Progression) Snapshot() ProgressionSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ProgressionSnapshot{
		Category:   p.category,
		State:      p.state,
		Index:      p.index,
		Total:      len(p.questions),
		Selected:   p.selected,
		Score:      p.score,
		Streak:     p.streak,
		BestStreak: p.bestStreak,
		Result:     p.result,
	}
}

// Done reports whether the quiz completed or was abandoned.
func (p *Progression) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StateCompleted || p.state == StateAbandoned
}

func (p *Progression) enterQuestionLocked() {
	p.state = StateAwaitingAnswer
	p.selected = -1
	p.generation++
	p.pending = append(p.pending, p.questionEventLocked())

	if !p.opts.AutoAdvance || p.opts.QuestionTimeout <= 0 {
		return
	}
	gen, index := p.generation, p.index
	p.stopTimer = p.sched.AfterFunc(p.opts.QuestionTimeout, func() {
		p.onCountdown(gen, index)
	})
}

func (p *Progression) questionEventLocked() Event {
	return Event{
		Kind:     EventQuestionChanged,
		Index:    p.index,
		Total:    len(p.questions),
		Question: p.questions[p.index],
	}
}

func (p *Progression) lockLocked(answer int, timedOut bool) AnswerOutcome {
	p.stopTimerLocked()
	p.generation++
	p.state = StateAnswerLocked
	p.selected = answer

	q := p.questions[p.index]
	correct := answer == q.CorrectAnswer
	if correct {
		p.score++
		if q.IsBonus() {
			p.bonusCorrect++
		}
		p.streak++
		p.bestStreak = max(p.bestStreak, p.streak)
	} else {
		p.streak = 0
	}

	outcome := AnswerOutcome{
		Index:         p.index,
		Answer:        answer,
		CorrectAnswer: q.CorrectAnswer,
		Correct:       correct,
		TimedOut:      timedOut,
		Bonus:         q.IsBonus(),
		Score:         p.score,
		Streak:        p.streak,
		FunFact:       q.FunFact,
	}
	if p.hooks.AnswerLocked != nil {
		p.hooks.AnswerLocked(&outcome)
	}
	p.credited += outcome.CoinsAwarded
	p.pending = append(p.pending, Event{Kind: EventAnswerScored, Index: p.index, Total: len(p.questions), Outcome: outcome})

	if p.opts.RevealDelay <= 0 {
		p.advanceLocked()
		return outcome
	}
	gen := p.generation
	p.stopTimer = p.sched.AfterFunc(p.opts.RevealDelay, func() {
		p.onReveal(gen)
	})
	return outcome
}

func (p *Progression) onCountdown(gen uint64, index int) {
	p.mu.Lock()
	if gen != p.generation || p.state != StateAwaitingAnswer || index != p.index {
		p.mu.Unlock()
		return
	}
	p.lockLocked(-1, true)
	p.unlockAndFlush()
}

func (p *Progression) onReveal(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || p.state != StateAnswerLocked {
		p.mu.Unlock()
		return
	}
	p.advanceLocked()
	p.unlockAndFlush()
}

func (p *Progression) advanceLocked() {
	p.state = StateAdvancing
	p.stopTimer = nil
	if p.index+1 < len(p.questions) {
		p.index++
		p.enterQuestionLocked()
		return
	}
	p.completeLocked()
}

func (p *Progression) completeLocked() {
	if p.result != nil {
		return
	}
	p.state = StateCompleted
	p.generation++

	total := len(p.questions)
	breakdown, err := p.calc.QuizReward(p.score-p.bonusCorrect, total, p.bonusCorrect, p.streak)
	if err != nil {
		p.logger.Error("reward calculation failed", "category", p.category, "error", err)
	}
	result := QuizResult{
		Category:         p.category,
		Score:            p.score,
		Total:            total,
		Percentage:       int(math.Round(float64(p.score) * 100 / float64(total))),
		Breakdown:        breakdown,
		CoinsEarned:      breakdown.TotalCoins,
		CompletionCredit: max(breakdown.TotalCoins-p.credited, 0),
		BestStreak:       p.bestStreak,
		FinalStreak:      p.streak,
	}
	if p.hooks.Completed != nil {
		p.hooks.Completed(&result)
	}
	p.result = &result
	p.pending = append(p.pending, Event{Kind: EventQuizCompleted, Index: p.index, Total: total, Result: result})
}

func (p *Progression) stopTimerLocked() {
	if p.stopTimer != nil {
		p.stopTimer()
		p.stopTimer = nil
	}
}

// unlockAndFlush releases mu and delivers pending events. emitMu is taken before mu is
// released so events from concurrent callers reach the listener in state order.
func (p *Progression) unlockAndFlush() {
	events := p.pending
	p.pending = nil
	p.emitMu.Lock()
	p.mu.Unlock()
	defer p.emitMu.Unlock()
	if p.listener == nil {
		return
	}
	for _, e := range events {
		p.listener(e)
	}
}
