package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"techkwiz-quiz-service/internal/domain"
	"techkwiz-quiz-service/internal/questions"
	"techkwiz-quiz-service/internal/reward"
)

// KVStore abstracts the persisted key/value storage (in-memory, Redis, Postgres, SQLite).
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// SessionRepository abstracts how player sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(userID string) *Session
	Get(userID string) (*Session, bool)
	DeleteIfIdle(userID string)
}

// QuestionResolver produces the question set for a quiz.
type QuestionResolver interface {
	Resolve(ctx context.Context, categoryKey string, count int, section domain.Section) ([]domain.Question, error)
	ResolveWithSource(ctx context.Context, categoryKey string, count int, section domain.Section) ([]domain.Question, questions.Source, error)
	Categories(ctx context.Context) []domain.Category
}

// CategoryCatalog looks up category metadata such as the entry fee.
type CategoryCatalog interface {
	Category(id string) (domain.Category, bool)
}

// Options configures quiz sizes, fees and timing.
type Options struct {
	HomepageCategory string
	HomepageCount    int
	CategoryCount    int
	DefaultEntryFee  int
	Progression      ProgressionOptions
}

// Dependencies are the collaborators of QuizService.
type Dependencies struct {
	Sessions   SessionRepository
	Questions  QuestionResolver
	Catalog    CategoryCatalog
	Users      *UserStore
	Progress   *ProgressStore
	Calculator *reward.Calculator
	Scheduler  Scheduler
	Logger     *slog.Logger
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionResolver
	catalog   CategoryCatalog
	users     *UserStore
	progress  *ProgressStore
	calc      *reward.Calculator
	gate      *EntryGate
	sched     Scheduler
	logger    *slog.Logger
	opts      Options
	now       func() time.Time
}

func NewQuizService(deps Dependencies, opts Options) *QuizService {
	if opts.HomepageCategory == "" {
		opts.HomepageCategory = "homepage"
	}
	if opts.HomepageCount <= 0 {
		opts.HomepageCount = 5
	}
	if opts.CategoryCount <= 0 {
		opts.CategoryCount = 5
	}
	if deps.Scheduler == nil {
		deps.Scheduler = RealScheduler{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &QuizService{
		sessions:  deps.Sessions,
		questions: deps.Questions,
		catalog:   deps.Catalog,
		users:     deps.Users,
		progress:  deps.Progress,
		calc:      deps.Calculator,
		gate:      NewEntryGate(deps.Calculator, opts.HomepageCount),
		sched:     deps.Scheduler,
		logger:    deps.Logger,
		opts:      opts,
		now:       time.Now,
	}
}

// StartResult describes how a start request was handled.
// Resumed is true when the request re-entered the quiz already running. Denied is
// set when the entry fee could not be paid, in which case no quiz was started.
// Warning carries a non-fatal persistence failure.
type StartResult struct {
	Category string
	Total    int
	Resumed  bool
	Decision Decision
	Denied   *Decision
	User     domain.UserRecord
	Warning  error
}

// CategoryView is a category together with its payout ceiling.
type CategoryView struct {
	domain.Category
	MaxCoins int `json:"max_coins"`
}

// EnsureUser loads the user or creates a guest record.
func (s *QuizService) EnsureUser(ctx context.Context, userID, name string) (domain.UserRecord, error) {
	user, err := s.users.Ensure(ctx, userID, name)
	if errors.Is(err, domain.ErrPersistence) {
		s.logger.Warn("guest user not persisted", "user", user.ID, "error", err)
		return user, nil
	}
	return user, err
}

// User returns the stored user record.
func (s *QuizService) User(ctx context.Context, userID string) (domain.UserRecord, error) {
	user, err := s.users.Load(ctx, userID)
	if err != nil {
		return domain.UserRecord{}, err
	}
	if user == nil {
		return domain.UserRecord{}, domain.ErrUnknownUser
	}
	return *user, nil
}

// Categories lists playable categories with the maximum coins each can pay out.
func (s *QuizService) Categories(ctx context.Context) []CategoryView {
	cats := s.questions.Categories(ctx)
	out := make([]CategoryView, 0, len(cats))
	for _, c := range cats {
		if c.EntryFee == 0 {
			if known, ok := s.catalog.Category(c.ID); ok {
				c = known
			} else {
				c.EntryFee = s.opts.DefaultEntryFee
			}
		}
		out = append(out, CategoryView{Category: c, MaxCoins: s.calc.CategoryMaxCoins(c.ID)})
	}
	return out
}

// Authorize previews the entry-fee decision for a category without charging.
func (s *QuizService) Authorize(ctx context.Context, userID, categoryID string) (Decision, error) {
	user, err := s.User(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	return s.gate.Authorize(user, s.category(categoryID)), nil
}

// StartHomepage starts the free homepage quiz, replacing any quiz in progress.
func (s *QuizService) StartHomepage(ctx context.Context, userID string, listener Listener) (StartResult, error) {
	user, err := s.User(ctx, userID)
	if err != nil {
		return StartResult{}, err
	}
	qs, err := s.questions.Resolve(ctx, s.opts.HomepageCategory, s.opts.HomepageCount, domain.SectionHomepage)
	if err != nil {
		return StartResult{}, err
	}

	session := s.sessions.GetOrCreate(userID)
	s.abandonActive(ctx, session)
	if _, err := s.begin(session, s.opts.HomepageCategory, qs, listener, user); err != nil {
		return StartResult{}, err
	}
	return StartResult{
		Category: s.opts.HomepageCategory,
		Total:    len(qs),
		Decision: Decision{Allowed: true, Balance: user.Coins},
		User:     user,
	}, nil
}

// StartCategory starts a paid category quiz. Questions are resolved before any fee is
// charged, so a load failure costs nothing. Re-entering the running quiz for the same
// category resumes it without charging again.
func (s *QuizService) StartCategory(ctx context.Context, userID, categoryID string, listener Listener) (StartResult, error) {
	if categoryID == "" {
		return StartResult{}, domain.ErrInvalidCategory
	}
	user, err := s.User(ctx, userID)
	if err != nil {
		return StartResult{}, err
	}
	category := s.category(categoryID)
	session := s.sessions.GetOrCreate(userID)
	session.Touch()

	if p, active, ok := session.Active(); ok && active == categoryID && !p.Done() && session.ChargedCategory() == categoryID {
		p.SetListener(listener)
		p.Replay()
		snap := p.Snapshot()
		return StartResult{
			Category: categoryID,
			Total:    snap.Total,
			Resumed:  true,
			Decision: Decision{Allowed: true, EntryFee: category.EntryFee, Balance: user.Coins},
			User:     user,
		}, nil
	}

	qs, source, err := s.questions.ResolveWithSource(ctx, categoryID, s.opts.CategoryCount, domain.SectionCategory)
	if err != nil {
		return StartResult{}, err
	}
	// The sample set is free filler; a paid quiz must be about its own category.
	if source == questions.SourceSample {
		return StartResult{}, fmt.Errorf("%w: %s", domain.ErrCategoryUnavailable, categoryID)
	}

	decision, charged, err := s.gate.Charge(ctx, s.users, session, category)
	var warning error
	switch {
	case errors.Is(err, domain.ErrPersistence):
		warning = err
	case err != nil:
		return StartResult{}, err
	}
	if !decision.Allowed {
		s.logger.Info("entry fee denied", "user", userID, "category", categoryID, "shortfall", decision.Shortfall)
		return StartResult{Category: categoryID, Denied: &decision, Decision: decision, User: charged}, nil
	}

	// Any other running quiz is replaced. A denied request leaves it untouched.
	s.abandonActive(ctx, session)
	session.markCharged(categoryID)

	if _, err := s.begin(session, categoryID, qs, listener, charged); err != nil {
		return StartResult{}, err
	}
	s.logger.Info("category quiz started", "user", userID, "category", categoryID, "charged", decision.Charged, "balance", charged.Coins)
	return StartResult{Category: categoryID, Total: len(qs), Decision: decision, User: charged, Warning: warning}, nil
}

// Answer forwards an answer selection to the running quiz. ok is false when the
// selection was ignored (already locked, stale index, or out of range).
func (s *QuizService) Answer(_ context.Context, userID string, questionIndex, answerIndex int) (AnswerOutcome, bool, error) {
	p, err := s.active(userID)
	if err != nil {
		return AnswerOutcome{}, false, err
	}
	outcome, ok := p.Select(questionIndex, answerIndex)
	return outcome, ok, nil
}

// ExpireTimer reports a client-side countdown reaching zero.
func (s *QuizService) ExpireTimer(_ context.Context, userID string, questionIndex int) (AnswerOutcome, bool, error) {
	p, err := s.active(userID)
	if err != nil {
		return AnswerOutcome{}, false, err
	}
	outcome, ok := p.TimerExpired(questionIndex)
	return outcome, ok, nil
}

// Abandon stops the running quiz. Coins already credited per question are kept.
func (s *QuizService) Abandon(ctx context.Context, userID string) error {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return domain.ErrNoActiveQuiz
	}
	if !s.abandonActive(ctx, session) {
		return domain.ErrNoActiveQuiz
	}
	return nil
}

// Leave abandons any running quiz and drops the session if it is idle.
func (s *QuizService) Leave(ctx context.Context, userID string) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return
	}
	s.abandonActive(ctx, session)
	s.sessions.DeleteIfIdle(userID)
}

// Snapshot returns the running quiz position for a user.
func (s *QuizService) Snapshot(userID string) (ProgressionSnapshot, error) {
	p, err := s.active(userID)
	if err != nil {
		return ProgressionSnapshot{}, err
	}
	return p.Snapshot(), nil
}

func (s *QuizService) active(userID string) (*Progression, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return nil, domain.ErrNoActiveQuiz
	}
	session.Touch()
	p, _, ok := session.Active()
	if !ok || p.Done() {
		return nil, domain.ErrNoActiveQuiz
	}
	return p, nil
}

func (s *QuizService) abandonActive(ctx context.Context, session *Session) bool {
	p, category, ok := session.Active()
	if !ok {
		return false
	}
	abandoned := p.Abandon()
	if session.finish(p) && abandoned {
		s.logger.Info("quiz abandoned", "user", session.UserID(), "category", category)
		if err := s.progress.Delete(ctx, session.UserID()); err != nil {
			s.logger.Warn("progress not cleared", "user", session.UserID(), "error", err)
		}
	}
	return abandoned
}

func (s *QuizService) category(id string) domain.Category {
	if c, ok := s.catalog.Category(id); ok {
		return c
	}
	return domain.Category{ID: id, Name: id, EntryFee: s.opts.DefaultEntryFee}
}

// begin starts a progression on session. Achievements are reported relative to startUser.
func (s *QuizService) begin(session *Session, category string, qs []domain.Question, listener Listener, startUser domain.UserRecord) (*Progression, error) {
	userID := session.UserID()
	var p *Progression
	p, err := NewProgression(ProgressionConfig{
		Category:   category,
		Questions:  qs,
		Options:    s.opts.Progression,
		Calculator: s.calc,
		Scheduler:  s.sched,
		Listener:   listener,
		Logger:     s.logger,
		Hooks: Hooks{
			AnswerLocked: func(outcome *AnswerOutcome) {
				s.creditAnswer(userID, category, outcome)
			},
			Completed: func(result *QuizResult) {
				s.completeQuiz(userID, startUser, result)
				session.finish(p)
			},
		},
	})
	if err != nil {
		return nil, err
	}
	session.setActive(p, category)
	p.Start()
	return p, nil
}

// creditAnswer runs on timer goroutines as well as request goroutines, so it uses its own context.
func (s *QuizService) creditAnswer(userID, category string, outcome *AnswerOutcome) {
	ctx := context.Background()
	credit := 0
	if outcome.Correct {
		credit = s.calc.QuestionReward(outcome.Bonus)
	}
	_, err := s.users.Update(ctx, userID, func(u *domain.UserRecord) error {
		u.Coins += credit
		u.Streak = outcome.Streak
		return nil
	})
	switch {
	case err == nil:
		outcome.CoinsAwarded = credit
	case errors.Is(err, domain.ErrPersistence):
		outcome.CoinsAwarded = credit
		outcome.Warning = "progress could not be saved"
	default:
		s.logger.Error("answer credit failed", "user", userID, "error", err)
		outcome.Warning = "coins could not be credited"
	}

	snap := domain.ProgressSnapshot{
		UserID:        userID,
		Category:      category,
		QuestionIndex: outcome.Index,
		Score:         outcome.Score,
		Streak:        outcome.Streak,
		UpdatedAt:     s.now().UTC(),
	}
	if err := s.progress.Save(ctx, snap); err != nil {
		s.logger.Warn("progress not saved", "user", userID, "error", err)
	}
}

func (s *QuizService) completeQuiz(userID string, before domain.UserRecord, result *QuizResult) {
	ctx := context.Background()
	after, err := s.users.Update(ctx, userID, func(u *domain.UserRecord) error {
		recordCompletion(u, *result, s.now().UTC())
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrPersistence):
		result.Warning = "progress could not be saved"
	default:
		s.logger.Error("quiz completion not recorded", "user", userID, "error", err)
		result.Warning = "result could not be recorded"
		return
	}
	result.Achievements = NewlyUnlocked(before, after)

	if err := s.progress.Delete(ctx, userID); err != nil {
		s.logger.Warn("progress not cleared", "user", userID, "error", err)
	}
	s.logger.Info("quiz completed",
		"user", userID,
		"category", result.Category,
		"score", result.Score,
		"total", result.Total,
		"coins", result.CoinsEarned,
	)
}
