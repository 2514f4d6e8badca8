package questions

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"techkwiz-quiz-service/internal/domain"
)

const (
	// AdminKey is the key/value entry holding admin-authored questions as a JSON array.
	AdminKey = "admin_quiz_questions"
	// MinViable is the smallest question set a source must yield to win resolution.
	MinViable = 3
	// MaxCount bounds a single request.
	MaxCount = 50
)

// Source names where a resolved question set came from.
type Source string

const (
	SourceAdmin  Source = "admin"
	SourceStatic Source = "static"
	SourceSample Source = "sample"
)

// Store reads the admin question entry.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// StaticSource is the built-in question bank.
type StaticSource interface {
	Categories() []domain.Category
	Questions(categoryID string) []domain.Question
}

// Resolver picks the question set for a quiz: admin questions, then the static bank,
// then the sample set. Results are cached per (category, count, section) with a TTL.
type Resolver struct {
	store  Store
	static StaticSource
	logger *slog.Logger
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	source    Source
	expiresAt time.Time
}

// NewResolver creates a resolver. store may be nil, in which case admin questions are skipped.
func NewResolver(store Store, static StaticSource, logger *slog.Logger, ttl time.Duration) *Resolver {
	return &Resolver{
		store:  store,
		static: static,
		logger: logger,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestions),
	}
}

// Resolve returns at most count questions for categoryKey.
func (r *Resolver) Resolve(ctx context.Context, categoryKey string, count int, section domain.Section) ([]domain.Question, error) {
	qs, _, err := r.ResolveWithSource(ctx, categoryKey, count, section)
	return qs, err
}

// ResolveWithSource is Resolve that also reports which source won.
func (r *Resolver) ResolveWithSource(ctx context.Context, categoryKey string, count int, section domain.Section) ([]domain.Question, Source, error) {
	if categoryKey == "" {
		return nil, "", domain.ErrInvalidCategory
	}
	if count < 1 || count > MaxCount {
		return nil, "", fmt.Errorf("%w: %d", domain.ErrInvalidCount, count)
	}

	key := cacheKey(categoryKey, count, section)
	if entry, ok := r.cached(key); ok {
		return slices.Clone(entry.questions), entry.source, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if entry, ok := r.cached(key); ok {
			return entry, nil
		}
		qs, source, err := r.load(ctx, categoryKey, count, section)
		if err != nil {
			return cachedQuestions{}, err
		}
		entry := cachedQuestions{questions: qs, source: source}
		r.mu.Lock()
		entry.expiresAt = r.clock().Add(r.ttlWithJitter())
		if r.ttl > 0 {
			r.cache[key] = entry
		}
		r.mu.Unlock()
		return entry, nil
	})
	if err != nil {
		return nil, "", err
	}
	entry := result.(cachedQuestions)
	return slices.Clone(entry.questions), entry.source, nil
}

// ClearCache drops every cached question set.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	r.cache = make(map[string]cachedQuestions)
	r.mu.Unlock()
}

// Categories lists the static categories followed by admin-only categories that carry
// at least MinViable questions of their own.
func (r *Resolver) Categories(ctx context.Context) []domain.Category {
	cats := r.static.Categories()
	seen := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		seen[c.ID] = struct{}{}
	}
	admin, err := r.adminQuestions(ctx)
	if err != nil {
		return cats
	}
	for _, q := range admin {
		if q.Category == "" {
			continue
		}
		if _, ok := seen[q.Category]; ok {
			continue
		}
		seen[q.Category] = struct{}{}
		if len(filterAdmin(admin, q.Category, domain.SectionCategory)) < MinViable {
			continue
		}
		cats = append(cats, domain.Category{ID: q.Category, Name: q.Category})
	}
	return cats
}

func (r *Resolver) load(ctx context.Context, categoryKey string, count int, section domain.Section) ([]domain.Question, Source, error) {
	need := min(count, MinViable)

	admin, err := r.adminQuestions(ctx)
	if err != nil {
		r.logger.Warn("admin questions unavailable", "category", categoryKey, "error", err)
	}
	if picked := filterAdmin(admin, categoryKey, section); len(picked) >= need {
		r.logger.Debug("resolved questions", "category", categoryKey, "source", SourceAdmin, "count", min(len(picked), count))
		return picked[:min(len(picked), count)], SourceAdmin, nil
	}

	static, rejected := ValidateAll(r.logger, r.static.Questions(categoryKey))
	if rejected > 0 {
		r.logger.Debug("static questions rejected", "category", categoryKey, "rejected", rejected)
	}
	if section == domain.SectionHomepage {
		static = filterBeginner(static)
	}
	if len(static) >= need {
		r.logger.Debug("resolved questions", "category", categoryKey, "source", SourceStatic, "count", min(len(static), count))
		return static[:min(len(static), count)], SourceStatic, nil
	}

	sample, _ := ValidateAll(r.logger, sampleQuestions())
	if len(sample) == 0 {
		return nil, "", domain.ErrFatalLoad
	}
	r.logger.Info("using sample questions", "category", categoryKey)
	return sample[:min(len(sample), count)], SourceSample, nil
}

func (r *Resolver) adminQuestions(ctx context.Context) ([]domain.Question, error) {
	if r.store == nil {
		return nil, nil
	}
	raw, ok, err := r.store.Get(ctx, AdminKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	raws, err := Decode([]byte(raw))
	if err != nil {
		return nil, err
	}
	qs, _ := NormalizeAll(r.logger, raws)
	return qs, nil
}

func filterAdmin(qs []domain.Question, categoryKey string, section domain.Section) []domain.Question {
	out := make([]domain.Question, 0, len(qs))
	for _, q := range qs {
		if section == domain.SectionHomepage {
			if q.Section == domain.SectionHomepage && q.Difficulty == domain.DifficultyBeginner {
				out = append(out, q)
			}
			continue
		}
		if q.Category != categoryKey {
			continue
		}
		if section != "" && q.Section != "" && q.Section != section {
			continue
		}
		out = append(out, q)
	}
	return out
}

func filterBeginner(qs []domain.Question) []domain.Question {
	out := qs[:0]
	for _, q := range qs {
		if q.Difficulty == domain.DifficultyBeginner {
			out = append(out, q)
		}
	}
	return out
}

func (r *Resolver) cached(key string) (cachedQuestions, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[key]
	if !ok || !entry.expiresAt.After(now) {
		return cachedQuestions{}, false
	}
	return entry, true
}

func cacheKey(categoryKey string, count int, section domain.Section) string {
	s := string(section)
	if s == "" {
		s = "all"
	}
	return fmt.Sprintf("%s-%s-%d", categoryKey, s, count)
}

// ttlWithJitter must be called with mu held.
func (r *Resolver) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
