package domain

import "errors"

var (
	// ErrSourceUnavailable is returned when a question source cannot be read or parsed.
	ErrSourceUnavailable = errors.New("question source unavailable")
	// ErrFatalLoad indicates no source produced a playable question set.
	ErrFatalLoad = errors.New("no questions available")
	// ErrInvalidQuestion marks a question that fails shape validation.
	ErrInvalidQuestion = errors.New("invalid question shape")
	// ErrInvalidCount is returned when a requested question count is out of range.
	ErrInvalidCount = errors.New("question count out of range")
	// ErrInvalidCategory is returned for an empty category key.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrCategoryUnavailable is returned when a paid category has no questions of its own.
	ErrCategoryUnavailable = errors.New("category has no playable questions")
	// ErrNegativeInput is returned when the reward calculator receives a negative count.
	ErrNegativeInput = errors.New("reward input must not be negative")
	// ErrTooManyCorrect is returned when correct answers exceed the question total.
	ErrTooManyCorrect = errors.New("correct answers exceed total questions")
	// ErrPersistence indicates a user record could not be written; in-memory state still holds.
	ErrPersistence = errors.New("user record not persisted")
	// ErrUnknownUser is returned when no record exists for a user id.
	ErrUnknownUser = errors.New("user not found")
	// ErrNoActiveQuiz is returned when a quiz action arrives with no quiz running.
	ErrNoActiveQuiz = errors.New("no active quiz")
)
