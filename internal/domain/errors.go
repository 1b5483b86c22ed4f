package domain

import "errors"

var (
	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrQuizNotFound indicates the quiz could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrResultNotFound indicates the user has no result for the quiz.
	ErrResultNotFound = errors.New("result not found")
	// ErrInvalidAnswers indicates the answer vector does not match the quiz.
	ErrInvalidAnswers = errors.New("answer vector does not match quiz questions")
	// ErrInvalidDifficulty indicates a difficulty outside the 0-10 range.
	ErrInvalidDifficulty = errors.New("difficulty out of range")
	// ErrFreeTierLimit is a normal control-flow outcome, not a fault: the
	// free generation quota is exhausted.
	ErrFreeTierLimit = errors.New("free tier limit reached")
	// ErrGenerationFailed wraps failures of the external quiz generator.
	ErrGenerationFailed = errors.New("quiz generation failed")
	// ErrConflict signals a counter update lost a race; callers may retry.
	ErrConflict = errors.New("concurrent update conflict")
)
