package scoring

import "quizarena-service/internal/domain"

// Tier names a difficulty bucket.
type Tier string

const (
	TierEasy   Tier = "easy"
	TierMedium Tier = "medium"
	TierHard   Tier = "hard"
	TierExpert Tier = "expert"
)

// Classify maps a quiz difficulty (0-10) to its tier and the points awarded
// per correct answer. Out-of-range values are rejected rather than clamped so
// corrupt quiz data surfaces instead of silently scoring as easy.
func Classify(difficulty int) (Tier, int, error) {
	switch {
	case difficulty < 0 || difficulty > 10:
		return "", 0, domain.ErrInvalidDifficulty
	case difficulty <= 2:
		return TierEasy, 10, nil
	case difficulty <= 5:
		return TierMedium, 15, nil
	case difficulty <= 8:
		return TierHard, 20, nil
	default:
		return TierExpert, 25, nil
	}
}
