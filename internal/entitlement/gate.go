// Package entitlement decides whether a user may generate another AI quiz.
package entitlement

import (
	"time"

	"quizarena-service/internal/domain"
)

// Decision is the outcome of an entitlement check. Denial is ordinary control
// flow carried as data, not an error.
type Decision struct {
	Allowed      bool   `json:"allowed"`
	Premium      bool   `json:"premium"`
	Remaining    int    `json:"remaining"` // meaningful only for free-tier allows
	LimitReached bool   `json:"limitReached"`
	Message      string `json:"message,omitempty"`
}

const limitMessage = "You have reached your limit of 3 AI-generated quizzes. Upgrade to Premium for unlimited quiz generation!"

// Evaluate applies the gate rules at the given instant:
// effective premium allows unconditionally and never consumes quota; free
// users are allowed while fewer than domain.FreeGenerationLimit generations
// have been consumed. An expired premium is treated exactly like free tier.
//
// Evaluate is advisory only: the authoritative admission happens at the
// store's conditional increment, so two racing requests cannot both consume
// the last free slot.
func Evaluate(user domain.User, now time.Time) Decision {
	if user.EffectivePremium(now) {
		return Decision{Allowed: true, Premium: true}
	}
	remaining := domain.FreeGenerationLimit - user.AIQuizzesGenerated
	if remaining > 0 {
		return Decision{Allowed: true, Remaining: remaining}
	}
	return Decision{
		LimitReached: true,
		Message:      limitMessage,
	}
}
