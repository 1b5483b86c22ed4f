// Package leaderboard turns user snapshots into ranked, segmented standings.
package leaderboard

import (
	"sort"

	"quizarena-service/internal/domain"
)

// Segments are the presentation slices of a ranking.
const (
	PodiumSize     = 3
	ChallengerSize = 5
	RisingSize     = 5
)

// Standings is a ranked leaderboard snapshot split into presentation tiers.
// The full table is always Entries; the slices share its backing array.
type Standings struct {
	Entries     []domain.LeaderboardEntry `json:"entries"`
	Podium      []domain.LeaderboardEntry `json:"podium"`
	Challengers []domain.LeaderboardEntry `json:"challengers"`
	Rising      []domain.LeaderboardEntry `json:"rising"`
	Remainder   []domain.LeaderboardEntry `json:"remainder"`
}

// Less is the single ordering rule for all ranking reads: points descending,
// ties broken by earlier account creation, then username. Keeping it in one
// place keeps the public table and personal-rank queries consistent.
func Less(a, b domain.User) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Username < b.Username
}

// Rank filters out users who have never played, orders the rest, and assigns
// 1-based sequential ranks. Equal points still get distinct consecutive ranks.
func Rank(users []domain.User) []domain.LeaderboardEntry {
	played := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.TotalQuizzesPlayed > 0 {
			played = append(played, u)
		}
	}
	sort.Slice(played, func(i, j int) bool { return Less(played[i], played[j]) })

	entries := make([]domain.LeaderboardEntry, 0, len(played))
	for i, u := range played {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:         i + 1,
			UserID:       u.ID,
			Username:     u.Username,
			Points:       u.Points,
			Level:        u.Level,
			QuizzesTaken: u.TotalQuizzesPlayed,
		})
	}
	return entries
}

// Segment slices a ranked table into top-3 / next-5 / following-5 / remainder.
func Segment(entries []domain.LeaderboardEntry) Standings {
	s := Standings{Entries: entries}
	cut := func(from, size int) []domain.LeaderboardEntry {
		if from >= len(entries) {
			return nil
		}
		to := from + size
		if to > len(entries) {
			to = len(entries)
		}
		return entries[from:to]
	}
	s.Podium = cut(0, PodiumSize)
	s.Challengers = cut(PodiumSize, ChallengerSize)
	s.Rising = cut(PodiumSize+ChallengerSize, RisingSize)
	if rest := PodiumSize + ChallengerSize + RisingSize; rest < len(entries) {
		s.Remainder = entries[rest:]
	}
	return s
}
