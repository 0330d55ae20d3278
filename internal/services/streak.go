package services

import (
	"time"

	"skill-exchange/challenge-service/internal/models"
)

// StreakTracker applies daily-goal accounting to a progression snapshot.
// ResetOnMissedDay zeroes the streak after a skipped calendar day; it is off
// by default to match the established product behavior, pending a product
// decision on decay.
type StreakTracker struct {
	ResetOnMissedDay bool
}

// Apply updates completedToday and dailyStreak for one completion at now.
// The streak advances at most once per calendar day: re-meeting the goal the
// same day is a no-op, gated by the persisted lastStreakAt date.
func (t StreakTracker) Apply(p *models.UserProgression, now time.Time) {
	if !p.LastCompletedAt.IsZero() && !sameDay(p.LastCompletedAt, now) {
		// First completion of a new day only counts today's work.
		p.CompletedToday = 0
		if t.ResetOnMissedDay && daysApart(p.LastCompletedAt, now) > 1 {
			p.DailyStreak = 0
		}
	}

	p.CompletedToday++

	if p.CompletedToday >= p.Goal() && !sameDay(p.LastStreakAt, now) {
		p.DailyStreak++
		p.CompletedToday = 0
		p.LastStreakAt = now
	}

	p.LastCompletedAt = now
}

func daysApart(a, b time.Time) int {
	au := a.UTC()
	bu := b.UTC()
	aDay := time.Date(au.Year(), au.Month(), au.Day(), 0, 0, 0, 0, time.UTC)
	bDay := time.Date(bu.Year(), bu.Month(), bu.Day(), 0, 0, 0, 0, time.UTC)
	diff := int(bDay.Sub(aDay).Hours() / 24)
	if diff < 0 {
		diff = -diff
	}
	return diff
}
