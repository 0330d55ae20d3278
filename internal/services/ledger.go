package services

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"skill-exchange/challenge-service/internal/models"
)

// CompletionResult reports whether a completion attempt credited XP.
type CompletionResult struct {
	Applied bool
	XPDelta int
}

// RecordCompletion appends a ledger entry for challengeID unless one already
// exists. A resubmission is a benign no-op, not an error, so clients that
// retry cannot double-credit XP.
func RecordCompletion(p *models.UserProgression, challengeID primitive.ObjectID, xpReward int, now time.Time) CompletionResult {
	if _, done := LatestCompletions(p)[challengeID]; done {
		return CompletionResult{}
	}

	p.CompletedChallenges = append(p.CompletedChallenges, models.CompletionEntry{
		ChallengeID: challengeID,
		CompletedAt: now,
	})

	return CompletionResult{Applied: true, XPDelta: xpReward}
}

// LatestCompletions collapses the raw ledger into one timestamp per
// challenge, keeping the most recent entry. Older documents may hold
// duplicate entries per challenge, so every read path goes through here.
func LatestCompletions(p *models.UserProgression) map[primitive.ObjectID]time.Time {
	latest := make(map[primitive.ObjectID]time.Time, len(p.CompletedChallenges))
	for _, entry := range p.CompletedChallenges {
		if prev, ok := latest[entry.ChallengeID]; !ok || entry.CompletedAt.After(prev) {
			latest[entry.ChallengeID] = entry.CompletedAt
		}
	}
	return latest
}

// CompletedOn returns the ids of challenges whose latest completion falls on
// the given calendar day, sorted for deterministic output.
func CompletedOn(p *models.UserProgression, day time.Time) []primitive.ObjectID {
	var ids []primitive.ObjectID
	for id, at := range LatestCompletions(p) {
		if sameDay(at, day) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	return ids
}

// DoneOnDay reports whether the challenge's latest completion falls on the
// given calendar day. Calendar date comparison, not a rolling 24h window.
func DoneOnDay(p *models.UserProgression, challengeID primitive.ObjectID, day time.Time) bool {
	at, ok := LatestCompletions(p)[challengeID]
	return ok && sameDay(at, day)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
