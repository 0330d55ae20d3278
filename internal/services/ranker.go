package services

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"skill-exchange/challenge-service/internal/models"
)

const (
	interestWeight = 0.8
	jitterWeight   = 0.2
	// baselineScore keeps challenges ranked even for users with no interests.
	baselineScore = 0.1
	// dailyBonus nudges daily challenges toward the top of the list.
	dailyBonus = 0.15
)

// RankedChallenge is a catalog entry scored against one user's profile.
type RankedChallenge struct {
	models.Challenge
	Completed bool    `json:"completed"`
	Score     float64 `json:"relevanceScore"`
	Reason    string  `json:"recommendationReason,omitempty"`
}

// Ranker orders a challenge catalog by relevance to a user. The jitter term
// is an intentional exploration mechanism; seed it for reproducible tests.
type Ranker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRanker(seed int64) *Ranker {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Ranker{rng: rand.New(rand.NewSource(seed))}
}

// Rank filters the catalog to the difficulty band reachable at level, scores
// each candidate against the user's interests and sorts descending. Inputs
// are never mutated.
func (r *Ranker) Rank(challenges []models.Challenge, interests []string, level int, completed map[primitive.ObjectID]time.Time) []RankedChallenge {
	allowed := difficultyBand(level)
	interestSet := make(map[string]struct{}, len(interests))
	for _, tag := range interests {
		interestSet[tag] = struct{}{}
	}

	ranked := make([]RankedChallenge, 0, len(challenges))
	for _, ch := range challenges {
		if _, ok := allowed[ch.Difficulty]; !ok {
			continue
		}

		matched := matchingTags(ch.Tags, interestSet)
		score := baselineScore
		if len(interestSet) > 0 && len(ch.Tags) > 0 {
			score = float64(len(matched)) / float64(len(ch.Tags)) * interestWeight
		}
		score += r.jitter() * jitterWeight
		if ch.DailyChallenge {
			score += dailyBonus
		}

		_, done := completed[ch.ID]
		ranked = append(ranked, RankedChallenge{
			Challenge: ch,
			Completed: done,
			Score:     score,
			Reason:    reason(ch, interestSet, matched),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}

func (r *Ranker) jitter() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// difficultyBand is cumulative: higher levels still see easier challenges.
func difficultyBand(level int) map[models.Difficulty]struct{} {
	band := map[models.Difficulty]struct{}{models.DifficultyBeginner: {}}
	if level > 5 {
		band[models.DifficultyIntermediate] = struct{}{}
	}
	if level > 10 {
		band[models.DifficultyAdvanced] = struct{}{}
	}
	return band
}

func matchingTags(tags []string, interests map[string]struct{}) []string {
	var matched []string
	for _, tag := range tags {
		if _, ok := interests[tag]; ok {
			matched = append(matched, tag)
		}
	}
	return matched
}

func reason(ch models.Challenge, interests map[string]struct{}, matched []string) string {
	if ch.DailyChallenge {
		return "Daily Challenge"
	}
	if _, ok := interests[ch.Category]; ok {
		return fmt.Sprintf("Based on your interest in %s", ch.Category)
	}
	if len(matched) > 0 {
		return fmt.Sprintf("Based on your interests: %s", strings.Join(matched, ", "))
	}
	return "Explore something new"
}
