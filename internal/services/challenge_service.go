package services

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"skill-exchange/challenge-service/internal/models"
	"skill-exchange/challenge-service/internal/utils"
)

const (
	catalogCacheKey = "challenges:all"
	catalogCacheTTL = 10 * time.Minute

	// DefaultRecommendationLimit caps recommended lists when the caller
	// does not pass a limit.
	DefaultRecommendationLimit = 5

	// completionWriteRetries bounds re-reads when a completion write loses
	// a version race with another update to the same user.
	completionWriteRetries = 3
)

type UserRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.UserProgression, error)
	ApplyCompletion(ctx context.Context, p *models.UserProgression, challengeID primitive.ObjectID) error
}

type ChallengeRepository interface {
	GetAll(ctx context.Context) ([]models.Challenge, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Challenge, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Challenge, error)
	Create(ctx context.Context, ch *models.Challenge) error
	Update(ctx context.Context, ch *models.Challenge) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ProgressionSnapshot is the user-facing view of progression state.
type ProgressionSnapshot struct {
	XP             int      `json:"xp"`
	Level          int      `json:"level"`
	CurrentLevelXP int      `json:"currentLevelXP"`
	NextLevelXP    int      `json:"nextLevelXP"`
	Streak         int      `json:"streak"`
	CompletedToday int      `json:"completedToday"`
	DailyGoal      int      `json:"dailyGoal"`
	Badges         []string `json:"badges"`
}

// CompletionOutcome is returned for every completion request, including the
// idempotent already-completed case.
type CompletionOutcome struct {
	Progression      ProgressionSnapshot `json:"progression"`
	AlreadyCompleted bool                `json:"alreadyCompleted"`
	NewBadges        []Badge             `json:"newBadges"`
}

// ChallengeService orchestrates the progression engine: ledger, level curve,
// streaks, badges, ranking. All state transitions are pure transforms on a
// snapshot; persistence happens in one atomic write at the end.
type ChallengeService struct {
	users      UserRepository
	challenges ChallengeRepository
	ranker     *Ranker
	streak     StreakTracker
	cache      *utils.RedisClient
	now        func() time.Time
}

func NewChallengeService(users UserRepository, challenges ChallengeRepository, ranker *Ranker, streak StreakTracker, cache *utils.RedisClient) *ChallengeService {
	return &ChallengeService{
		users:      users,
		challenges: challenges,
		ranker:     ranker,
		streak:     streak,
		cache:      cache,
		now:        time.Now,
	}
}

// GetProgression returns the derived progression view for a user.
func (s *ChallengeService) GetProgression(ctx context.Context, userID primitive.ObjectID) (*ProgressionSnapshot, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap := s.snapshot(user)
	return &snap, nil
}

// CompleteChallenge runs the completion state machine. Duplicate submissions
// return the current snapshot flagged alreadyCompleted instead of an error so
// client retries cannot corrupt XP totals. The whole transform is re-applied
// on a fresh read whenever the versioned write loses a race, so concurrent
// completions of different challenges never erase each other.
func (s *ChallengeService) CompleteChallenge(ctx context.Context, userID, challengeID primitive.ObjectID) (*CompletionOutcome, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		now := s.now()
		res := RecordCompletion(user, challenge.ID, challenge.XP, now)
		if !res.Applied {
			return &CompletionOutcome{Progression: s.snapshot(user), AlreadyCompleted: true, NewBadges: []Badge{}}, nil
		}

		user.XP += res.XPDelta
		user.Level = models.LevelFor(user.XP).Level
		s.streak.Apply(user, now)
		newBadges := EvaluateBadges(user)

		err = s.users.ApplyCompletion(ctx, user, challenge.ID)
		if err == nil {
			return &CompletionOutcome{Progression: s.snapshot(user), NewBadges: newBadges}, nil
		}
		if !errors.Is(err, models.ErrConflict) || attempt == completionWriteRetries-1 {
			return nil, err
		}

		// Another writer advanced the document between our read and
		// write. Re-read; if it recorded this same challenge the next
		// pass reports alreadyCompleted.
		user, err = s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
	}
}

// ListAll returns the whole catalog with completed flags, unranked.
func (s *ChallengeService) ListAll(ctx context.Context, userID primitive.ObjectID) ([]RankedChallenge, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	completed := LatestCompletions(user)
	out := make([]RankedChallenge, 0, len(catalog))
	for _, ch := range catalog {
		_, done := completed[ch.ID]
		out = append(out, RankedChallenge{Challenge: ch, Completed: done})
	}
	return out, nil
}

// ListPersonalized ranks the catalog against the user's interests and level.
func (s *ChallengeService) ListPersonalized(ctx context.Context, userID primitive.ObjectID) ([]RankedChallenge, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	return s.ranker.Rank(catalog, user.Interests, models.LevelFor(user.XP).Level, LatestCompletions(user)), nil
}

// ListDaily returns ranked daily challenges flagged by today's completion
// only, so yesterday's run does not show today's daily as done.
func (s *ChallengeService) ListDaily(ctx context.Context, userID primitive.ObjectID) ([]RankedChallenge, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	today := s.now()
	var daily []models.Challenge
	for _, ch := range catalog {
		if ch.DailyChallenge {
			daily = append(daily, ch)
		}
	}

	completedToday := make(map[primitive.ObjectID]time.Time)
	for id, at := range LatestCompletions(user) {
		if sameDay(at, today) {
			completedToday[id] = at
		}
	}

	return s.ranker.Rank(daily, user.Interests, models.LevelFor(user.XP).Level, completedToday), nil
}

// ListRecommended returns the top-N ranked challenges.
func (s *ChallengeService) ListRecommended(ctx context.Context, userID primitive.ObjectID, limit int) ([]RankedChallenge, error) {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}

	ranked, err := s.ListPersonalized(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// ListCompleted returns the catalog entries the user has completed.
func (s *ChallengeService) ListCompleted(ctx context.Context, userID primitive.ObjectID) ([]RankedChallenge, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	completed := LatestCompletions(user)
	ids := make([]primitive.ObjectID, 0, len(completed))
	for id := range completed {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return []RankedChallenge{}, nil
	}

	challenges, err := s.challenges.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]RankedChallenge, 0, len(challenges))
	for _, ch := range challenges {
		out = append(out, RankedChallenge{Challenge: ch, Completed: true})
	}
	return out, nil
}

// GetChallenge returns a single catalog entry with the user's completed flag.
func (s *ChallengeService) GetChallenge(ctx context.Context, userID, challengeID primitive.ObjectID) (*RankedChallenge, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	_, done := LatestCompletions(user)[challenge.ID]
	return &RankedChallenge{Challenge: *challenge, Completed: done}, nil
}

// CreateChallenge validates and stores a new catalog entry.
func (s *ChallengeService) CreateChallenge(ctx context.Context, ch *models.Challenge) error {
	if err := ch.Validate(); err != nil {
		return err
	}
	if err := s.challenges.Create(ctx, ch); err != nil {
		return err
	}
	s.invalidateCatalogCache(ctx)
	return nil
}

// UpdateChallenge validates and replaces an existing catalog entry.
func (s *ChallengeService) UpdateChallenge(ctx context.Context, ch *models.Challenge) error {
	if ch.ID.IsZero() {
		return models.ErrInvalidID
	}
	if err := ch.Validate(); err != nil {
		return err
	}
	if err := s.challenges.Update(ctx, ch); err != nil {
		return err
	}
	s.invalidateCatalogCache(ctx)
	return nil
}

// DeleteChallenge removes a catalog entry.
func (s *ChallengeService) DeleteChallenge(ctx context.Context, id primitive.ObjectID) error {
	if err := s.challenges.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCatalogCache(ctx)
	return nil
}

// RefreshCatalogCache re-reads the catalog into the cache. Used by the
// periodic refresher; safe to call with caching disabled.
func (s *ChallengeService) RefreshCatalogCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	catalog, err := s.challenges.GetAll(ctx)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, catalogCacheKey, catalog, catalogCacheTTL)
}

// loadCatalog reads through the cache. The catalog is read-only here, so a
// slightly stale copy is acceptable; cache failures fall back to the store.
func (s *ChallengeService) loadCatalog(ctx context.Context) ([]models.Challenge, error) {
	if s.cache != nil {
		var cached []models.Challenge
		if err := s.cache.Get(ctx, catalogCacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, utils.ErrCacheMiss) {
			log.Printf("[CACHE] catalog read failed: %v", err)
		}
	}

	catalog, err := s.challenges.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, catalogCacheKey, catalog, catalogCacheTTL); err != nil {
			log.Printf("[CACHE] catalog write failed: %v", err)
		}
	}
	return catalog, nil
}

func (s *ChallengeService) invalidateCatalogCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
		log.Printf("[CACHE] catalog invalidate failed: %v", err)
	}
}

func (s *ChallengeService) snapshot(p *models.UserProgression) ProgressionSnapshot {
	info := models.LevelFor(p.XP)
	badges := p.Badges
	if badges == nil {
		badges = []string{}
	}

	// completedToday counts the calendar day of the last completion; once
	// that day has passed the stored value only means "nothing yet today".
	completedToday := p.CompletedToday
	if !sameDay(p.LastCompletedAt, s.now()) {
		completedToday = 0
	}

	return ProgressionSnapshot{
		XP:             p.XP,
		Level:          info.Level,
		CurrentLevelXP: info.CurrentLevelXP,
		NextLevelXP:    info.NextLevelXP,
		Streak:         p.DailyStreak,
		CompletedToday: completedToday,
		DailyGoal:      p.Goal(),
		Badges:         badges,
	}
}
