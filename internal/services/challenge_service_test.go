package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"skill-exchange/challenge-service/internal/models"
)

type fakeUserRepo struct {
	users map[primitive.ObjectID]*models.UserProgression
	// beforeApply runs once before the next write, standing in for
	// another request touching the same document.
	beforeApply func()
}

func (f *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.UserProgression, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return copyProgression(u), nil
}

func (f *fakeUserRepo) ApplyCompletion(_ context.Context, p *models.UserProgression, challengeID primitive.ObjectID) error {
	if f.beforeApply != nil {
		hook := f.beforeApply
		f.beforeApply = nil
		hook()
	}

	stored, ok := f.users[p.ID]
	if !ok || stored.Version != p.Version {
		return models.ErrConflict
	}
	for _, e := range stored.CompletedChallenges {
		if e.ChallengeID == challengeID {
			return models.ErrConflict
		}
	}

	next := copyProgression(p)
	next.Version++
	f.users[p.ID] = next
	return nil
}

func copyProgression(p *models.UserProgression) *models.UserProgression {
	cp := *p
	cp.CompletedChallenges = append([]models.CompletionEntry(nil), p.CompletedChallenges...)
	cp.Badges = append([]string(nil), p.Badges...)
	cp.Interests = append([]string(nil), p.Interests...)
	return &cp
}

type fakeChallengeRepo struct {
	challenges map[primitive.ObjectID]models.Challenge
}

func (f *fakeChallengeRepo) GetAll(context.Context) ([]models.Challenge, error) {
	var all []models.Challenge
	for _, ch := range f.challenges {
		all = append(all, ch)
	}
	return all, nil
}

func (f *fakeChallengeRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Challenge, error) {
	ch, ok := f.challenges[id]
	if !ok {
		return nil, models.ErrChallengeNotFound
	}
	return &ch, nil
}

func (f *fakeChallengeRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Challenge, error) {
	var found []models.Challenge
	for _, id := range ids {
		if ch, ok := f.challenges[id]; ok {
			found = append(found, ch)
		}
	}
	return found, nil
}

func (f *fakeChallengeRepo) Create(_ context.Context, ch *models.Challenge) error {
	ch.ID = primitive.NewObjectID()
	f.challenges[ch.ID] = *ch
	return nil
}

func (f *fakeChallengeRepo) Update(_ context.Context, ch *models.Challenge) error {
	if _, ok := f.challenges[ch.ID]; !ok {
		return models.ErrChallengeNotFound
	}
	f.challenges[ch.ID] = *ch
	return nil
}

func (f *fakeChallengeRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.challenges[id]; !ok {
		return models.ErrChallengeNotFound
	}
	delete(f.challenges, id)
	return nil
}

func newTestService(users *fakeUserRepo, challenges *fakeChallengeRepo, at time.Time) *ChallengeService {
	svc := NewChallengeService(users, challenges, NewRanker(1), StreakTracker{}, nil)
	svc.now = func() time.Time { return at }
	return svc
}

func seedUser(id primitive.ObjectID) *fakeUserRepo {
	return &fakeUserRepo{users: map[primitive.ObjectID]*models.UserProgression{
		id: {ID: id, Level: 1},
	}}
}

func TestCompleteChallenge_AwardsXPAndRecomputesLevel(t *testing.T) {
	userID := oid(1)
	users := seedUser(userID)
	challenges := &fakeChallengeRepo{challenges: map[primitive.ObjectID]models.Challenge{
		oid(10): {ID: oid(10), Title: "Go basics", Difficulty: models.DifficultyBeginner, XP: 600},
	}}
	svc := newTestService(users, challenges, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))

	outcome, err := svc.CompleteChallenge(context.Background(), userID, oid(10))
	if err != nil {
		t.Fatalf("CompleteChallenge: %v", err)
	}
	if outcome.AlreadyCompleted {
		t.Error("fresh completion reported alreadyCompleted")
	}
	if outcome.Progression.XP != 600 || outcome.Progression.Level != 2 {
		t.Errorf("progression = %+v, want xp=600 level=2", outcome.Progression)
	}
	if outcome.Progression.CompletedToday != 1 {
		t.Errorf("completedToday = %d, want 1", outcome.Progression.CompletedToday)
	}

	stored := users.users[userID]
	if stored.XP != 600 || stored.Level != 2 || len(stored.CompletedChallenges) != 1 {
		t.Errorf("persisted progression = %+v, want the applied completion", stored)
	}
}

func TestCompleteChallenge_Idempotent(t *testing.T) {
	userID := oid(1)
	users := seedUser(userID)
	challenges := &fakeChallengeRepo{challenges: map[primitive.ObjectID]models.Challenge{
		oid(10): {ID: oid(10), Title: "Go basics", Difficulty: models.DifficultyBeginner, XP: 250},
	}}
	svc := newTestService(users, challenges, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))

	first, err := svc.CompleteChallenge(context.Background(), userID, oid(10))
	if err != nil {
		t.Fatalf("first completion: %v", err)
	}
	second, err := svc.CompleteChallenge(context.Background(), userID, oid(10))
	if err != nil {
		t.Fatalf("second completion: %v", err)
	}

	if !second.AlreadyCompleted {
		t.Error("resubmission not flagged alreadyCompleted")
	}
	if second.Progression.XP != first.Progression.XP || second.Progression.Level != first.Progression.Level {
		t.Errorf("resubmission changed progression: %+v vs %+v", second.Progression, first.Progression)
	}
	if len(second.NewBadges) != 0 {
		t.Errorf("resubmission awarded badges: %v", second.NewBadges)
	}
	if got := len(users.users[userID].CompletedChallenges); got != 1 {
		t.Errorf("ledger has %d entries after resubmission, want 1", got)
	}
}

func TestCompleteChallenge_BadgeAwardedExactlyOnce(t *testing.T) {
	userID := oid(1)
	users := seedUser(userID)
	challenges := &fakeChallengeRepo{challenges: map[primitive.ObjectID]models.Challenge{
		oid(10): {ID: oid(10), Title: "A", Difficulty: models.DifficultyBeginner, XP: 100},
		oid(11): {ID: oid(11), Title: "B", Difficulty: models.DifficultyBeginner, XP: 100},
		oid(12): {ID: oid(12), Title: "C", Difficulty: models.DifficultyBeginner, XP: 100},
	}}
	svc := newTestService(users, challenges, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))

	ctx := context.Background()
	first, _ := svc.CompleteChallenge(ctx, userID, oid(10))
	if containsBadge(first.NewBadges, "challenge_starter") {
		t.Error("starter badge awarded after a single completion")
	}

	second, _ := svc.CompleteChallenge(ctx, userID, oid(11))
	if !containsBadge(second.NewBadges, "challenge_starter") {
		t.Errorf("starter badge missing after second completion: %v", second.NewBadges)
	}

	third, _ := svc.CompleteChallenge(ctx, userID, oid(12))
	if containsBadge(third.NewBadges, "challenge_starter") {
		t.Error("starter badge granted twice")
	}

	count := 0
	for _, b := range users.users[userID].Badges {
		if b == "challenge_starter" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("badge stored %d times, want 1", count)
	}
}

func containsBadge(badges []Badge, id string) bool {
	for _, b := range badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

func TestCompleteChallenge_ConcurrentWriteRetried(t *testing.T) {
	userID := oid(1)
	at := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	users := seedUser(userID)
	challenges := &fakeChallengeRepo{challenges: map[primitive.ObjectID]models.Challenge{
		oid(10): {ID: oid(10), Title: "A", Difficulty: models.DifficultyBeginner, XP: 100},
		oid(11): {ID: oid(11), Title: "B", Difficulty: models.DifficultyBeginner, XP: 150},
	}}
	svc := newTestService(users, challenges, at)

	// Another request completes challenge B between this request's read
	// of the document and its write.
	users.beforeApply = func() {
		stored := users.users[userID]
		stored.CompletedChallenges = append(stored.CompletedChallenges, models.CompletionEntry{ChallengeID: oid(11), CompletedAt: at})
		stored.XP += 150
		stored.CompletedToday++
		stored.Version++
	}

	outcome, err := svc.CompleteChallenge(context.Background(), userID, oid(10))
	if err != nil {
		t.Fatalf("CompleteChallenge: %v", err)
	}
	if outcome.AlreadyCompleted {
		t.Error("completion of a different challenge reported alreadyCompleted")
	}
	if outcome.Progression.XP != 250 {
		t.Errorf("xp = %d, want 250 with both completions credited", outcome.Progression.XP)
	}

	stored := users.users[userID]
	if len(stored.CompletedChallenges) != 2 {
		t.Errorf("ledger has %d entries, want 2: a completion was lost", len(stored.CompletedChallenges))
	}
	if stored.XP != 250 || stored.CompletedToday != 2 {
		t.Errorf("persisted xp=%d completedToday=%d, want 250 and 2", stored.XP, stored.CompletedToday)
	}
}

func TestCompleteChallenge_ConcurrentSamePairBecomesIdempotent(t *testing.T) {
	userID := oid(1)
	at := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	users := seedUser(userID)
	challenges := &fakeChallengeRepo{challenges: map[primitive.ObjectID]models.Challenge{
		oid(10): {ID: oid(10), Title: "A", Difficulty: models.DifficultyBeginner, XP: 100},
	}}
	svc := newTestService(users, challenges, at)

	// A racing request records the same challenge first.
	users.beforeApply = func() {
		stored := users.users[userID]
		stored.CompletedChallenges = append(stored.CompletedChallenges, models.CompletionEntry{ChallengeID: oid(10), CompletedAt: at})
		stored.XP += 100
		stored.CompletedToday++
		stored.Version++
	}

	outcome, err := svc.CompleteChallenge(context.Background(), userID, oid(10))
	if err != nil {
		t.Fatalf("CompleteChallenge: %v", err)
	}
	if !outcome.AlreadyCompleted {
		t.Error("losing the same-pair race should report alreadyCompleted")
	}
	if outcome.Progression.XP != 100 {
		t.Errorf("xp = %d, want 100 credited exactly once", outcome.Progression.XP)
	}
	if got := len(users.users[userID].CompletedChallenges); got != 1 {
		t.Errorf("ledger has %d entries, want 1", got)
	}
}

func TestCompleteChallenge_NewBadgesNeverNil(t *testing.T) {
	userID := oid(1)
	users := seedUser(userID)
	challenges := &fakeChallengeRepo{challenges: map[primitive.ObjectID]models.Challenge{
		oid(10): {ID: oid(10), Title: "A", Difficulty: models.DifficultyBeginner, XP: 100},
	}}
	svc := newTestService(users, challenges, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))

	first, err := svc.CompleteChallenge(context.Background(), userID, oid(10))
	if err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if first.NewBadges == nil {
		t.Error("newBadges is nil on a badge-less completion, want empty list")
	}

	second, err := svc.CompleteChallenge(context.Background(), userID, oid(10))
	if err != nil {
		t.Fatalf("resubmission: %v", err)
	}
	if second.NewBadges == nil {
		t.Error("newBadges is nil on resubmission, want empty list")
	}
}

func TestCompleteChallenge_NotFound(t *testing.T) {
	users := seedUser(oid(1))
	challenges := &fakeChallengeRepo{challenges: map[primitive.ObjectID]models.Challenge{}}
	svc := newTestService(users, challenges, time.Now())

	if _, err := svc.CompleteChallenge(context.Background(), oid(9), oid(10)); !errors.Is(err, models.ErrUserNotFound) {
		t.Errorf("unknown user error = %v, want ErrUserNotFound", err)
	}
	if _, err := svc.CompleteChallenge(context.Background(), oid(1), oid(10)); !errors.Is(err, models.ErrChallengeNotFound) {
		t.Errorf("unknown challenge error = %v, want ErrChallengeNotFound", err)
	}
}

func TestGetProgression_DerivesLevelBounds(t *testing.T) {
	userID := oid(1)
	users := &fakeUserRepo{users: map[primitive.ObjectID]*models.UserProgression{
		userID: {ID: userID, XP: 1200, DailyStreak: 3},
	}}
	svc := newTestService(users, &fakeChallengeRepo{}, time.Now())

	snap, err := svc.GetProgression(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetProgression: %v", err)
	}
	if snap.Level != 3 || snap.CurrentLevelXP != 1000 || snap.NextLevelXP != 2000 {
		t.Errorf("snapshot = %+v, want level 3 bounds [1000, 2000)", snap)
	}
	if snap.Streak != 3 || snap.DailyGoal != models.DefaultDailyGoal {
		t.Errorf("snapshot = %+v, want streak 3 and default goal", snap)
	}
}

func TestGetProgression_CompletedTodayRollsOver(t *testing.T) {
	userID := oid(1)
	users := &fakeUserRepo{users: map[primitive.ObjectID]*models.UserProgression{
		userID: {ID: userID, CompletedToday: 3, LastCompletedAt: time.Date(2025, 7, 1, 22, 0, 0, 0, time.UTC)},
	}}

	sameEvening := newTestService(users, &fakeChallengeRepo{}, time.Date(2025, 7, 1, 23, 30, 0, 0, time.UTC))
	snap, err := sameEvening.GetProgression(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetProgression: %v", err)
	}
	if snap.CompletedToday != 3 {
		t.Errorf("completedToday same evening = %d, want 3", snap.CompletedToday)
	}

	nextMorning := newTestService(users, &fakeChallengeRepo{}, time.Date(2025, 7, 2, 8, 0, 0, 0, time.UTC))
	snap, err = nextMorning.GetProgression(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetProgression: %v", err)
	}
	if snap.CompletedToday != 0 {
		t.Errorf("completedToday next morning = %d, want 0", snap.CompletedToday)
	}
	if users.users[userID].CompletedToday != 3 {
		t.Error("rollover must only affect the view, not the stored counter")
	}
}

func TestListRecommended_DefaultLimit(t *testing.T) {
	userID := oid(1)
	users := seedUser(userID)
	challenges := &fakeChallengeRepo{challenges: map[primitive.ObjectID]models.Challenge{}}
	for i := byte(10); i < 18; i++ {
		challenges.challenges[oid(i)] = models.Challenge{ID: oid(i), Title: "ch", Difficulty: models.DifficultyBeginner, XP: 50}
	}
	svc := newTestService(users, challenges, time.Now())

	ranked, err := svc.ListRecommended(context.Background(), userID, 0)
	if err != nil {
		t.Fatalf("ListRecommended: %v", err)
	}
	if len(ranked) != DefaultRecommendationLimit {
		t.Errorf("got %d recommendations, want default limit %d", len(ranked), DefaultRecommendationLimit)
	}

	two, err := svc.ListRecommended(context.Background(), userID, 2)
	if err != nil {
		t.Fatalf("ListRecommended limit 2: %v", err)
	}
	if len(two) != 2 {
		t.Errorf("got %d recommendations, want 2", len(two))
	}
}

func TestListDaily_FlagsOnlyTodaysCompletion(t *testing.T) {
	userID := oid(1)
	today := time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC)
	users := &fakeUserRepo{users: map[primitive.ObjectID]*models.UserProgression{
		userID: {ID: userID, CompletedChallenges: []models.CompletionEntry{
			{ChallengeID: oid(10), CompletedAt: today.Add(-24 * time.Hour)},
			{ChallengeID: oid(11), CompletedAt: today.Add(-time.Hour)},
		}},
	}}
	challenges := &fakeChallengeRepo{challenges: map[primitive.ObjectID]models.Challenge{
		oid(10): {ID: oid(10), Title: "Yesterday's daily", Difficulty: models.DifficultyBeginner, XP: 50, DailyChallenge: true},
		oid(11): {ID: oid(11), Title: "Today's daily", Difficulty: models.DifficultyBeginner, XP: 50, DailyChallenge: true},
		oid(12): {ID: oid(12), Title: "Not daily", Difficulty: models.DifficultyBeginner, XP: 50},
	}}
	svc := newTestService(users, challenges, today)

	ranked, err := svc.ListDaily(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListDaily: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("got %d daily challenges, want 2", len(ranked))
	}
	for _, rc := range ranked {
		switch rc.ID {
		case oid(10):
			if rc.Completed {
				t.Error("yesterday's completion flagged as done today")
			}
		case oid(11):
			if !rc.Completed {
				t.Error("today's completion not flagged")
			}
		}
	}
}

func TestListAll_MarksCompleted(t *testing.T) {
	userID := oid(1)
	users := &fakeUserRepo{users: map[primitive.ObjectID]*models.UserProgression{
		userID: {ID: userID, CompletedChallenges: []models.CompletionEntry{
			{ChallengeID: oid(10), CompletedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		}},
	}}
	challenges := &fakeChallengeRepo{challenges: map[primitive.ObjectID]models.Challenge{
		oid(10): {ID: oid(10), Title: "Done", Difficulty: models.DifficultyAdvanced, XP: 50},
		oid(11): {ID: oid(11), Title: "Open", Difficulty: models.DifficultyAdvanced, XP: 50},
	}}
	svc := newTestService(users, challenges, time.Now())

	all, err := svc.ListAll(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d challenges, want 2 regardless of difficulty band", len(all))
	}
	for _, rc := range all {
		if rc.ID == oid(10) && !rc.Completed {
			t.Error("completed challenge not flagged in full listing")
		}
	}
}
