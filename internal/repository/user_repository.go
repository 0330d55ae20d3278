package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"skill-exchange/challenge-service/internal/models"
)

// UserRepository reads and writes the progression subset of user documents.
// Account creation and deletion belong to the user service; this repository
// only ever updates progression fields.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection("users")}
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.UserProgression, error) {
	var user models.UserProgression
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// ApplyCompletion persists a completion as one atomic write. The filter pins
// the document version the caller transformed, so a write racing any other
// progression update loses with ErrConflict instead of erasing it, and the
// challengeId clause keeps duplicate entries out of the ledger at the store.
func (r *UserRepository) ApplyCompletion(ctx context.Context, p *models.UserProgression, challengeID primitive.ObjectID) error {
	filter := bson.M{
		"_id":                             p.ID,
		"version":                         p.Version,
		"completedChallenges.challengeId": bson.M{"$ne": challengeID},
	}
	if p.Version == 0 {
		// Documents written before versioning have no version field.
		filter["version"] = bson.M{"$in": bson.A{0, nil}}
	}
	update := bson.M{
		"$set": bson.M{
			"xp":                  p.XP,
			"level":               p.Level,
			"completedChallenges": p.CompletedChallenges,
			"dailyStreak":         p.DailyStreak,
			"completedToday":      p.CompletedToday,
			"badges":              p.Badges,
			"lastCompletedAt":     p.LastCompletedAt,
			"lastStreakAt":        p.LastStreakAt,
		},
		"$inc": bson.M{"version": 1},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Stale version, a duplicate entry, or a vanished user; the
		// caller re-reads to find out which.
		return models.ErrConflict
	}

	return nil
}
