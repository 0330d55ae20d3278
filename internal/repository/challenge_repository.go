package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"skill-exchange/challenge-service/internal/models"
)

type ChallengeRepository struct {
	col *mongo.Collection
}

func NewChallengeRepository(db *mongo.Database) *ChallengeRepository {
	return &ChallengeRepository{col: db.Collection("challenges")}
}

func (r *ChallengeRepository) GetAll(ctx context.Context) ([]models.Challenge, error) {
	cursor, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	var challenges []models.Challenge
	if err := cursor.All(ctx, &challenges); err != nil {
		return nil, err
	}

	return challenges, nil
}

func (r *ChallengeRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Challenge, error) {
	var challenge models.Challenge
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&challenge)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrChallengeNotFound
		}
		return nil, err
	}

	return &challenge, nil
}

func (r *ChallengeRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Challenge, error) {
	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}

	var challenges []models.Challenge
	if err := cursor.All(ctx, &challenges); err != nil {
		return nil, err
	}

	return challenges, nil
}

func (r *ChallengeRepository) Create(ctx context.Context, ch *models.Challenge) error {
	ch.ID = primitive.NewObjectID()
	ch.CreatedAt = time.Now()
	_, err := r.col.InsertOne(ctx, ch)

	return err
}

func (r *ChallengeRepository) Update(ctx context.Context, ch *models.Challenge) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": ch.ID}, ch)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrChallengeNotFound
	}

	return nil
}

func (r *ChallengeRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrChallengeNotFound
	}

	return nil
}
