package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"skill-exchange/challenge-service/internal/utils"
)

type ChallengeType string

const (
	TypeCoding      ChallengeType = "coding"
	TypeQuiz        ChallengeType = "quiz"
	TypeInteractive ChallengeType = "interactive"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Challenge is a catalog entry. Content is an opaque payload (question,
// options, answer key) graded by the client, never interpreted here.
type Challenge struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title          string             `json:"title" bson:"title" validate:"required"`
	Description    string             `json:"description" bson:"description" validate:"required"`
	Type           ChallengeType      `json:"type" bson:"type" validate:"required,oneof=coding quiz interactive"`
	Difficulty     Difficulty         `json:"difficulty" bson:"difficulty" validate:"required,oneof=beginner intermediate advanced"`
	XP             int                `json:"xp" bson:"xp" validate:"required,gt=0"`
	TimeLimit      int                `json:"timeLimit" bson:"timeLimit" validate:"gte=0"`
	Category       string             `json:"category" bson:"category" validate:"required"`
	Tags           []string           `json:"tags" bson:"tags"`
	DailyChallenge bool               `json:"dailyChallenge" bson:"dailyChallenge"`
	Content        bson.M             `json:"content,omitempty" bson:"content,omitempty"`
	CreatedAt      time.Time          `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
}

// Validate validates the Challenge
func (c Challenge) Validate() error {
	validate := utils.GetValidator()
	err := validate.Struct(c)
	if err != nil {
		errs := utils.ParseErrors(err)
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, " // "))
	}

	return nil
}
