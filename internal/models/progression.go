package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultDailyGoal is the number of completions per day needed to extend a streak.
const DefaultDailyGoal = 5

// levelThresholds holds cumulative XP floors; index i (0-based) maps to level i+1.
var levelThresholds = []int{0, 500, 1000, 2000, 3500, 5500, 8000, 11000, 15000, 20000}

type LevelInfo struct {
	Level          int `json:"level"`
	CurrentLevelXP int `json:"currentLevelXP"`
	NextLevelXP    int `json:"nextLevelXP"`
}

// LevelFor derives the level tier for a cumulative XP total. Negative XP is
// clamped to zero so a corrupted record still maps to level 1.
func LevelFor(xp int) LevelInfo {
	if xp < 0 {
		xp = 0
	}

	level := 1
	for i := 1; i < len(levelThresholds); i++ {
		if xp < levelThresholds[i] {
			break
		}
		level = i + 1
	}

	current := levelThresholds[level-1]
	next := current + 1000
	if level < len(levelThresholds) {
		next = levelThresholds[level]
	}

	// Past the top of the table progression stays open-ended in flat
	// 1000 XP tiers anchored at the last threshold.
	if level == len(levelThresholds) && xp >= next {
		level++
	}

	return LevelInfo{Level: level, CurrentLevelXP: current, NextLevelXP: next}
}

// CompletionEntry records one completed challenge. The store does not enforce
// uniqueness of ChallengeID for historical data, so read paths deduplicate.
type CompletionEntry struct {
	ChallengeID primitive.ObjectID `json:"challengeId" bson:"challengeId"`
	CompletedAt time.Time          `json:"completedAt" bson:"completedAt"`
}

// UserProgression is the gamification subset of a user document.
type UserProgression struct {
	ID                  primitive.ObjectID `json:"id" bson:"_id"`
	XP                  int                `json:"xp" bson:"xp"`
	Level               int                `json:"level" bson:"level"`
	Interests           []string           `json:"interests" bson:"interests"`
	CompletedChallenges []CompletionEntry  `json:"completedChallenges" bson:"completedChallenges"`
	DailyStreak         int                `json:"dailyStreak" bson:"dailyStreak"`
	CompletedToday      int                `json:"completedToday" bson:"completedToday"`
	DailyGoal           int                `json:"dailyGoal" bson:"dailyGoal"`
	Badges              []string           `json:"badges" bson:"badges"`
	LastCompletedAt     time.Time          `json:"lastCompletedAt,omitempty" bson:"lastCompletedAt,omitempty"`
	LastStreakAt        time.Time          `json:"lastStreakAt,omitempty" bson:"lastStreakAt,omitempty"`
	// Version guards progression writes against lost updates; every
	// successful write increments it.
	Version int `json:"-" bson:"version"`
}

// Goal returns the user's daily goal, falling back to the default for
// documents written before the field existed.
func (p *UserProgression) Goal() int {
	if p.DailyGoal <= 0 {
		return DefaultDailyGoal
	}
	return p.DailyGoal
}

// HasBadge reports whether the badge id was already awarded.
func (p *UserProgression) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b == id {
			return true
		}
	}
	return false
}
