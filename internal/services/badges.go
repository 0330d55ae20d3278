package services

import "skill-exchange/challenge-service/internal/models"

// Badge describes an awarded badge in API responses.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type badgeRule struct {
	Badge
	earned func(p *models.UserProgression) bool
}

// Rules re-evaluate the full condition on every completion, so awards stay
// correct even if earlier evaluations were missed.
var badgeRules = []badgeRule{
	{
		Badge: Badge{ID: "challenge_starter", Name: "Challenge Starter", Description: "Complete at least 2 challenges"},
		earned: func(p *models.UserProgression) bool {
			return len(LatestCompletions(p)) >= 2
		},
	},
	{
		Badge: Badge{ID: "challenge_explorer", Name: "Challenge Explorer", Description: "Complete at least 10 challenges"},
		earned: func(p *models.UserProgression) bool {
			return len(LatestCompletions(p)) >= 10
		},
	},
	{
		Badge: Badge{ID: "week_streak", Name: "Week Streak", Description: "Meet your daily goal 7 days in a row"},
		earned: func(p *models.UserProgression) bool {
			return p.DailyStreak >= 7
		},
	},
	{
		Badge: Badge{ID: "xp_collector", Name: "XP Collector", Description: "Earn 5000 XP"},
		earned: func(p *models.UserProgression) bool {
			return p.XP >= 5000
		},
	},
}

// EvaluateBadges appends any newly earned badge ids to the progression and
// returns them, never nil so responses serialize as an empty list. A badge is
// never granted twice.
func EvaluateBadges(p *models.UserProgression) []Badge {
	awarded := make([]Badge, 0)
	for _, rule := range badgeRules {
		if p.HasBadge(rule.ID) || !rule.earned(p) {
			continue
		}
		p.Badges = append(p.Badges, rule.ID)
		awarded = append(awarded, rule.Badge)
	}
	return awarded
}
