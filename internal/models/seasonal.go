package models

import "time"

// Seasonal event types.
const (
	EventXPBoost    = "xp_boost"
	EventSkillFocus = "skill_focus"
	EventChallenge  = "challenge"
	EventCommunity  = "community"
)

// SeasonalEvent is valid over [StartsAt, EndsAt).
type SeasonalEvent struct {
	ID                    int64     `json:"id"`
	Name                  string    `json:"name"`
	Description           string    `json:"description"`
	EventType             string    `json:"event_type"`
	StartsAt              time.Time `json:"starts_at"`
	EndsAt                time.Time `json:"ends_at"`
	XPMultiplier          float64   `json:"xp_multiplier"`
	FocusSkillCategory    string    `json:"focus_skill_category,omitempty"`
	CommunityGoalTarget   int64     `json:"community_goal_target,omitempty"`
	CommunityGoalProgress int64     `json:"community_goal_progress,omitempty"`
	IsActive              bool      `json:"is_active"`
}

// SpecialReward is awarded at most once per (Type, Value) pair within one
// user's event progress.
type SpecialReward struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// UserSeasonalProgress exists only after an explicit join.
type UserSeasonalProgress struct {
	ID                  int64           `json:"id"`
	UserID              int64           `json:"user_id"`
	EventID             int64           `json:"event_id"`
	XPEarnedDuringEvent int64           `json:"xp_earned_during_event"`
	ChallengesCompleted int             `json:"challenges_completed"`
	ParticipationScore  int             `json:"participation_score"`
	SpecialRewards      []SpecialReward `json:"special_rewards"`
	JoinedAt            time.Time       `json:"joined_at"`
}

type ChallengeCompleteRequest struct {
	ChallengeID string `json:"challenge_id"`
}

type ChallengeCompleteResponse struct {
	ChallengesCompleted int             `json:"challenges_completed"`
	ParticipationScore  int             `json:"participation_score"`
	NewRewards          []SpecialReward `json:"new_rewards"`
}
