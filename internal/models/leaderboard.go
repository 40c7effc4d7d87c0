package models

import "time"

// LeaderboardEntry is one user's standing inside a
// (skill_category, time_period, period_start) bucket.
type LeaderboardEntry struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	SkillCategory    string    `json:"skill_category"`
	TimePeriod       string    `json:"time_period"`
	PeriodStart      time.Time `json:"period_start"`
	XPEarned         int64     `json:"xp_earned"`
	QuizzesCompleted int       `json:"quizzes_completed"`
	PerfectScores    int       `json:"perfect_scores"`
	StreakDays       int       `json:"streak_days"`
	UserScore        int64     `json:"user_score"`
	UserRank         int       `json:"user_rank"`
	AnonymousName    string    `json:"anonymous_name"`
	IsCurrentUser    bool      `json:"is_current_user,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// LeaderboardMetrics are the raw per-period numbers a score is computed
// from.
type LeaderboardMetrics struct {
	XPEarned         int64 `json:"xp_earned"`
	QuizzesCompleted int   `json:"quizzes_completed"`
	PerfectScores    int   `json:"perfect_scores"`
	StreakDays       int   `json:"streak_days"`
}

type LeaderboardData struct {
	SkillCategory string             `json:"skill_category"`
	TimePeriod    string             `json:"time_period"`
	PeriodStart   time.Time          `json:"period_start"`
	Entries       []LeaderboardEntry `json:"entries"`
	CurrentUser   *LeaderboardEntry  `json:"current_user,omitempty"`
	TotalEntries  int                `json:"total_entries"`
}
