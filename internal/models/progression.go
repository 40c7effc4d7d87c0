package models

import "time"

// ── XP State ──────────────────────────────────────────────

type UserXP struct {
	UserID        int64     `json:"user_id"`
	TotalXP       int64     `json:"total_xp"`
	CurrentLevel  string    `json:"current_level"`
	LevelProgress int       `json:"level_progress"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// XPTransaction is one row of the append-only award log. Rows are never
// mutated or deleted after insert.
type XPTransaction struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Action     string    `json:"action"`
	XPAmount   int       `json:"xp_amount"`
	SourceID   string    `json:"source_id,omitempty"`
	SourceType string    `json:"source_type,omitempty"`
	Metadata   string    `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActionMetadata carries the caller-supplied context for a reward event.
// Bonus computation and unlock-condition checks read from it; the full
// struct is also persisted on the transaction for auditing.
type ActionMetadata struct {
	IsPerfectScore   bool   `json:"is_perfect_score,omitempty"`
	StreakCount      int    `json:"streak_count,omitempty"`
	DifficultyLevel  string `json:"difficulty_level,omitempty"`
	SkillCategory    string `json:"skill_category,omitempty"`
	CompletionTime   int    `json:"completion_time,omitempty"` // seconds
	ScoreImprovement int    `json:"score_improvement,omitempty"`
	SourceID         string `json:"source_id,omitempty"`
	SourceType       string `json:"source_type,omitempty"`
}

// ── Streaks ───────────────────────────────────────────────

// Streak dates are calendar-date strings ("2006-01-02"); comparisons are
// date-only, no time-of-day component.
type UserStreaks struct {
	UserID              int64  `json:"user_id"`
	QuizStreak          int    `json:"quiz_streak"`
	LongestQuizStreak   int    `json:"longest_quiz_streak"`
	LastQuizDate        string `json:"last_quiz_date,omitempty"`
	MentorChatStreak    int    `json:"mentor_chat_streak"`
	LongestMentorStreak int    `json:"longest_mentor_chat_streak"`
	LastMentorChatDate  string `json:"last_mentor_chat_date,omitempty"`
	DailyStreak         int    `json:"daily_streak"`
	LongestDailyStreak  int    `json:"longest_daily_streak"`
	LastDailyDate       string `json:"last_daily_date,omitempty"`
}

// ── Badges & Achievements ─────────────────────────────────

type BadgeDefinition struct {
	ID              int64                  `json:"id"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	Category        string                 `json:"category"` // mastery, special, social, streak
	XPReward        int                    `json:"xp_reward"`
	UnlockCondition map[string]interface{} `json:"unlock_condition"`
	IsActive        bool                   `json:"is_active"`
}

type Achievement struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"user_id"`
	BadgeID  int64     `json:"badge_id"`
	EarnedAt time.Time `json:"earned_at"`
	Metadata string    `json:"metadata,omitempty"`
}

// AchievementDetail joins an earned achievement with its badge definition.
type AchievementDetail struct {
	Achievement
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	XPReward    int    `json:"xp_reward"`
}

// UserStats is the aggregate snapshot the achievement evaluator checks
// unlock conditions against.
type UserStats struct {
	QuizCount             int `json:"quiz_count"`
	PerfectScores         int `json:"perfect_scores"`
	LearningMilestones    int `json:"learning_milestones"`
	InterviewPrepSessions int `json:"interview_prep_sessions"`
	MotivationSessions    int `json:"motivation_sessions"`
	MentorChats           int `json:"mentor_chats"`
	QuizStreak            int `json:"quiz_streak"`
	DailyStreak           int `json:"daily_streak"`
}

// ── Avatars ───────────────────────────────────────────────

type AvatarPreset struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	MinLevel string `json:"min_level"`
	MinXP    int64  `json:"min_xp"`
}

// ── Request Types ─────────────────────────────────────────

type AwardXPRequest struct {
	Action   string         `json:"action"`
	Metadata ActionMetadata `json:"metadata"`
}

type ProgressEventRequest struct {
	Action   string         `json:"action"`
	Metadata ActionMetadata `json:"metadata"`
}

// ── Response Types ────────────────────────────────────────

type XPAward struct {
	XPAmount             int                   `json:"xp_amount"`
	NewTotalXP           int64                 `json:"new_total_xp"`
	LevelUp              bool                  `json:"level_up"`
	NewLevel             string                `json:"new_level"`
	LevelProgress        int                   `json:"level_progress"`
	AchievementsUnlocked []AchievementUnlocked `json:"achievements_unlocked"`
}

type AchievementUnlocked struct {
	BadgeID     int64  `json:"badge_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	XPReward    int    `json:"xp_reward"`
}

type StreakUpdate struct {
	StreakType              string `json:"streak_type"`
	CurrentStreak           int    `json:"current_streak"`
	LongestStreak           int    `json:"longest_streak"`
	IsNewRecord             bool   `json:"is_new_record"`
	StreakMilestoneAchieved int    `json:"streak_milestone_achieved,omitempty"`
}

type NextLevelInfo struct {
	Level      string `json:"level"`
	XPRequired int64  `json:"xp_required"`
	XPToGo     int64  `json:"xp_to_go"`
	Progress   int    `json:"progress"`
}

// UserProgress is the aggregated snapshot returned by GET /progress.
// A brand-new user gets zeroed/defaulted structures, never an error.
type UserProgress struct {
	XP                 UserXP              `json:"xp"`
	NextLevel          *NextLevelInfo      `json:"next_level,omitempty"`
	Streaks            UserStreaks         `json:"streaks"`
	Achievements       []AchievementDetail `json:"achievements"`
	AvailableBadges    []BadgeDefinition   `json:"available_badges"`
	RecentTransactions []XPTransaction     `json:"recent_transactions"`
}

// EventResult is the composite result of the award→streak→achievement
// pipeline. Secondary stages that fail are simply absent.
type EventResult struct {
	Award       *XPAward      `json:"award"`
	Streak      *StreakUpdate `json:"streak,omitempty"`
	DailyStreak *StreakUpdate `json:"daily_streak,omitempty"`
}

type AvatarUnlockResponse struct {
	PresetID int64  `json:"preset_id"`
	Name     string `json:"name"`
	Unlocked bool   `json:"unlocked"`
}
