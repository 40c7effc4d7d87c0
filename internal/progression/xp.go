package progression

import "github.com/skillforge/backend/internal/models"

// Reward-triggering actions.
const (
	ActionQuizCompleted      = "quiz_completed"
	ActionDailyLogin         = "daily_login"
	ActionStreakMaintained   = "streak_maintained"
	ActionMentorSession      = "mentor_session"
	ActionInterviewPrep      = "interview_prep_session"
	ActionMotivationSession  = "motivation_session"
	ActionLearningMilestone  = "learning_milestone"
	ActionChallengeCompleted = "challenge_completed"
	ActionBadgeEarned        = "badge_earned"
	ActionSeasonalChallenge  = "seasonal_challenge"
)

// Config holds the reward tables. It is loaded once at startup and never
// mutated afterward; tests inject alternate tables.
type Config struct {
	Levels                []LevelThreshold
	ActionXP              map[string]int
	DifficultyMultipliers map[string]float64
	PerfectScoreBonus     int
	LevelUpBonus          int
	StreakBonusPerDay     float64
	StreakBonusCap        float64
}

func DefaultConfig() *Config {
	return &Config{
		Levels: DefaultLevels,
		ActionXP: map[string]int{
			ActionQuizCompleted:      50,
			ActionDailyLogin:         10,
			ActionStreakMaintained:   25,
			ActionMentorSession:      30,
			ActionInterviewPrep:      40,
			ActionMotivationSession:  20,
			ActionLearningMilestone:  100,
			ActionChallengeCompleted: 75,
			ActionBadgeEarned:        25,
			ActionSeasonalChallenge:  60,
		},
		DifficultyMultipliers: map[string]float64{
			"easy":   1.0,
			"medium": 1.2,
			"hard":   1.5,
		},
		PerfectScoreBonus: 100,
		LevelUpBonus:      50,
		StreakBonusPerDay: 0.10,
		StreakBonusCap:    0.50,
	}
}

// XPBreakdown records how an award amount was built up, for the
// transaction log.
type XPBreakdown struct {
	BaseXP             int     `json:"base_xp"`
	PerfectScoreBonus  int     `json:"perfect_score_bonus,omitempty"`
	StreakMultiplier   float64 `json:"streak_multiplier,omitempty"`
	DifficultyMult     float64 `json:"difficulty_multiplier,omitempty"`
	SeasonalMultiplier float64 `json:"seasonal_multiplier,omitempty"`
	LevelUpBonus       int     `json:"level_up_bonus,omitempty"`
}

// StreakBonusMultiplier returns 1 + min(streakCount*perDay, cap) for
// streaks longer than one day, else 1.0.
func (c *Config) StreakBonusMultiplier(streakCount int) float64 {
	if streakCount <= 1 {
		return 1.0
	}
	bonus := float64(streakCount) * c.StreakBonusPerDay
	if bonus > c.StreakBonusCap {
		bonus = c.StreakBonusCap
	}
	return 1.0 + bonus
}

// ComputeXP runs the bonus pipeline over a base amount: perfect-score
// bonus is added first, then the streak and difficulty multipliers apply
// in that order, flooring to an integer after each multiplication. The
// seasonal multiplier is applied the same way by the caller.
func (c *Config) ComputeXP(base int, meta models.ActionMetadata) (int, XPBreakdown) {
	breakdown := XPBreakdown{BaseXP: base}
	xp := base

	if meta.IsPerfectScore {
		breakdown.PerfectScoreBonus = c.PerfectScoreBonus
		xp += c.PerfectScoreBonus
	}

	if m := c.StreakBonusMultiplier(meta.StreakCount); m > 1.0 {
		breakdown.StreakMultiplier = m
		xp = int(float64(xp) * m)
	}

	if meta.DifficultyLevel != "" {
		if m, ok := c.DifficultyMultipliers[meta.DifficultyLevel]; ok {
			breakdown.DifficultyMult = m
			xp = int(float64(xp) * m)
		}
	}

	return xp, breakdown
}
