package progression

import (
	"time"

	"github.com/skillforge/backend/internal/models"
)

// unlockContext is everything a condition check can look at: the user's
// aggregate statistics plus the triggering action and its metadata.
type unlockContext struct {
	stats  *models.UserStats
	action string
	meta   models.ActionMetadata
	now    time.Time
}

// conditionCheck evaluates one recognized unlock-condition key. value is
// the raw JSON value from the badge definition.
type conditionCheck struct {
	key   string
	check func(ctx unlockContext, value interface{}) bool
}

// conditionChecks is evaluated in order with short-circuit on first
// match. Condition keys are OR'd: any single satisfied key unlocks the
// badge. A badge listing several keys is therefore EASIER to earn than
// each key alone suggests.
var conditionChecks = []conditionCheck{
	{"quiz_count", func(ctx unlockContext, v interface{}) bool {
		return ctx.stats.QuizCount >= asInt(v)
	}},
	{"perfect_scores", func(ctx unlockContext, v interface{}) bool {
		return ctx.stats.PerfectScores >= asInt(v)
	}},
	{"learning_milestones", func(ctx unlockContext, v interface{}) bool {
		return ctx.stats.LearningMilestones >= asInt(v)
	}},
	{"interview_prep_sessions", func(ctx unlockContext, v interface{}) bool {
		return ctx.stats.InterviewPrepSessions >= asInt(v)
	}},
	{"motivation_sessions", func(ctx unlockContext, v interface{}) bool {
		return ctx.stats.MotivationSessions >= asInt(v)
	}},
	{"quiz_streak", func(ctx unlockContext, v interface{}) bool {
		return ctx.stats.QuizStreak >= asInt(v)
	}},
	{"daily_streak", func(ctx unlockContext, v interface{}) bool {
		return ctx.stats.DailyStreak >= asInt(v)
	}},
	{"mentor_chats", func(ctx unlockContext, v interface{}) bool {
		return ctx.stats.MentorChats >= asInt(v)
	}},
	{"late_night_quiz", func(ctx unlockContext, v interface{}) bool {
		if !asBool(v) || ctx.action != ActionQuizCompleted {
			return false
		}
		// Late night runs through hour 6 inclusive.
		h := ctx.now.Hour()
		return h >= 22 || h <= 6
	}},
	{"fast_quiz", func(ctx unlockContext, v interface{}) bool {
		if !asBool(v) || ctx.action != ActionQuizCompleted {
			return false
		}
		return ctx.meta.CompletionTime > 0 && ctx.meta.CompletionTime < 300
	}},
	{"score_improvement", func(ctx unlockContext, v interface{}) bool {
		return ctx.meta.ScoreImprovement > 0 && ctx.meta.ScoreImprovement >= asInt(v)
	}},
}

// conditionSatisfied reports whether any recognized key in the badge's
// unlock condition is met. Unrecognized keys are ignored.
func conditionSatisfied(cond map[string]interface{}, ctx unlockContext) bool {
	for _, c := range conditionChecks {
		v, ok := cond[c.key]
		if !ok {
			continue
		}
		if c.check(ctx, v) {
			return true
		}
	}
	return false
}

// asInt coerces a JSON-decoded number to int. JSONB numbers arrive as
// float64.
func asInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

func asBool(v interface{}) bool {
	b, ok := v.(bool)
	return ok && b
}
