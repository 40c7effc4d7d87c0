package progression

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/skillforge/backend/internal/models"
)

// Streak types.
const (
	StreakQuiz       = "quiz"
	StreakMentorChat = "mentor_chat"
	StreakDaily      = "daily_activity"
)

const recentTransactionLimit = 10

// Store is the persistence collaborator. The engine issues point
// reads/writes and upserts; it does not implement locking — concurrent
// requests for the same user can race on read-then-update sequences, and
// the store is expected to provide at least per-row atomicity.
type Store interface {
	GetOrCreateXP(userID int64) (*models.UserXP, error)
	UpdateXP(userID int64, totalXP int64, level string, progress int) error
	LogTransaction(userID int64, action string, xpAmount int, sourceID, sourceType string, metadata interface{}) error
	RecentTransactions(userID int64, limit int) ([]models.XPTransaction, error)

	GetOrCreateStreaks(userID int64) (*models.UserStreaks, error)
	SaveStreak(userID int64, streakType string, current, longest int, lastDate string) error

	ActiveBadges() ([]models.BadgeDefinition, error)
	EarnedBadgeIDs(userID int64) (map[int64]bool, error)
	// InsertAchievement returns false when the (user, badge) pair already
	// exists; a duplicate is benign, not an error.
	InsertAchievement(userID, badgeID int64, metadata interface{}) (bool, error)
	UserAchievements(userID int64) ([]models.AchievementDetail, error)
	UserStats(userID int64) (*models.UserStats, error)

	ListAvatarPresets() ([]models.AvatarPreset, error)
	AvatarPreset(presetID int64) (*models.AvatarPreset, error)
	UnlockAvatar(userID, presetID int64) (bool, error)
	UserAvatarIDs(userID int64) (map[int64]bool, error)
}

// SeasonalHooks is implemented by the seasonal event service. Both calls
// must degrade silently: multiplier resolution returns 1.0 on failure and
// RecordXP only logs.
type SeasonalHooks interface {
	XPMultiplier(userID int64, skillCategory, activityType string) float64
	RecordXP(userID int64, xp int, skillCategory string)
}

// ActivityRecorder feeds the leaderboard scorer from award results.
type ActivityRecorder interface {
	RecordActivity(userID int64, skillCategory string, xp, quizzes, perfectScores, streakDays int)
}

type Service struct {
	store Store
	cfg   *Config

	// Optional collaborators, attached after construction. Nil means the
	// concern is disabled, never an error.
	Seasonal SeasonalHooks
	Boards   ActivityRecorder

	now func() time.Time
}

func NewService(store Store, cfg *Config) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{
		store: store,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// txMetadata is what gets persisted on each XP transaction.
type txMetadata struct {
	Breakdown XPBreakdown           `json:"breakdown"`
	Request   models.ActionMetadata `json:"request"`
}

// ── XP Award Calculator ─────────────────────────────────

// AwardXP computes and persists the bonus-adjusted XP for an action.
// Awards are never negative; the new total is always >= the prior total.
// There is no deduplication by source: calling twice for the same logical
// event writes two transactions and doubles the XP. Exactly-once is the
// caller's responsibility.
func (s *Service) AwardXP(userID int64, action string, meta models.ActionMetadata) (*models.XPAward, error) {
	return s.award(userID, action, meta, -1)
}

// award is the internal calculator; baseOverride >= 0 replaces the action
// table's base value (used for badge XP rewards).
func (s *Service) award(userID int64, action string, meta models.ActionMetadata, baseOverride int) (*models.XPAward, error) {
	base, ok := s.cfg.ActionXP[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	if baseOverride >= 0 {
		base = baseOverride
	}

	xp, err := s.store.GetOrCreateXP(userID)
	if err != nil {
		return nil, fmt.Errorf("get xp: %w", err)
	}
	if _, err := s.store.GetOrCreateStreaks(userID); err != nil {
		return nil, fmt.Errorf("get streaks: %w", err)
	}

	amount, breakdown := s.cfg.ComputeXP(base, meta)

	if s.Seasonal != nil {
		if m := s.Seasonal.XPMultiplier(userID, meta.SkillCategory, action); m != 1.0 {
			breakdown.SeasonalMultiplier = m
			amount = int(float64(amount) * m)
		}
	}

	oldLevel := DeriveLevel(s.cfg.Levels, xp.TotalXP)
	newTotal := xp.TotalXP + int64(amount)
	newLevel := DeriveLevel(s.cfg.Levels, newTotal)

	levelUp := newLevel.Name != oldLevel.Name
	if levelUp {
		// The bonus itself may push the total over yet another threshold;
		// re-derive once, never loop.
		breakdown.LevelUpBonus = s.cfg.LevelUpBonus
		amount += s.cfg.LevelUpBonus
		newTotal += int64(s.cfg.LevelUpBonus)
		newLevel = DeriveLevel(s.cfg.Levels, newTotal)
	}

	if err := s.store.UpdateXP(userID, newTotal, newLevel.Name, newLevel.Progress); err != nil {
		return nil, fmt.Errorf("update xp: %w", err)
	}

	if err := s.store.LogTransaction(userID, action, amount, meta.SourceID, meta.SourceType,
		txMetadata{Breakdown: breakdown, Request: meta}); err != nil {
		log.Printf("[progression] failed to log transaction for user %d: %v", userID, err)
	}

	result := &models.XPAward{
		XPAmount:             amount,
		NewTotalXP:           newTotal,
		LevelUp:              levelUp,
		NewLevel:             newLevel.Name,
		LevelProgress:        newLevel.Progress,
		AchievementsUnlocked: []models.AchievementUnlocked{},
	}

	// Badge XP awards must not re-trigger evaluation or they could chase
	// their own tail through badge_earned transactions.
	if action != ActionBadgeEarned {
		unlocked, err := s.CheckAchievements(userID, action, meta)
		if err != nil {
			log.Printf("[progression] achievement check failed for user %d: %v", userID, err)
		} else {
			result.AchievementsUnlocked = unlocked
		}
	}

	return result, nil
}

// ── Streak Tracker ──────────────────────────────────────

// UpdateStreak applies the day-granularity continuation rules. Calling
// twice on the same calendar day is a no-op the second time.
func (s *Service) UpdateStreak(userID int64, streakType string) (*models.StreakUpdate, error) {
	switch streakType {
	case StreakQuiz, StreakMentorChat, StreakDaily:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStreakType, streakType)
	}

	streaks, err := s.store.GetOrCreateStreaks(userID)
	if err != nil {
		return nil, fmt.Errorf("get streaks: %w", err)
	}

	current, longest, lastDate := streakFields(streaks, streakType)
	today := s.now().Format("2006-01-02")

	if lastDate == today {
		return &models.StreakUpdate{
			StreakType:    streakType,
			CurrentStreak: current,
			LongestStreak: longest,
			IsNewRecord:   false,
		}, nil
	}

	yesterday := s.now().AddDate(0, 0, -1).Format("2006-01-02")
	if lastDate == yesterday {
		current++
	} else {
		current = 1
	}

	prevLongest := longest
	if current > longest {
		longest = current
	}

	if err := s.store.SaveStreak(userID, streakType, current, longest, today); err != nil {
		return nil, fmt.Errorf("save streak: %w", err)
	}

	update := &models.StreakUpdate{
		StreakType:    streakType,
		CurrentStreak: current,
		LongestStreak: longest,
		IsNewRecord:   current > prevLongest,
	}

	// Weekly milestone: a secondary XP transaction, best-effort.
	if current > 0 && current%7 == 0 {
		update.StreakMilestoneAchieved = current
		if _, err := s.award(userID, ActionStreakMaintained, models.ActionMetadata{
			SourceID:   strconv.Itoa(current),
			SourceType: "streak_" + streakType,
		}, -1); err != nil {
			log.Printf("[progression] streak milestone award failed for user %d: %v", userID, err)
		}
	}

	return update, nil
}

func streakFields(st *models.UserStreaks, streakType string) (current, longest int, lastDate string) {
	switch streakType {
	case StreakQuiz:
		return st.QuizStreak, st.LongestQuizStreak, st.LastQuizDate
	case StreakMentorChat:
		return st.MentorChatStreak, st.LongestMentorStreak, st.LastMentorChatDate
	default:
		return st.DailyStreak, st.LongestDailyStreak, st.LastDailyDate
	}
}

// ── Achievement Evaluator ───────────────────────────────

// CheckAchievements evaluates every active, not-yet-earned badge against
// the user's statistics snapshot and returns only the badges unlocked by
// this call. Condition keys are OR'd: any single satisfied key unlocks.
func (s *Service) CheckAchievements(userID int64, action string, meta models.ActionMetadata) ([]models.AchievementUnlocked, error) {
	badges, err := s.store.ActiveBadges()
	if err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}
	earned, err := s.store.EarnedBadgeIDs(userID)
	if err != nil {
		return nil, fmt.Errorf("load earned badges: %w", err)
	}
	stats, err := s.store.UserStats(userID)
	if err != nil {
		return nil, fmt.Errorf("load user stats: %w", err)
	}

	ctx := unlockContext{stats: stats, action: action, meta: meta, now: s.now()}

	unlocked := []models.AchievementUnlocked{}
	for _, badge := range badges {
		if earned[badge.ID] {
			continue
		}
		if !conditionSatisfied(badge.UnlockCondition, ctx) {
			continue
		}

		inserted, err := s.store.InsertAchievement(userID, badge.ID, map[string]string{"action": action})
		if err != nil {
			log.Printf("[progression] failed to insert achievement %d for user %d: %v", badge.ID, userID, err)
			continue
		}
		if !inserted {
			continue // raced with another unlock; already earned
		}

		unlocked = append(unlocked, models.AchievementUnlocked{
			BadgeID:     badge.ID,
			Name:        badge.Name,
			Description: badge.Description,
			Category:    badge.Category,
			XPReward:    badge.XPReward,
		})

		if badge.XPReward > 0 {
			if _, err := s.award(userID, ActionBadgeEarned, models.ActionMetadata{
				SourceID:      strconv.FormatInt(badge.ID, 10),
				SourceType:    "badge",
				SkillCategory: meta.SkillCategory,
			}, badge.XPReward); err != nil {
				log.Printf("[progression] badge XP award failed for user %d: %v", userID, err)
			}
		}
	}

	return unlocked, nil
}

// ── Progression Aggregator ──────────────────────────────

// GetProgress composes the full snapshot. A brand-new user gets lazily
// initialized zero records, never an error.
func (s *Service) GetProgress(userID int64) (*models.UserProgress, error) {
	xp, err := s.store.GetOrCreateXP(userID)
	if err != nil {
		return nil, fmt.Errorf("get xp: %w", err)
	}
	streaks, err := s.store.GetOrCreateStreaks(userID)
	if err != nil {
		return nil, fmt.Errorf("get streaks: %w", err)
	}

	progress := &models.UserProgress{
		XP:                 *xp,
		Streaks:            *streaks,
		Achievements:       []models.AchievementDetail{},
		AvailableBadges:    []models.BadgeDefinition{},
		RecentTransactions: []models.XPTransaction{},
	}

	if next, ok := NextLevel(s.cfg.Levels, xp.TotalXP); ok {
		progress.NextLevel = &models.NextLevelInfo{
			Level:      next.Name,
			XPRequired: next.MinXP,
			XPToGo:     next.MinXP - xp.TotalXP,
			Progress:   DeriveLevel(s.cfg.Levels, xp.TotalXP).Progress,
		}
	}

	if achievements, err := s.store.UserAchievements(userID); err != nil {
		log.Printf("[progression] failed to load achievements for user %d: %v", userID, err)
	} else if achievements != nil {
		progress.Achievements = achievements
	}

	if badges, err := s.store.ActiveBadges(); err != nil {
		log.Printf("[progression] failed to load badges for user %d: %v", userID, err)
	} else {
		earned := map[int64]bool{}
		for _, a := range progress.Achievements {
			earned[a.BadgeID] = true
		}
		for _, b := range badges {
			if !earned[b.ID] {
				progress.AvailableBadges = append(progress.AvailableBadges, b)
			}
		}
	}

	if txs, err := s.store.RecentTransactions(userID, recentTransactionLimit); err != nil {
		log.Printf("[progression] failed to load transactions for user %d: %v", userID, err)
	} else if txs != nil {
		progress.RecentTransactions = txs
	}

	return progress, nil
}

// ProcessEvent runs the full pipeline for an external activity event:
// award XP, then streaks, then seasonal/leaderboard accumulation. Only
// the primary award can fail the call; every later stage degrades to a
// log line so a broken enrichment never costs the user their reward.
func (s *Service) ProcessEvent(userID int64, action string, meta models.ActionMetadata) (*models.EventResult, error) {
	award, err := s.AwardXP(userID, action, meta)
	if err != nil {
		return nil, err
	}

	result := &models.EventResult{Award: award}

	if st := streakTypeForAction(action); st != "" {
		if update, err := s.UpdateStreak(userID, st); err != nil {
			log.Printf("[progression] %s streak update failed for user %d: %v", st, userID, err)
		} else {
			result.Streak = update
		}
	}

	daily, err := s.UpdateStreak(userID, StreakDaily)
	if err != nil {
		log.Printf("[progression] daily streak update failed for user %d: %v", userID, err)
	} else {
		result.DailyStreak = daily
	}

	if s.Seasonal != nil {
		s.Seasonal.RecordXP(userID, award.XPAmount, meta.SkillCategory)
	}

	if s.Boards != nil && meta.SkillCategory != "" {
		quizzes, perfect := 0, 0
		if action == ActionQuizCompleted {
			quizzes = 1
			if meta.IsPerfectScore {
				perfect = 1
			}
		}
		streakDays := 0
		if result.DailyStreak != nil {
			streakDays = result.DailyStreak.CurrentStreak
		}
		s.Boards.RecordActivity(userID, meta.SkillCategory, award.XPAmount, quizzes, perfect, streakDays)
	}

	return result, nil
}

func streakTypeForAction(action string) string {
	switch action {
	case ActionQuizCompleted:
		return StreakQuiz
	case ActionMentorSession:
		return StreakMentorChat
	}
	return ""
}

// Achievements returns the user's earned achievements with badge details.
func (s *Service) Achievements(userID int64) ([]models.AchievementDetail, error) {
	return s.store.UserAchievements(userID)
}

// Badges returns the active badge catalog.
func (s *Service) Badges() ([]models.BadgeDefinition, error) {
	return s.store.ActiveBadges()
}

// ── Avatar Unlocks ──────────────────────────────────────

func (s *Service) ListAvatars(userID int64) ([]models.AvatarPreset, map[int64]bool, error) {
	presets, err := s.store.ListAvatarPresets()
	if err != nil {
		return nil, nil, fmt.Errorf("list avatar presets: %w", err)
	}
	unlocked, err := s.store.UserAvatarIDs(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list unlocked avatars: %w", err)
	}
	return presets, unlocked, nil
}

// UnlockAvatar grants a preset if the user's XP meets its requirement.
// Re-unlocking an owned preset is a no-op.
func (s *Service) UnlockAvatar(userID, presetID int64) (*models.AvatarUnlockResponse, error) {
	preset, err := s.store.AvatarPreset(presetID)
	if err != nil {
		return nil, fmt.Errorf("get avatar preset: %w", err)
	}

	xp, err := s.store.GetOrCreateXP(userID)
	if err != nil {
		return nil, fmt.Errorf("get xp: %w", err)
	}

	if xp.TotalXP < preset.MinXP {
		return nil, fmt.Errorf("%w: %q requires level %s (%d XP), you have %d XP",
			ErrRequirementsNotMet, preset.Name, preset.MinLevel, preset.MinXP, xp.TotalXP)
	}

	if _, err := s.store.UnlockAvatar(userID, presetID); err != nil {
		return nil, fmt.Errorf("unlock avatar: %w", err)
	}

	return &models.AvatarUnlockResponse{PresetID: preset.ID, Name: preset.Name, Unlocked: true}, nil
}
