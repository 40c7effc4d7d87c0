package progression

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/skillforge/backend/internal/models"
)

// SQLStore is the Postgres-backed Store.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// ── XP State ────────────────────────────────────────────

func (s *SQLStore) GetOrCreateXP(userID int64) (*models.UserXP, error) {
	_, err := s.db.Exec(
		`INSERT INTO user_xp (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user_xp: %w", err)
	}

	var xp models.UserXP
	err = s.db.QueryRow(
		`SELECT user_id, total_xp, current_level, level_progress, created_at, updated_at
		 FROM user_xp WHERE user_id = $1`,
		userID,
	).Scan(&xp.UserID, &xp.TotalXP, &xp.CurrentLevel, &xp.LevelProgress, &xp.CreatedAt, &xp.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get user_xp: %w", err)
	}
	return &xp, nil
}

func (s *SQLStore) UpdateXP(userID int64, totalXP int64, level string, progress int) error {
	_, err := s.db.Exec(
		`UPDATE user_xp SET
		    total_xp = $2, current_level = $3, level_progress = $4, updated_at = NOW()
		 WHERE user_id = $1`,
		userID, totalXP, level, progress,
	)
	return err
}

func (s *SQLStore) LogTransaction(userID int64, action string, xpAmount int, sourceID, sourceType string, metadata interface{}) error {
	var metaJSON *string
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			str := string(b)
			metaJSON = &str
		}
	}
	_, err := s.db.Exec(
		`INSERT INTO xp_transactions (user_id, action, xp_amount, source_id, source_type, metadata)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)`,
		userID, action, xpAmount, sourceID, sourceType, metaJSON,
	)
	return err
}

func (s *SQLStore) RecentTransactions(userID int64, limit int) ([]models.XPTransaction, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, action, xp_amount, COALESCE(source_id, ''),
		        COALESCE(source_type, ''), COALESCE(metadata::text, ''), created_at
		 FROM xp_transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.XPTransaction
	for rows.Next() {
		var tx models.XPTransaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Action, &tx.XPAmount,
			&tx.SourceID, &tx.SourceType, &tx.Metadata, &tx.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// ── Streaks ─────────────────────────────────────────────

func (s *SQLStore) GetOrCreateStreaks(userID int64) (*models.UserStreaks, error) {
	_, err := s.db.Exec(
		`INSERT INTO user_streaks (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user_streaks: %w", err)
	}

	var st models.UserStreaks
	err = s.db.QueryRow(
		`SELECT user_id,
		        quiz_streak, longest_quiz_streak, COALESCE(to_char(last_quiz_date, 'YYYY-MM-DD'), ''),
		        mentor_chat_streak, longest_mentor_chat_streak, COALESCE(to_char(last_mentor_chat_date, 'YYYY-MM-DD'), ''),
		        daily_streak, longest_daily_streak, COALESCE(to_char(last_daily_date, 'YYYY-MM-DD'), '')
		 FROM user_streaks WHERE user_id = $1`,
		userID,
	).Scan(&st.UserID,
		&st.QuizStreak, &st.LongestQuizStreak, &st.LastQuizDate,
		&st.MentorChatStreak, &st.LongestMentorStreak, &st.LastMentorChatDate,
		&st.DailyStreak, &st.LongestDailyStreak, &st.LastDailyDate)
	if err != nil {
		return nil, fmt.Errorf("get user_streaks: %w", err)
	}
	return &st, nil
}

func (s *SQLStore) SaveStreak(userID int64, streakType string, current, longest int, lastDate string) error {
	var query string
	switch streakType {
	case StreakQuiz:
		query = `UPDATE user_streaks SET quiz_streak = $2, longest_quiz_streak = $3,
		         last_quiz_date = $4, updated_at = NOW() WHERE user_id = $1`
	case StreakMentorChat:
		query = `UPDATE user_streaks SET mentor_chat_streak = $2, longest_mentor_chat_streak = $3,
		         last_mentor_chat_date = $4, updated_at = NOW() WHERE user_id = $1`
	case StreakDaily:
		query = `UPDATE user_streaks SET daily_streak = $2, longest_daily_streak = $3,
		         last_daily_date = $4, updated_at = NOW() WHERE user_id = $1`
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStreakType, streakType)
	}
	_, err := s.db.Exec(query, userID, current, longest, lastDate)
	return err
}

// ── Badges & Achievements ───────────────────────────────

func (s *SQLStore) ActiveBadges() ([]models.BadgeDefinition, error) {
	rows, err := s.db.Query(
		`SELECT id, name, description, category, xp_reward, unlock_condition
		 FROM badge_definitions WHERE is_active = TRUE ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("get badges: %w", err)
	}
	defer rows.Close()

	var badges []models.BadgeDefinition
	for rows.Next() {
		var b models.BadgeDefinition
		var cond []byte
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Category, &b.XPReward, &cond); err != nil {
			return nil, err
		}
		b.IsActive = true
		if err := json.Unmarshal(cond, &b.UnlockCondition); err != nil {
			return nil, fmt.Errorf("badge %d condition: %w", b.ID, err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

func (s *SQLStore) EarnedBadgeIDs(userID int64) (map[int64]bool, error) {
	rows, err := s.db.Query(
		`SELECT badge_id FROM user_achievements WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get earned badges: %w", err)
	}
	defer rows.Close()

	earned := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		earned[id] = true
	}
	return earned, rows.Err()
}

func (s *SQLStore) InsertAchievement(userID, badgeID int64, metadata interface{}) (bool, error) {
	var metaJSON *string
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			str := string(b)
			metaJSON = &str
		}
	}
	_, err := s.db.Exec(
		`INSERT INTO user_achievements (user_id, badge_id, metadata) VALUES ($1, $2, $3)`,
		userID, badgeID, metaJSON,
	)
	if err != nil {
		// Unique-pair violation means the badge was already earned —
		// benign, not an error.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("insert achievement: %w", err)
	}
	return true, nil
}

func (s *SQLStore) UserAchievements(userID int64) ([]models.AchievementDetail, error) {
	rows, err := s.db.Query(
		`SELECT a.id, a.user_id, a.badge_id, a.earned_at, COALESCE(a.metadata::text, ''),
		        b.name, b.description, b.category, b.xp_reward
		 FROM user_achievements a
		 JOIN badge_definitions b ON b.id = a.badge_id
		 WHERE a.user_id = $1
		 ORDER BY a.earned_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get achievements: %w", err)
	}
	defer rows.Close()

	var details []models.AchievementDetail
	for rows.Next() {
		var d models.AchievementDetail
		if err := rows.Scan(&d.ID, &d.UserID, &d.BadgeID, &d.EarnedAt, &d.Metadata,
			&d.Name, &d.Description, &d.Category, &d.XPReward); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// UserStats aggregates the statistics snapshot from the transaction log
// and the streak counters in two point queries.
func (s *SQLStore) UserStats(userID int64) (*models.UserStats, error) {
	var stats models.UserStats
	err := s.db.QueryRow(
		`SELECT
		    COUNT(*) FILTER (WHERE action = 'quiz_completed'),
		    COUNT(*) FILTER (WHERE action = 'quiz_completed'
		                     AND metadata->'request'->>'is_perfect_score' = 'true'),
		    COUNT(*) FILTER (WHERE action = 'learning_milestone'),
		    COUNT(*) FILTER (WHERE action = 'interview_prep_session'),
		    COUNT(*) FILTER (WHERE action = 'motivation_session'),
		    COUNT(*) FILTER (WHERE action = 'mentor_session')
		 FROM xp_transactions WHERE user_id = $1`,
		userID,
	).Scan(&stats.QuizCount, &stats.PerfectScores, &stats.LearningMilestones,
		&stats.InterviewPrepSessions, &stats.MotivationSessions, &stats.MentorChats)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	err = s.db.QueryRow(
		`SELECT quiz_streak, daily_streak FROM user_streaks WHERE user_id = $1`,
		userID,
	).Scan(&stats.QuizStreak, &stats.DailyStreak)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("get streak stats: %w", err)
	}

	return &stats, nil
}

// ── Avatars ─────────────────────────────────────────────

func (s *SQLStore) ListAvatarPresets() ([]models.AvatarPreset, error) {
	rows, err := s.db.Query(
		`SELECT id, name, min_level, min_xp FROM avatar_presets ORDER BY min_xp`,
	)
	if err != nil {
		return nil, fmt.Errorf("list avatar presets: %w", err)
	}
	defer rows.Close()

	var presets []models.AvatarPreset
	for rows.Next() {
		var p models.AvatarPreset
		if err := rows.Scan(&p.ID, &p.Name, &p.MinLevel, &p.MinXP); err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

func (s *SQLStore) AvatarPreset(presetID int64) (*models.AvatarPreset, error) {
	var p models.AvatarPreset
	err := s.db.QueryRow(
		`SELECT id, name, min_level, min_xp FROM avatar_presets WHERE id = $1`,
		presetID,
	).Scan(&p.ID, &p.Name, &p.MinLevel, &p.MinXP)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("avatar preset %d not found", presetID)
	}
	if err != nil {
		return nil, fmt.Errorf("get avatar preset: %w", err)
	}
	return &p, nil
}

func (s *SQLStore) UnlockAvatar(userID, presetID int64) (bool, error) {
	res, err := s.db.Exec(
		`INSERT INTO user_avatars (user_id, preset_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, preset_id) DO NOTHING`,
		userID, presetID,
	)
	if err != nil {
		return false, fmt.Errorf("unlock avatar: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLStore) UserAvatarIDs(userID int64) (map[int64]bool, error) {
	rows, err := s.db.Query(
		`SELECT preset_id FROM user_avatars WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get user avatars: %w", err)
	}
	defer rows.Close()

	unlocked := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		unlocked[id] = true
	}
	return unlocked, rows.Err()
}
