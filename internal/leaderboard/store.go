package leaderboard

import (
	"database/sql"
	"errors"
	"time"

	"github.com/skillforge/backend/internal/models"
)

// SQLStore implements Store on Postgres.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const entryColumns = `id, user_id, skill_category, time_period, period_start,
	xp_earned, quizzes_completed, perfect_scores, streak_days,
	user_score, user_rank, anonymous_name, updated_at`

func scanEntry(row interface{ Scan(...interface{}) error }) (*models.LeaderboardEntry, error) {
	var e models.LeaderboardEntry
	err := row.Scan(&e.ID, &e.UserID, &e.SkillCategory, &e.TimePeriod, &e.PeriodStart,
		&e.XPEarned, &e.QuizzesCompleted, &e.PerfectScores, &e.StreakDays,
		&e.UserScore, &e.UserRank, &e.AnonymousName, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLStore) GetEntry(userID int64, category, period string, periodStart time.Time) (*models.LeaderboardEntry, error) {
	row := s.db.QueryRow(`
		SELECT `+entryColumns+`
		FROM leaderboards
		WHERE user_id = $1 AND skill_category = $2 AND time_period = $3 AND period_start = $4`,
		userID, category, period, periodStart)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *SQLStore) SaveEntry(e *models.LeaderboardEntry) error {
	return s.db.QueryRow(`
		INSERT INTO leaderboards
			(user_id, skill_category, time_period, period_start,
			 xp_earned, quizzes_completed, perfect_scores, streak_days,
			 user_score, anonymous_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (user_id, skill_category, time_period, period_start) DO UPDATE SET
			xp_earned = EXCLUDED.xp_earned,
			quizzes_completed = EXCLUDED.quizzes_completed,
			perfect_scores = EXCLUDED.perfect_scores,
			streak_days = EXCLUDED.streak_days,
			user_score = EXCLUDED.user_score,
			anonymous_name = EXCLUDED.anonymous_name,
			updated_at = NOW()
		RETURNING id`,
		e.UserID, e.SkillCategory, e.TimePeriod, e.PeriodStart,
		e.XPEarned, e.QuizzesCompleted, e.PerfectScores, e.StreakDays,
		e.UserScore, e.AnonymousName).Scan(&e.ID)
}

// BucketEntries returns the full bucket ordered for ranking: descending
// score, then ascending id so ties are stable across recomputes.
func (s *SQLStore) BucketEntries(category, period string, periodStart time.Time) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.Query(`
		SELECT `+entryColumns+`
		FROM leaderboards
		WHERE skill_category = $1 AND time_period = $2 AND period_start = $3
		ORDER BY user_score DESC, id ASC`,
		category, period, periodStart)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntries(rows)
}

func (s *SQLStore) SetRank(entryID int64, rank int) error {
	_, err := s.db.Exec(`UPDATE leaderboards SET user_rank = $1 WHERE id = $2`, rank, entryID)
	return err
}

func (s *SQLStore) TopEntries(category, period string, periodStart time.Time, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.Query(`
		SELECT `+entryColumns+`
		FROM leaderboards
		WHERE skill_category = $1 AND time_period = $2 AND period_start = $3
		ORDER BY user_rank ASC, id ASC
		LIMIT $4`,
		category, period, periodStart, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntries(rows)
}

func (s *SQLStore) CountBucket(category, period string, periodStart time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM leaderboards
		WHERE skill_category = $1 AND time_period = $2 AND period_start = $3`,
		category, period, periodStart).Scan(&count)
	return count, err
}

func (s *SQLStore) AnonymousName(userID int64, category string) (string, error) {
	var name string
	err := s.db.QueryRow(`
		SELECT anonymous_name FROM leaderboard_names
		WHERE user_id = $1 AND skill_category = $2`,
		userID, category).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return name, err
}

func (s *SQLStore) SaveAnonymousName(userID int64, category, name string) error {
	// DO NOTHING keeps the first persisted pseudonym on a concurrent race.
	_, err := s.db.Exec(`
		INSERT INTO leaderboard_names (user_id, skill_category, anonymous_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, skill_category) DO NOTHING`,
		userID, category, name)
	return err
}

func collectEntries(rows *sql.Rows) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
