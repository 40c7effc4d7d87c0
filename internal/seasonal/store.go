package seasonal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
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

const eventColumns = `id, name, description, event_type, starts_at, ends_at,
	xp_multiplier, COALESCE(focus_skill_category, ''),
	community_goal_target, community_goal_progress, is_active`

func scanEvent(row interface{ Scan(...interface{}) error }) (*models.SeasonalEvent, error) {
	var ev models.SeasonalEvent
	err := row.Scan(&ev.ID, &ev.Name, &ev.Description, &ev.EventType,
		&ev.StartsAt, &ev.EndsAt, &ev.XPMultiplier, &ev.FocusSkillCategory,
		&ev.CommunityGoalTarget, &ev.CommunityGoalProgress, &ev.IsActive)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *SQLStore) ActiveEvents(now time.Time) ([]models.SeasonalEvent, error) {
	rows, err := s.db.Query(`
		SELECT `+eventColumns+`
		FROM seasonal_events
		WHERE is_active = TRUE AND starts_at <= $1 AND ends_at > $1
		ORDER BY ends_at ASC`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (s *SQLStore) JoinedActiveEvents(userID int64, now time.Time) ([]models.SeasonalEvent, error) {
	rows, err := s.db.Query(`
		SELECT e.id, e.name, e.description, e.event_type, e.starts_at, e.ends_at,
		       e.xp_multiplier, COALESCE(e.focus_skill_category, ''),
		       e.community_goal_target, e.community_goal_progress, e.is_active
		FROM seasonal_events e
		JOIN user_seasonal_progress p ON p.event_id = e.id AND p.user_id = $1
		WHERE e.is_active = TRUE AND e.starts_at <= $2 AND e.ends_at > $2
		ORDER BY e.ends_at ASC`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (s *SQLStore) GetEvent(eventID int64) (*models.SeasonalEvent, error) {
	row := s.db.QueryRow(`
		SELECT `+eventColumns+`
		FROM seasonal_events WHERE id = $1`, eventID)

	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *SQLStore) GetProgress(userID, eventID int64) (*models.UserSeasonalProgress, error) {
	var p models.UserSeasonalProgress
	var rewardsJSON []byte
	err := s.db.QueryRow(`
		SELECT id, user_id, event_id, xp_earned_during_event,
		       challenges_completed, participation_score, special_rewards, joined_at
		FROM user_seasonal_progress
		WHERE user_id = $1 AND event_id = $2`,
		userID, eventID).Scan(&p.ID, &p.UserID, &p.EventID, &p.XPEarnedDuringEvent,
		&p.ChallengesCompleted, &p.ParticipationScore, &rewardsJSON, &p.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.SpecialRewards = []models.SpecialReward{}
	if len(rewardsJSON) > 0 {
		if err := json.Unmarshal(rewardsJSON, &p.SpecialRewards); err != nil {
			return nil, fmt.Errorf("parse special rewards: %w", err)
		}
	}
	return &p, nil
}

// InsertProgress creates the join record. Returns false when the user had
// already joined.
func (s *SQLStore) InsertProgress(userID, eventID int64) (bool, error) {
	res, err := s.db.Exec(`
		INSERT INTO user_seasonal_progress (user_id, event_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, event_id) DO NOTHING`,
		userID, eventID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) AddEventXP(userID, eventID int64, xp int) error {
	_, err := s.db.Exec(`
		UPDATE user_seasonal_progress
		SET xp_earned_during_event = xp_earned_during_event + $1
		WHERE user_id = $2 AND event_id = $3`,
		xp, userID, eventID)
	return err
}

func (s *SQLStore) AddCommunityProgress(eventID int64, amount int64) error {
	_, err := s.db.Exec(`
		UPDATE seasonal_events
		SET community_goal_progress = community_goal_progress + $1
		WHERE id = $2`,
		amount, eventID)
	return err
}

func (s *SQLStore) SaveProgress(p *models.UserSeasonalProgress) error {
	rewardsJSON, err := json.Marshal(p.SpecialRewards)
	if err != nil {
		return fmt.Errorf("encode special rewards: %w", err)
	}

	_, err = s.db.Exec(`
		UPDATE user_seasonal_progress
		SET challenges_completed = $1, participation_score = $2, special_rewards = $3
		WHERE id = $4`,
		p.ChallengesCompleted, p.ParticipationScore, rewardsJSON, p.ID)
	return err
}

func (s *SQLStore) ActivateDue(now time.Time) (int64, error) {
	res, err := s.db.Exec(`
		UPDATE seasonal_events
		SET is_active = TRUE
		WHERE is_active = FALSE AND starts_at <= $1 AND ends_at > $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLStore) DeactivateExpired(now time.Time) (int64, error) {
	res, err := s.db.Exec(`
		UPDATE seasonal_events
		SET is_active = FALSE
		WHERE is_active = TRUE AND ends_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func collectEvents(rows *sql.Rows) ([]models.SeasonalEvent, error) {
	var events []models.SeasonalEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}
