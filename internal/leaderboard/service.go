package leaderboard

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/skillforge/backend/internal/models"
)

// Time periods.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodAllTime = "all_time"
)

var allPeriods = []string{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime}

// Score weights are fixed constants, not configuration.
const (
	weightQuiz    = 10
	weightPerfect = 25
	weightStreak  = 5
)

// allTimeStart is the fixed period start for all_time buckets.
var allTimeStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Score computes the composite leaderboard score from raw period metrics.
func Score(m models.LeaderboardMetrics) int64 {
	return m.XPEarned +
		weightQuiz*int64(m.QuizzesCompleted) +
		weightPerfect*int64(m.PerfectScores) +
		weightStreak*int64(m.StreakDays)
}

// PeriodStart computes the deterministic bucket start for a period
// containing now. Weekly windows are Sunday-aligned.
func PeriodStart(period string, now time.Time) (time.Time, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch period {
	case PeriodDaily:
		return day, nil
	case PeriodWeekly:
		return day.AddDate(0, 0, -int(day.Weekday())), nil
	case PeriodMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	case PeriodAllTime:
		return allTimeStart, nil
	}
	return time.Time{}, fmt.Errorf("invalid time period %q", period)
}

// Store is the persistence collaborator for leaderboard buckets.
type Store interface {
	GetEntry(userID int64, category, period string, periodStart time.Time) (*models.LeaderboardEntry, error)
	SaveEntry(e *models.LeaderboardEntry) error
	BucketEntries(category, period string, periodStart time.Time) ([]models.LeaderboardEntry, error)
	SetRank(entryID int64, rank int) error
	TopEntries(category, period string, periodStart time.Time, limit int) ([]models.LeaderboardEntry, error)
	CountBucket(category, period string, periodStart time.Time) (int, error)
	AnonymousName(userID int64, category string) (string, error)
	SaveAnonymousName(userID int64, category, name string) error
}

type Service struct {
	store Store

	// mu serializes rank recomputation. Bucket rewrites are
	// read-then-write-many; without this two concurrent updates to the
	// same bucket could interleave rank assignments.
	mu sync.Mutex

	now func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// UpdateEntry upserts a user's metrics for one bucket and recomputes that
// bucket's full ranking.
func (s *Service) UpdateEntry(userID int64, category, period string, metrics models.LeaderboardMetrics) error {
	start, err := PeriodStart(period, s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(userID, category, period, start, metrics)
}

func (s *Service) upsertLocked(userID int64, category, period string, start time.Time, metrics models.LeaderboardMetrics) error {
	name, err := s.anonymousNameFor(userID, category)
	if err != nil {
		return err
	}

	entry, err := s.store.GetEntry(userID, category, period, start)
	if err != nil {
		return fmt.Errorf("get entry: %w", err)
	}
	if entry == nil {
		entry = &models.LeaderboardEntry{
			UserID:        userID,
			SkillCategory: category,
			TimePeriod:    period,
			PeriodStart:   start,
		}
	}

	entry.XPEarned = metrics.XPEarned
	entry.QuizzesCompleted = metrics.QuizzesCompleted
	entry.PerfectScores = metrics.PerfectScores
	entry.StreakDays = metrics.StreakDays
	entry.UserScore = Score(metrics)
	entry.AnonymousName = name

	if err := s.store.SaveEntry(entry); err != nil {
		return fmt.Errorf("save entry: %w", err)
	}

	return s.rerank(category, period, start)
}

// rerank reassigns dense 1..N ranks ordered by descending score. Ties
// keep their stable secondary order (ascending entry id) from the bucket
// query, so repeated recomputes never shuffle equal scores.
func (s *Service) rerank(category, period string, start time.Time) error {
	entries, err := s.store.BucketEntries(category, period, start)
	if err != nil {
		return fmt.Errorf("bucket entries: %w", err)
	}
	for i, e := range entries {
		rank := i + 1
		if e.UserRank == rank {
			continue
		}
		if err := s.store.SetRank(e.ID, rank); err != nil {
			return fmt.Errorf("set rank: %w", err)
		}
	}
	return nil
}

// RecordActivity folds one activity's deltas into every period bucket for
// the category. It is called from the progression pipeline as a
// best-effort enrichment, so failures only log.
func (s *Service) RecordActivity(userID int64, category string, xp, quizzes, perfectScores, streakDays int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, period := range allPeriods {
		start, err := PeriodStart(period, now)
		if err != nil {
			continue
		}

		entry, err := s.store.GetEntry(userID, category, period, start)
		if err != nil {
			log.Printf("[leaderboard] get entry failed for user %d: %v", userID, err)
			continue
		}

		metrics := models.LeaderboardMetrics{StreakDays: streakDays}
		if entry != nil {
			metrics.XPEarned = entry.XPEarned
			metrics.QuizzesCompleted = entry.QuizzesCompleted
			metrics.PerfectScores = entry.PerfectScores
			if entry.StreakDays > streakDays {
				metrics.StreakDays = entry.StreakDays
			}
		}
		metrics.XPEarned += int64(xp)
		metrics.QuizzesCompleted += quizzes
		metrics.PerfectScores += perfectScores

		if err := s.upsertLocked(userID, category, period, start, metrics); err != nil {
			log.Printf("[leaderboard] update failed for user %d (%s/%s): %v", userID, category, period, err)
		}
	}
}

// GetLeaderboard returns the top entries of a bucket plus, when the
// requesting user sits outside the top slice, their own entry appended
// separately.
func (s *Service) GetLeaderboard(category, period string, userID int64, limit int) (*models.LeaderboardData, error) {
	if limit <= 0 {
		limit = 20
	}
	start, err := PeriodStart(period, s.now())
	if err != nil {
		return nil, err
	}

	entries, err := s.store.TopEntries(category, period, start, limit)
	if err != nil {
		return nil, fmt.Errorf("top entries: %w", err)
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}

	data := &models.LeaderboardData{
		SkillCategory: category,
		TimePeriod:    period,
		PeriodStart:   start,
		Entries:       entries,
	}

	found := false
	for i := range entries {
		if entries[i].UserID == userID {
			entries[i].IsCurrentUser = true
			found = true
		}
	}
	if userID > 0 && !found {
		own, err := s.store.GetEntry(userID, category, period, start)
		if err == nil && own != nil {
			own.IsCurrentUser = true
			data.CurrentUser = own
		}
	}

	total, err := s.store.CountBucket(category, period, start)
	if err == nil {
		data.TotalEntries = total
	}

	return data, nil
}

func (s *Service) anonymousNameFor(userID int64, category string) (string, error) {
	name, err := s.store.AnonymousName(userID, category)
	if err != nil {
		return "", fmt.Errorf("get anonymous name: %w", err)
	}
	if name != "" {
		return name, nil
	}

	name = generateAnonymousName()
	if err := s.store.SaveAnonymousName(userID, category, name); err != nil {
		return "", fmt.Errorf("save anonymous name: %w", err)
	}
	return name, nil
}
