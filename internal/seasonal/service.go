package seasonal

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/skillforge/backend/internal/models"
)

var (
	// ErrEventNotFound means the event ID does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrEventNotActive means the event exists but is outside its
	// validity window or deactivated.
	ErrEventNotActive = errors.New("event not active")

	// ErrNotJoined means the user has no progress record for the event.
	ErrNotJoined = errors.New("not joined")
)

const participationPerChallenge = 10

// challengeRewards maps challenge-count milestones to the reward granted
// when the count is first reached. Each reward is granted at most once per
// user per event.
var challengeRewards = map[int]models.SpecialReward{
	1:  {Type: "title", Value: "Participant"},
	5:  {Type: "badge", Value: "Challenger"},
	10: {Type: "title", Value: "Event Champion"},
}

// Store is the persistence collaborator for seasonal events.
type Store interface {
	ActiveEvents(now time.Time) ([]models.SeasonalEvent, error)
	JoinedActiveEvents(userID int64, now time.Time) ([]models.SeasonalEvent, error)
	GetEvent(eventID int64) (*models.SeasonalEvent, error)
	GetProgress(userID, eventID int64) (*models.UserSeasonalProgress, error)
	InsertProgress(userID, eventID int64) (bool, error)
	AddEventXP(userID, eventID int64, xp int) error
	AddCommunityProgress(eventID int64, amount int64) error
	SaveProgress(p *models.UserSeasonalProgress) error
	ActivateDue(now time.Time) (int64, error)
	DeactivateExpired(now time.Time) (int64, error)
}

// XPAwarder is the slice of the progression service challenge completion
// needs. Kept as a local interface so this package stays decoupled from
// the progression package.
type XPAwarder interface {
	AwardXP(userID int64, action string, meta models.ActionMetadata) (*models.XPAward, error)
}

type Service struct {
	store Store

	// Awards is attached after construction. Nil disables the challenge
	// completion XP bonus.
	Awards XPAwarder

	now func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// XPMultiplier computes the combined multiplier from every active event
// the user has joined. Only xp_boost events (with no focus category, or a
// matching one) and skill_focus events (exact category match) contribute;
// multipliers compound. activityType does not discriminate yet; no event
// type filters on it. Any lookup failure resolves to 1.0 so an XP award
// is never blocked.
func (s *Service) XPMultiplier(userID int64, skillCategory, activityType string) float64 {
	events, err := s.store.JoinedActiveEvents(userID, s.now())
	if err != nil {
		log.Printf("[seasonal] multiplier lookup failed for user %d: %v", userID, err)
		return 1.0
	}

	multiplier := 1.0
	for _, ev := range events {
		if ev.XPMultiplier <= 0 {
			continue
		}
		switch ev.EventType {
		case models.EventXPBoost:
			if ev.FocusSkillCategory == "" || ev.FocusSkillCategory == skillCategory {
				multiplier *= ev.XPMultiplier
			}
		case models.EventSkillFocus:
			if ev.FocusSkillCategory != "" && ev.FocusSkillCategory == skillCategory {
				multiplier *= ev.XPMultiplier
			}
		}
	}
	return multiplier
}

// RecordXP accumulates earned XP into every active event the user has
// joined, and advances community goals. Called from the award pipeline as
// a best-effort enrichment, so failures only log.
func (s *Service) RecordXP(userID int64, xp int, skillCategory string) {
	if xp <= 0 {
		return
	}

	events, err := s.store.JoinedActiveEvents(userID, s.now())
	if err != nil {
		log.Printf("[seasonal] record xp lookup failed for user %d: %v", userID, err)
		return
	}

	for _, ev := range events {
		if err := s.store.AddEventXP(userID, ev.ID, xp); err != nil {
			log.Printf("[seasonal] event xp update failed for user %d event %d: %v", userID, ev.ID, err)
			continue
		}
		if ev.EventType == models.EventCommunity && ev.CommunityGoalTarget > 0 {
			if err := s.store.AddCommunityProgress(ev.ID, int64(xp)); err != nil {
				log.Printf("[seasonal] community goal update failed for event %d: %v", ev.ID, err)
			}
		}
	}
}

// ListActive returns the events currently inside their validity window.
func (s *Service) ListActive() ([]models.SeasonalEvent, error) {
	events, err := s.store.ActiveEvents(s.now())
	if err != nil {
		return nil, fmt.Errorf("list active events: %w", err)
	}
	if events == nil {
		events = []models.SeasonalEvent{}
	}
	return events, nil
}

// Join creates the user's progress record for an active event. Joining
// twice is a no-op returning the existing record.
func (s *Service) Join(userID, eventID int64) (*models.UserSeasonalProgress, error) {
	event, err := s.store.GetEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	now := s.now()
	if !event.IsActive || now.Before(event.StartsAt) || !now.Before(event.EndsAt) {
		return nil, ErrEventNotActive
	}

	if _, err := s.store.InsertProgress(userID, eventID); err != nil {
		return nil, fmt.Errorf("insert progress: %w", err)
	}

	progress, err := s.store.GetProgress(userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return progress, nil
}

// Progress returns the user's progress for one event.
func (s *Service) Progress(userID, eventID int64) (*models.UserSeasonalProgress, error) {
	progress, err := s.store.GetProgress(userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	if progress == nil {
		return nil, ErrNotJoined
	}
	return progress, nil
}

// CompleteChallenge records one challenge completion for a joined, active
// event: increments the counters, grants any milestone reward not already
// held, and awards the seasonal challenge XP bonus.
func (s *Service) CompleteChallenge(userID, eventID int64, challengeID string) (*models.ChallengeCompleteResponse, error) {
	event, err := s.store.GetEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	now := s.now()
	if !event.IsActive || now.Before(event.StartsAt) || !now.Before(event.EndsAt) {
		return nil, ErrEventNotActive
	}

	progress, err := s.store.GetProgress(userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	if progress == nil {
		return nil, ErrNotJoined
	}

	progress.ChallengesCompleted++
	progress.ParticipationScore += participationPerChallenge

	var newRewards []models.SpecialReward
	if reward, ok := challengeRewards[progress.ChallengesCompleted]; ok && !hasReward(progress.SpecialRewards, reward) {
		progress.SpecialRewards = append(progress.SpecialRewards, reward)
		newRewards = append(newRewards, reward)
	}

	if err := s.store.SaveProgress(progress); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}

	if s.Awards != nil {
		meta := models.ActionMetadata{
			SkillCategory: event.FocusSkillCategory,
			SourceID:      challengeID,
			SourceType:    "seasonal_event",
		}
		if _, err := s.Awards.AwardXP(userID, "seasonal_challenge", meta); err != nil {
			log.Printf("[seasonal] challenge xp award failed for user %d: %v", userID, err)
		}
	}

	if newRewards == nil {
		newRewards = []models.SpecialReward{}
	}
	return &models.ChallengeCompleteResponse{
		ChallengesCompleted: progress.ChallengesCompleted,
		ParticipationScore:  progress.ParticipationScore,
		NewRewards:          newRewards,
	}, nil
}

func hasReward(rewards []models.SpecialReward, r models.SpecialReward) bool {
	for _, have := range rewards {
		if have.Type == r.Type && have.Value == r.Value {
			return true
		}
	}
	return false
}

// RunLifecycle flips is_active on events whose window has opened or
// closed. Runs until the stop channel closes.
func (s *Service) RunLifecycle(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tickLifecycle()
	for {
		select {
		case <-ticker.C:
			s.tickLifecycle()
		case <-stop:
			return
		}
	}
}

func (s *Service) tickLifecycle() {
	now := s.now()
	activated, err := s.store.ActivateDue(now)
	if err != nil {
		log.Printf("[seasonal] activate pass failed: %v", err)
	} else if activated > 0 {
		log.Printf("[seasonal] activated %d event(s)", activated)
	}

	deactivated, err := s.store.DeactivateExpired(now)
	if err != nil {
		log.Printf("[seasonal] deactivate pass failed: %v", err)
	} else if deactivated > 0 {
		log.Printf("[seasonal] deactivated %d event(s)", deactivated)
	}
}
