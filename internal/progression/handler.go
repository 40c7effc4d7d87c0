package progression

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/skillforge/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

// ── Progress ────────────────────────────────────────────

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	progress, err := h.service.GetProgress(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get progress"})
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

func (h *Handler) ProcessEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.ProgressEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Action == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "action is required"})
		return
	}

	result, err := h.service.ProcessEvent(userID, req.Action, req.Metadata)
	if err != nil {
		if errors.Is(err, ErrInvalidAction) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to process event"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ── XP ──────────────────────────────────────────────────

func (h *Handler) AwardXP(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.AwardXPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Action == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "action is required"})
		return
	}

	award, err := h.service.AwardXP(userID, req.Action, req.Metadata)
	if err != nil {
		if errors.Is(err, ErrInvalidAction) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to award XP"})
		return
	}

	writeJSON(w, http.StatusOK, award)
}

// ── Streaks ─────────────────────────────────────────────

func (h *Handler) UpdateStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	streakType := mux.Vars(r)["type"]

	update, err := h.service.UpdateStreak(userID, streakType)
	if err != nil {
		if errors.Is(err, ErrUnknownStreakType) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to update streak"})
		return
	}

	writeJSON(w, http.StatusOK, update)
}

// ── Achievements ────────────────────────────────────────

func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	achievements, err := h.service.Achievements(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get achievements"})
		return
	}
	if achievements == nil {
		achievements = []models.AchievementDetail{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"achievements": achievements})
}

func (h *Handler) ListBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.service.Badges()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get badges"})
		return
	}
	if badges == nil {
		badges = []models.BadgeDefinition{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"badges": badges})
}

// ── Avatars ─────────────────────────────────────────────

func (h *Handler) ListAvatars(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	presets, unlocked, err := h.service.ListAvatars(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get avatars"})
		return
	}

	type avatarEntry struct {
		models.AvatarPreset
		Unlocked bool `json:"unlocked"`
	}
	entries := []avatarEntry{}
	for _, p := range presets {
		entries = append(entries, avatarEntry{AvatarPreset: p, Unlocked: unlocked[p.ID]})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"avatars": entries})
}

func (h *Handler) UnlockAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	presetID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid preset ID"})
		return
	}

	resp, err := h.service.UnlockAvatar(userID, presetID)
	if err != nil {
		if errors.Is(err, ErrRequirementsNotMet) {
			writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ── Helpers ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
