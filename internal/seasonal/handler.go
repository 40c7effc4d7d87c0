package seasonal

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

func eventID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// ListEvents serves the currently active seasonal events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListActive()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get events"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (h *Handler) JoinEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	id, err := eventID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid event ID"})
		return
	}

	progress, err := h.service.Join(userID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
		case errors.Is(err, ErrEventNotActive):
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to join event"})
		}
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	id, err := eventID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid event ID"})
		return
	}

	progress, err := h.service.Progress(userID, id)
	if err != nil {
		if errors.Is(err, ErrNotJoined) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get progress"})
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

func (h *Handler) CompleteChallenge(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	id, err := eventID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid event ID"})
		return
	}

	var req models.ChallengeCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.ChallengeID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "challenge_id is required"})
		return
	}

	resp, err := h.service.CompleteChallenge(userID, id, req.ChallengeID)
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
		case errors.Is(err, ErrEventNotActive):
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: err.Error()})
		case errors.Is(err, ErrNotJoined):
			writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to complete challenge"})
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
