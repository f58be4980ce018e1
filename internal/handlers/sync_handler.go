package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/sitesurvey/server/internal/models"
	"github.com/sitesurvey/server/internal/services"
)

// SyncHandler handles submission and pending upload queue endpoints
type SyncHandler struct {
	sync *services.SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(sync *services.SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// Submit runs one submission attempt for the active session
func (h *SyncHandler) Submit(w http.ResponseWriter, r *http.Request) {
	resp, err := h.sync.Submit(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, models.ErrSubmissionInProgress):
			h.respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, models.ErrNoActiveSession):
			h.respondError(w, http.StatusNotFound, "No active session.")
		case errors.Is(err, models.ErrNoDestination):
			h.respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("Submission failed: %v", err)
			h.respondJSON(w, http.StatusBadGateway, resp)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Replay drains the pending upload queue
func (h *SyncHandler) Replay(w http.ResponseWriter, r *http.Request) {
	resp, err := h.sync.Replay(r.Context())
	if err != nil {
		log.Printf("Replay failed: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to replay pending uploads.")
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Status returns the last reported submission progress
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.sync.Status())
}

// Helper methods

func (h *SyncHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *SyncHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
