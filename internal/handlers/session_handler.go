package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sitesurvey/server/internal/models"
	"github.com/sitesurvey/server/internal/services"
)

// SessionHandler handles session lifecycle and survey editing endpoints
type SessionHandler struct {
	sessions *services.SessionService
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create starts a session from an imported camera dataset
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	session, err := h.sessions.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrEmptyDataset) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Error creating session: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to create session.")
		return
	}

	h.respondJSON(w, http.StatusCreated, session)
}

// Current returns the active session
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Session()
	if err != nil {
		h.respondError(w, http.StatusNotFound, "No active session.")
		return
	}
	h.respondJSON(w, http.StatusOK, session)
}

// Resume makes a previously saved session active again
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "Session ID is required.")
		return
	}

	session, err := h.sessions.Resume(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			h.respondError(w, http.StatusNotFound, "Session not found.")
			return
		}
		log.Printf("Error resuming session %s: %v", id, err)
		h.respondError(w, http.StatusInternalServerError, "Failed to resume session.")
		return
	}

	h.respondJSON(w, http.StatusOK, session)
}

// Latest reports the most recently saved session so the UI can offer
// resuming an interrupted walk on startup
func (h *SessionHandler) Latest(w http.ResponseWriter, r *http.Request) {
	saved, err := h.sessions.Latest(r.Context())
	if err != nil {
		log.Printf("Error loading latest session: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if saved == nil {
		h.respondError(w, http.StatusNotFound, "No saved sessions.")
		return
	}

	h.respondJSON(w, http.StatusOK, saved)
}

// RoomDetailResponse is one room plus its unanswered-field advisory.
type RoomDetailResponse struct {
	Room          *models.Room `json:"room"`
	MissingFields []string     `json:"missingFields"`
}

// GetRoom returns one room with its missing-field advisory. Room ids
// contain a slash, so they travel as a query parameter.
func (h *SessionHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		h.respondError(w, http.StatusBadRequest, "roomId query parameter is required.")
		return
	}

	session, err := h.sessions.Session()
	if err != nil {
		h.respondError(w, http.StatusNotFound, "No active session.")
		return
	}

	room := session.RoomByID(roomID)
	if room == nil {
		h.respondError(w, http.StatusNotFound, "Room not found.")
		return
	}

	h.respondJSON(w, http.StatusOK, RoomDetailResponse{
		Room:          room,
		MissingFields: room.Survey.MissingFields(),
	})
}

// UpdateRoom applies a partial update to one room's survey record
func (h *SessionHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.RoomID == "" {
		h.respondError(w, http.StatusBadRequest, "roomId is required.")
		return
	}

	result, err := h.sessions.UpdateRoom(req)
	if err != nil {
		if errors.Is(err, models.ErrNoActiveSession) {
			h.respondError(w, http.StatusNotFound, "No active session.")
			return
		}
		log.Printf("Error updating room %s: %v", req.RoomID, err)
		h.respondError(w, http.StatusInternalServerError, "Failed to update room.")
		return
	}

	h.respondJSON(w, http.StatusOK, models.UpdateResponse{Result: result})
}

// UpdateCamera applies a partial update to one camera's reposition state
func (h *SessionHandler) UpdateCamera(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateCameraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.RoomID == "" || req.CameraID == "" {
		h.respondError(w, http.StatusBadRequest, "roomId and cameraId are required.")
		return
	}

	result, err := h.sessions.UpdateCamera(req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNoActiveSession):
			h.respondError(w, http.StatusNotFound, "No active session.")
		case errors.Is(err, models.ErrRepositionWithoutCoords):
			h.respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("Error updating camera %s: %v", req.CameraID, err)
			h.respondError(w, http.StatusInternalServerError, "Failed to update camera.")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, models.UpdateResponse{Result: result})
}

// Progress returns the derived completion view of the active session
func (h *SessionHandler) Progress(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Session()
	if err != nil {
		h.respondError(w, http.StatusNotFound, "No active session.")
		return
	}

	h.respondJSON(w, http.StatusOK, services.ProgressFor(session.Rooms))
}

// NextRoom returns the next incomplete room after the given one, wrapping
// around the room list
func (h *SessionHandler) NextRoom(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Session()
	if err != nil {
		h.respondError(w, http.StatusNotFound, "No active session.")
		return
	}

	after := r.URL.Query().Get("after")
	room, ok := services.NextIncompleteRoom(session.Rooms, after)
	if !ok {
		h.respondJSON(w, http.StatusOK, models.NextRoomResponse{Done: true})
		return
	}

	h.respondJSON(w, http.StatusOK, models.NextRoomResponse{RoomID: room.ID()})
}

// SaveStatus reports the autosave indicator
func (h *SessionHandler) SaveStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.sessions.SaveStatus())
}

// FloorMatchResponse reports how an external floor reference was resolved.
type FloorMatchResponse struct {
	FloorID   string `json:"floorId"`
	FloorName string `json:"floorName"`
	Match     string `json:"match"`
	Degraded  bool   `json:"degraded"`
}

// ResolveFloor resolves a map-layer floor reference against the session's
// floors
func (h *SessionHandler) ResolveFloor(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")

	floor, kind, err := h.sessions.ResolveFloor(ref)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "No active session.")
		return
	}
	if floor == nil {
		h.respondError(w, http.StatusNotFound, "Dataset has no floors.")
		return
	}

	h.respondJSON(w, http.StatusOK, FloorMatchResponse{
		FloorID:   floor.ID,
		FloorName: floor.Name,
		Match:     string(kind),
		Degraded:  kind.Degraded(),
	})
}

// Helper methods

func (h *SessionHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *SessionHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
