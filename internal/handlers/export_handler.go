package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/sitesurvey/server/internal/models"
	"github.com/sitesurvey/server/internal/services"
)

// ExportHandler handles export document endpoints
type ExportHandler struct {
	sessions *services.SessionService
	exporter *services.ExportService
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(sessions *services.SessionService, exporter *services.ExportService) *ExportHandler {
	return &ExportHandler{sessions: sessions, exporter: exporter}
}

// Download builds the export document for the active session and returns it
// as a JSON attachment
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Session()
	if err != nil {
		h.respondError(w, http.StatusNotFound, "No active session.")
		return
	}

	// Filename variant: not-yet-uploaded photos are referenced by their
	// generated filenames instead of appearing with no reference at all.
	doc, _ := h.exporter.BuildExportWithFilenames(session)
	data, err := h.exporter.MarshalExport(doc)
	if err != nil {
		log.Printf("Error marshaling export: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to build export.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", session.ID+".json"))
	w.Write(data)
}

// Changes returns the reposition change log for the active session
func (h *ExportHandler) Changes(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Session()
	if err != nil {
		h.respondError(w, http.StatusNotFound, "No active session.")
		return
	}

	h.respondJSON(w, http.StatusOK, services.BuildChangeLog(session.Dataset, session.Rooms))
}

// Helper methods

func (h *ExportHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *ExportHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
