package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sitesurvey/server/internal/models"
	"github.com/sitesurvey/server/internal/observability"
	"github.com/sitesurvey/server/internal/services"
)

// PhotoHandler handles room photo endpoints
type PhotoHandler struct {
	sessions         *services.SessionService
	storageService   *services.PhotoStorageService
	hashService      *services.HashService
	exifService      *services.EXIFService
	thumbnailService *services.ThumbnailService
	metrics          *observability.SurveyMetrics
}

// NewPhotoHandler creates a new PhotoHandler
func NewPhotoHandler(
	sessions *services.SessionService,
	storageService *services.PhotoStorageService,
	hashService *services.HashService,
	exifService *services.EXIFService,
	thumbnailService *services.ThumbnailService,
	metrics *observability.SurveyMetrics,
) *PhotoHandler {
	return &PhotoHandler{
		sessions:         sessions,
		storageService:   storageService,
		hashService:      hashService,
		exifService:      exifService,
		thumbnailService: thumbnailService,
		metrics:          metrics,
	}
}

// Attach stores an uploaded photo and attaches it to a room survey
func (h *PhotoHandler) Attach(w http.ResponseWriter, r *http.Request) {
	// Parse multipart form (max 50MB)
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		h.respondError(w, http.StatusBadRequest, "Request must be multipart/form-data.")
		return
	}

	roomID := r.FormValue("roomId")
	if roomID == "" {
		h.respondError(w, http.StatusBadRequest, "roomId is required.")
		return
	}

	label := models.PhotoLabel(r.FormValue("label"))
	if label == "" {
		label = models.LabelOther
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "No file provided or file is empty.")
		return
	}
	defer file.Close()

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

	content, err := io.ReadAll(file)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to read file.")
		return
	}

	fileHash := h.hashService.ComputeHashBytes(content)
	meta := h.exifService.Extract(content)

	capturedAt := time.Now().UTC()
	if meta.CapturedAt != nil {
		capturedAt = *meta.CapturedAt
	}

	roomSlug := services.Slugify(room.Key.Name)
	storedPath, err := h.storageService.Store(
		bytes.NewReader(content),
		session.ID,
		roomSlug,
		header.Filename,
		int64(len(content)),
	)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrFileTooLarge), errors.Is(err, models.ErrInvalidExtension), errors.Is(err, models.ErrEmptyFilename):
			h.respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("Error storing photo: %v", err)
			h.respondError(w, http.StatusInternalServerError, "Failed to store file.")
		}
		return
	}

	photo := &models.Photo{
		ID:         uuid.New().String(),
		Label:      label,
		CapturedAt: capturedAt,
		StoredPath: storedPath,
		FileHash:   fileHash,
		FileSize:   int64(len(content)),
		Extension:  strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), "."),
	}

	result, err := h.sessions.AttachPhoto(roomID, photo)
	if err != nil || result != models.UpdateApplied {
		h.storageService.Delete(storedPath) // Clean up
		switch {
		case errors.Is(err, models.ErrDuplicatePhoto):
			h.respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, models.ErrNoActiveSession):
			h.respondError(w, http.StatusNotFound, "No active session.")
		default:
			h.respondError(w, http.StatusNotFound, "Room not found.")
		}
		return
	}

	if _, err := h.thumbnailService.GeneratePreview(content, photo.ID, storedPath, meta.Orientation); err != nil {
		log.Printf("Warning: failed to generate preview for %s: %v", photo.ID, err)
	}

	if h.metrics != nil {
		h.metrics.RecordPhotoAttachment(r.Context(), string(label), photo.FileSize)
	}

	h.respondJSON(w, http.StatusOK, models.AttachPhotoResult{
		PhotoID:    photo.ID,
		StoredPath: storedPath,
		CapturedAt: capturedAt,
	})
}

// Remove detaches a photo from a room by index and deletes its binary
func (h *PhotoHandler) Remove(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		h.respondError(w, http.StatusBadRequest, "roomId query parameter is required.")
		return
	}

	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "index query parameter must be a number.")
		return
	}

	removed, err := h.sessions.RemovePhoto(roomID, index)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNoActiveSession):
			h.respondError(w, http.StatusNotFound, "No active session.")
		case errors.Is(err, models.ErrPhotoIndexOutOfRange):
			h.respondError(w, http.StatusNotFound, "Photo not found.")
		default:
			log.Printf("Error removing photo: %v", err)
			h.respondError(w, http.StatusInternalServerError, "Failed to remove photo.")
		}
		return
	}

	if removed.StoredPath != "" {
		h.storageService.Delete(removed.StoredPath)
		h.thumbnailService.DeletePreview(removed.StoredPath, removed.ID)
	}

	w.WriteHeader(http.StatusNoContent)
}

// Serve streams a stored photo binary back to the UI
func (h *PhotoHandler) Serve(w http.ResponseWriter, r *http.Request) {
	storedPath := r.URL.Query().Get("path")
	if storedPath == "" {
		h.respondError(w, http.StatusBadRequest, "path query parameter is required.")
		return
	}

	f, size, err := h.storageService.Open(storedPath)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrPathTraversal):
			h.respondError(w, http.StatusBadRequest, "Invalid path.")
		default:
			h.respondError(w, http.StatusNotFound, "Photo not found.")
		}
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	io.Copy(w, f)
}

// Helper methods

func (h *PhotoHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *PhotoHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
