package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sitesurvey/server/internal/dataset"
	"github.com/sitesurvey/server/internal/models"
	"github.com/sitesurvey/server/internal/observability"
	"github.com/sitesurvey/server/internal/repository"
)

// StatusListener receives autosave status transitions.
type StatusListener func(models.SaveStatusResponse)

// SessionService owns the live survey session. It is the single owner of
// mutable survey state: only Create/Resume initialize it and only the update
// operations below mutate it. Every mutation schedules a debounced autosave;
// a write started from stale state never clobbers a newer save.
type SessionService struct {
	mu       sync.Mutex
	session  *models.Session
	repo     repository.SessionStore
	debounce time.Duration
	now      func() time.Time

	// saveMu serializes durable writes. Held across repo.Save, never
	// while mu is held for longer than a snapshot.
	saveMu  sync.Mutex
	timer   *time.Timer
	saveGen uint64
	status  models.SaveStatus
	savedAt *time.Time

	onStatus StatusListener
	metrics  *observability.SurveyMetrics
	logger   *observability.Logger
}

// NewSessionService creates a SessionService backed by the given store.
func NewSessionService(repo repository.SessionStore, debounce time.Duration) *SessionService {
	return &SessionService{
		repo:     repo,
		debounce: debounce,
		now:      time.Now,
		status:   models.SaveStatusSaved,
		logger:   observability.GetLogger().WithField("component", "session"),
	}
}

// SetClock overrides the service clock. Tests only.
func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

// SetStatusListener registers the autosave status listener.
func (s *SessionService) SetStatusListener(fn StatusListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = fn
}

// SetMetrics attaches autosave metrics instruments.
func (s *SessionService) SetMetrics(m *observability.SurveyMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// Create parses the imported dataset, builds the survey items and installs
// the result as the active session. The initial save is synchronous so a
// reload immediately after import finds the session.
func (s *SessionService) Create(ctx context.Context, req models.CreateSessionRequest) (*models.Session, error) {
	if len(req.Dataset.Cameras) == 0 {
		return nil, models.ErrEmptyDataset
	}

	parsed := dataset.Parse(req.Dataset)
	now := s.now().UTC()
	session := &models.Session{
		ID:          models.NewSessionID(req.ProjectCode, now),
		SiteName:    req.SiteName,
		MapRef:      req.MapRef,
		ProjectCode: req.ProjectCode,
		Destination: req.Destination,
		CreatedAt:   now,
		Dataset:     req.Dataset.Clone(),
		Rooms:       BuildSurveyItems(parsed),
	}

	s.mu.Lock()
	s.session = session
	s.saveGen++
	s.mu.Unlock()

	if err := s.saveNow(ctx); err != nil {
		s.logger.Warnf("Initial session save failed: %v", err)
	}
	s.logger.WithField("session_id", session.ID).
		Infof("Session created: %d rooms, %d cameras", parsed.TotalRooms, parsed.TotalCameras)
	return session.Clone(), nil
}

// Resume loads a previously saved session and makes it active.
func (s *SessionService) Resume(ctx context.Context, sessionID string) (*models.Session, error) {
	saved, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if saved == nil {
		return nil, models.ErrSessionNotFound
	}

	s.mu.Lock()
	s.session = saved.State
	s.status = models.SaveStatusSaved
	savedAt := saved.SavedAt
	s.savedAt = &savedAt
	s.mu.Unlock()

	s.logger.WithField("session_id", sessionID).Info("Session resumed from saved state")
	return saved.State.Clone(), nil
}

// Latest returns the most recently saved session snapshot without making it
// active, or (nil, nil) when nothing was ever saved.
func (s *SessionService) Latest(ctx context.Context) (*models.SavedSession, error) {
	return s.repo.Latest(ctx)
}

// ResolveFloor resolves an external floor reference from the map layer
// against the active session's floors. A first-floor fallback still answers
// but is logged as a degraded match.
func (s *SessionService) ResolveFloor(ref string) (*dataset.Floor, dataset.MatchKind, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil, dataset.MatchNone, models.ErrNoActiveSession
	}
	ds := s.session.Dataset.Clone()
	s.mu.Unlock()

	parsed := dataset.Parse(ds)
	floor, kind := dataset.MatchFloor(parsed.Floors, ref)
	if kind.Degraded() {
		s.logger.WithFields(map[string]interface{}{
			"floor_ref": ref,
			"floor_id":  floor.ID,
		}).Warn("Floor reference only matched the first-floor fallback")
	}
	return floor, kind, nil
}

// Session returns a deep copy of the active session.
func (s *SessionService) Session() (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, models.ErrNoActiveSession
	}
	return s.session.Clone(), nil
}

// UpdateRoom applies a partial update to one room's survey record. The
// targeted room is replaced structurally; every other room is untouched.
// Unknown room ids are a tolerated no-op.
func (s *SessionService) UpdateRoom(req models.UpdateRoomRequest) (models.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return models.UpdateNoopUnknownID, models.ErrNoActiveSession
	}

	idx := s.roomIndexLocked(req.RoomID)
	if idx < 0 {
		return models.UpdateNoopUnknownID, nil
	}

	room := s.session.Rooms[idx].Clone()
	rec := &room.Survey
	if req.CeilingHeight != nil {
		rec.CeilingHeight = *req.CeilingHeight
	}
	if req.CeilingUnit != nil {
		rec.CeilingUnit = *req.CeilingUnit
	}
	if req.PowerOutlet != nil {
		rec.PowerOutlet = *req.PowerOutlet
	}
	if req.MountingSurface != nil {
		rec.MountingSurface = *req.MountingSurface
	}
	if req.Network != nil {
		rec.Network = *req.Network
	}
	if req.Obstructions != nil {
		rec.Obstructions = *req.Obstructions
	}
	if req.Notes != nil {
		rec.Notes = *req.Notes
	}
	if req.Completed != nil {
		rec.Completed = *req.Completed
		if *req.Completed {
			t := s.now().UTC()
			rec.CompletedAt = &t
		} else {
			rec.CompletedAt = nil
		}
	}

	s.session.Rooms[idx] = room
	s.scheduleSaveLocked()
	return models.UpdateApplied, nil
}

// UpdateCamera applies a partial update to one camera's reposition state.
// A camera cannot end up repositioned without both new coordinates.
func (s *SessionService) UpdateCamera(req models.UpdateCameraRequest) (models.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return models.UpdateNoopUnknownID, models.ErrNoActiveSession
	}

	roomIdx := s.roomIndexLocked(req.RoomID)
	if roomIdx < 0 {
		return models.UpdateNoopUnknownID, nil
	}
	room := s.session.Rooms[roomIdx]

	camIdx := -1
	for i, c := range room.Cameras {
		if c.ID == req.CameraID {
			camIdx = i
			break
		}
	}
	if camIdx < 0 {
		return models.UpdateNoopUnknownID, nil
	}

	cam := room.Cameras[camIdx].Clone()
	if req.NewLatitude != nil {
		v := *req.NewLatitude
		cam.NewLatitude = &v
	}
	if req.NewLongitude != nil {
		v := *req.NewLongitude
		cam.NewLongitude = &v
	}
	if req.Repositioned != nil {
		cam.Repositioned = *req.Repositioned
	}
	if req.RepositionReason != nil {
		v := *req.RepositionReason
		cam.RepositionReason = &v
	}
	if cam.Repositioned && cam.NewPosition() == nil {
		return models.UpdateNoopUnknownID, models.ErrRepositionWithoutCoords
	}

	updated := room.Clone()
	updated.Cameras[camIdx] = cam
	s.session.Rooms[roomIdx] = updated
	s.scheduleSaveLocked()
	return models.UpdateApplied, nil
}

// AttachPhoto appends a photo to a room's survey record.
func (s *SessionService) AttachPhoto(roomID string, photo *models.Photo) (models.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return models.UpdateNoopUnknownID, models.ErrNoActiveSession
	}

	idx := s.roomIndexLocked(roomID)
	if idx < 0 {
		return models.UpdateNoopUnknownID, nil
	}

	room := s.session.Rooms[idx]
	for _, p := range room.Survey.Photos {
		if p.FileHash != "" && p.FileHash == photo.FileHash {
			return models.UpdateNoopUnknownID, models.ErrDuplicatePhoto
		}
	}

	updated := room.Clone()
	updated.Survey.Photos = append(updated.Survey.Photos, photo.Clone())
	s.session.Rooms[idx] = updated
	s.scheduleSaveLocked()
	return models.UpdateApplied, nil
}

// RemovePhoto removes the photo at the given index from a room. Returns the
// removed photo so the caller can delete its binary.
func (s *SessionService) RemovePhoto(roomID string, index int) (*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, models.ErrNoActiveSession
	}

	idx := s.roomIndexLocked(roomID)
	if idx < 0 {
		return nil, models.ErrPhotoIndexOutOfRange
	}
	room := s.session.Rooms[idx]
	if index < 0 || index >= len(room.Survey.Photos) {
		return nil, models.ErrPhotoIndexOutOfRange
	}

	updated := room.Clone()
	removed := updated.Survey.Photos[index]
	updated.Survey.Photos = append(updated.Survey.Photos[:index], updated.Survey.Photos[index+1:]...)
	s.session.Rooms[idx] = updated
	s.scheduleSaveLocked()
	return removed, nil
}

// MarkPhotosUploaded replaces local photo state with remote references after
// a confirmed upload; the binary is no longer carried in exports.
func (s *SessionService) MarkPhotosUploaded(refs map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || len(refs) == 0 {
		return
	}

	for i, room := range s.session.Rooms {
		changed := false
		updated := room.Clone()
		for _, p := range updated.Survey.Photos {
			if ref, ok := refs[p.ID]; ok {
				p.RemoteRef = ref
				changed = true
			}
		}
		if changed {
			s.session.Rooms[i] = updated
		}
	}
	s.scheduleSaveLocked()
}

// SaveStatus reports the user-visible autosave indicator.
func (s *SessionService) SaveStatus() models.SaveStatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SaveStatusResponse{Status: s.status, SavedAt: s.savedAt}
}

// Flush cancels any pending debounce and writes the session immediately.
func (s *SessionService) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.saveGen++
	s.mu.Unlock()
	return s.saveNow(ctx)
}

func (s *SessionService) roomIndexLocked(roomID string) int {
	for i, r := range s.session.Rooms {
		if r.ID() == roomID {
			return i
		}
	}
	return -1
}

// scheduleSaveLocked coalesces rapid successive edits into one durable
// write. Each mutation resets the pending timer and bumps the generation so
// a save built from superseded state is discarded.
func (s *SessionService) scheduleSaveLocked() {
	s.saveGen++
	gen := s.saveGen
	s.setStatusLocked(models.SaveStatusSaving)
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.flushGeneration(gen)
	})
}

func (s *SessionService) flushGeneration(gen uint64) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	// Re-check under the save lock: a newer edit may have superseded this
	// generation while an earlier write held saveMu. A superseded snapshot
	// is never written.
	s.mu.Lock()
	if s.session == nil || gen != s.saveGen {
		s.mu.Unlock()
		return
	}
	snapshot := s.session.Clone()
	s.mu.Unlock()

	savedAt := s.now().UTC()
	err := s.repo.Save(context.Background(), &models.SavedSession{
		SessionID: snapshot.ID,
		State:     snapshot,
		SavedAt:   savedAt,
	})

	s.mu.Lock()
	if gen == s.saveGen {
		if err != nil {
			// Non-fatal: the technician keeps working, the indicator flags it.
			s.logger.Warnf("Autosave failed: %v", err)
			s.setStatusLocked(models.SaveStatusOffline)
		} else {
			s.savedAt = &savedAt
			s.setStatusLocked(models.SaveStatusSaved)
		}
	}
	s.recordSaveLocked(err)
	s.mu.Unlock()
}

func (s *SessionService) saveNow(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return models.ErrNoActiveSession
	}
	snapshot := s.session.Clone()
	s.mu.Unlock()

	savedAt := s.now().UTC()
	err := s.repo.Save(ctx, &models.SavedSession{
		SessionID: snapshot.ID,
		State:     snapshot,
		SavedAt:   savedAt,
	})

	s.mu.Lock()
	if err != nil {
		s.setStatusLocked(models.SaveStatusOffline)
	} else {
		s.savedAt = &savedAt
		s.setStatusLocked(models.SaveStatusSaved)
	}
	s.recordSaveLocked(err)
	s.mu.Unlock()
	return err
}

func (s *SessionService) recordSaveLocked(err error) {
	if s.metrics == nil {
		return
	}
	status := "saved"
	if err != nil {
		status = "offline"
	}
	s.metrics.RecordAutosave(context.Background(), status)
}

func (s *SessionService) setStatusLocked(status models.SaveStatus) {
	if s.status == status {
		return
	}
	s.status = status
	if s.onStatus != nil {
		fn := s.onStatus
		resp := models.SaveStatusResponse{Status: status, SavedAt: s.savedAt}
		go fn(resp)
	}
}
