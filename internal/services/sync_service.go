package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sitesurvey/server/internal/models"
	"github.com/sitesurvey/server/internal/observability"
	"github.com/sitesurvey/server/internal/repository"
)

// SyncPhase describes where a submission attempt currently is.
type SyncPhase string

const (
	PhaseIdle                SyncPhase = "idle"
	PhasePreparing           SyncPhase = "preparing"
	PhaseUploadingJSON       SyncPhase = "uploading-json"
	PhaseUploadingPlacements SyncPhase = "uploading-placements"
	PhaseUploadingPhotos     SyncPhase = "uploading-photos"
	PhaseDone                SyncPhase = "done"
	PhaseFailed              SyncPhase = "failed"
	PhaseQueued              SyncPhase = "queued"
)

// SyncProgress reports submission progress to listeners.
type SyncProgress struct {
	Phase       SyncPhase `json:"phase"`
	Message     string    `json:"message,omitempty"`
	PhotosTotal int       `json:"photosTotal"`
	PhotosDone  int       `json:"photosDone"`
}

// SyncProgressFunc is called with progress updates during a submission.
type SyncProgressFunc func(SyncProgress)

// SyncService orchestrates a submission: export, upload the survey JSON,
// upload the changed-placements file when any camera moved, then upload
// photos one at a time. Steps run strictly in that order because the JSON
// manifest must reference photo filenames before the photos appear. A step
// failure fails the whole attempt; retrying the attempt is the recovery
// path. When the link is known to be down the attempt is queued instead.
type SyncService struct {
	mu      sync.Mutex
	running bool
	last    SyncProgress

	sessions *SessionService
	exporter *ExportService
	storage  *PhotoStorageService
	queue    repository.UploadQueue
	remote   RemoteStore
	now      func() time.Time

	onProgress SyncProgressFunc
	logger     *observability.Logger
	metrics    *observability.SurveyMetrics
}

// NewSyncService creates a SyncService.
func NewSyncService(
	sessions *SessionService,
	exporter *ExportService,
	storage *PhotoStorageService,
	queue repository.UploadQueue,
	remote RemoteStore,
) *SyncService {
	return &SyncService{
		sessions: sessions,
		exporter: exporter,
		storage:  storage,
		queue:    queue,
		remote:   remote,
		now:      time.Now,
		last:     SyncProgress{Phase: PhaseIdle},
		logger:   observability.GetLogger().WithField("component", "sync"),
	}
}

// SetMetrics attaches workflow metrics instruments.
func (s *SyncService) SetMetrics(m *observability.SurveyMetrics) {
	s.metrics = m
}

// SetProgressListener registers the upload status listener.
func (s *SyncService) SetProgressListener(fn SyncProgressFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onProgress = fn
}

// Status returns the last reported progress.
func (s *SyncService) Status() SyncProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// uploadJob is a fully-built submission snapshot; replay runs the same job
// shape straight out of the queue.
type uploadJob struct {
	SurveyID       string
	Destination    string
	SurveyName     string
	SurveyJSON     []byte
	PlacementsName string
	PlacementsJSON []byte
	Photos         []models.UploadedPhoto
}

// Submit runs one submission attempt for the active session.
func (s *SyncService) Submit(ctx context.Context) (models.SubmitResponse, error) {
	ctx, span := observability.StartServiceSpan(ctx, "sync", "submit")
	defer span.End()

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return models.SubmitResponse{}, models.ErrSubmissionInProgress
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.report(SyncProgress{Phase: PhasePreparing, Message: "Preparing export"})

	session, err := s.sessions.Session()
	if err != nil {
		observability.RecordError(span, err)
		s.report(SyncProgress{Phase: PhaseFailed, Message: err.Error()})
		return models.SubmitResponse{}, err
	}
	if session.Destination == "" {
		observability.RecordError(span, models.ErrNoDestination)
		s.report(SyncProgress{Phase: PhaseFailed, Message: models.ErrNoDestination.Error()})
		return models.SubmitResponse{}, models.ErrNoDestination
	}

	// Persist before shipping so a crash mid-upload loses nothing.
	if err := s.sessions.Flush(ctx); err != nil {
		s.logger.Warnf("Pre-submit flush failed: %v", err)
	}

	job, err := s.buildJob(session)
	if err != nil {
		s.report(SyncProgress{Phase: PhaseFailed, Message: err.Error()})
		return models.SubmitResponse{}, err
	}

	if !s.remote.Online(ctx) {
		id, qErr := s.enqueue(ctx, job)
		if qErr != nil {
			observability.RecordError(span, qErr)
			s.report(SyncProgress{Phase: PhaseFailed, Message: qErr.Error()})
			return models.SubmitResponse{}, qErr
		}
		observability.SetSuccess(span)
		s.recordSubmission(ctx, "queued", len(job.Photos))
		s.report(SyncProgress{Phase: PhaseQueued, Message: "Offline - submission queued"})
		return models.SubmitResponse{Status: "queued", UploadID: id}, nil
	}

	refs, err := s.run(ctx, job)
	if err != nil {
		observability.RecordError(span, err)
		s.recordSubmission(ctx, "failed", len(job.Photos))
		s.report(SyncProgress{Phase: PhaseFailed, Message: err.Error()})
		return models.SubmitResponse{Status: "failed", Message: err.Error()}, err
	}

	s.sessions.MarkPhotosUploaded(refs)
	observability.SetSuccess(span)
	s.recordSubmission(ctx, "succeeded", len(job.Photos))
	s.report(SyncProgress{Phase: PhaseDone, Message: "Submission complete"})
	return models.SubmitResponse{Status: "succeeded"}, nil
}

// Replay drains the pending upload queue. Each entry gets a fresh full
// attempt; entries leave the queue only after confirmed success, so
// delivery is at-least-once and the remote deduplicates by idempotency key.
func (s *SyncService) Replay(ctx context.Context) (models.ReplayResponse, error) {
	ctx, span := observability.StartServiceSpan(ctx, "sync", "replay")
	defer span.End()

	pending, err := s.queue.List(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return models.ReplayResponse{}, fmt.Errorf("list pending uploads: %w", err)
	}

	resp := models.ReplayResponse{Attempted: len(pending)}
	for _, entry := range pending {
		job := uploadJob{
			Destination:    entry.Destination,
			SurveyName:     fmt.Sprintf("%s.json", entry.ID),
			SurveyJSON:     entry.SurveyJSON,
			PlacementsName: fmt.Sprintf("%s_placements.json", entry.ID),
			PlacementsJSON: entry.PlacementsJSON,
			Photos:         entry.Photos,
		}
		// The queued snapshot knows its real filenames from the export doc.
		if name := surveyNameFromJSON(entry.SurveyJSON); name != "" {
			job.SurveyID = name
			job.SurveyName = name + ".json"
			job.PlacementsName = name + "_placements.json"
		}

		refs, err := s.run(ctx, job)
		if err != nil {
			s.logger.WithField("upload_id", entry.ID).Warnf("Replay attempt failed: %v", err)
			continue
		}
		if err := s.queue.Remove(ctx, entry.ID); err != nil {
			s.logger.WithField("upload_id", entry.ID).Errorf("Delivered but not dequeued: %v", err)
			continue
		}
		s.sessions.MarkPhotosUploaded(refs)
		resp.Delivered++
	}
	resp.Remaining = resp.Attempted - resp.Delivered
	observability.SetSuccess(span)
	if s.metrics != nil {
		s.metrics.RecordReplay(ctx, resp.Attempted, resp.Delivered)
	}
	return resp, nil
}

func (s *SyncService) recordSubmission(ctx context.Context, status string, photoCount int) {
	if s.metrics != nil {
		s.metrics.RecordSubmission(ctx, status, photoCount)
	}
}

// buildJob snapshots everything one submission needs.
func (s *SyncService) buildJob(session *models.Session) (uploadJob, error) {
	doc, artifacts := s.exporter.BuildExportWithFilenames(session)
	surveyJSON, err := s.exporter.MarshalExport(doc)
	if err != nil {
		return uploadJob{}, fmt.Errorf("marshal export: %w", err)
	}

	job := uploadJob{
		SurveyID:    session.ID,
		Destination: session.Destination,
		SurveyName:  session.ID + ".json",
		SurveyJSON:  surveyJSON,
	}

	if doc.Summary.RepositionedCameras > 0 {
		placements := BuildUpdatedPlacements(session.Dataset, session.Rooms)
		data, err := json.MarshalIndent(placements, "", "  ")
		if err != nil {
			return uploadJob{}, fmt.Errorf("marshal placements: %w", err)
		}
		job.PlacementsName = session.ID + "_placements.json"
		job.PlacementsJSON = data
	}

	for _, a := range artifacts {
		job.Photos = append(job.Photos, models.UploadedPhoto{
			PhotoID:    a.PhotoID,
			Filename:   a.Filename,
			StoredPath: a.StoredPath,
		})
	}
	return job, nil
}

// run executes the strict JSON, placements, photos sequence, fail-fast.
func (s *SyncService) run(ctx context.Context, job uploadJob) (map[string]string, error) {
	if job.SurveyID != "" {
		ctx = WithIdempotencyKey(ctx, job.SurveyID)
	}

	s.report(SyncProgress{Phase: PhaseUploadingJSON, Message: "Uploading survey data"})
	if err := s.remote.StoreSurveyJSON(ctx, job.Destination, job.SurveyName, job.SurveyJSON); err != nil {
		return nil, fmt.Errorf("upload survey JSON: %w", err)
	}

	if len(job.PlacementsJSON) > 0 {
		s.report(SyncProgress{Phase: PhaseUploadingPlacements, Message: "Uploading updated placements"})
		if err := s.remote.StorePlacementsJSON(ctx, job.Destination, job.PlacementsName, job.PlacementsJSON); err != nil {
			return nil, fmt.Errorf("upload placements: %w", err)
		}
	}

	refs := make(map[string]string, len(job.Photos))
	total := len(job.Photos)
	for i, photo := range job.Photos {
		// Sequential on purpose: bounds memory on constrained mobile links
		// and keeps log ordering deterministic.
		s.report(SyncProgress{
			Phase:       PhaseUploadingPhotos,
			Message:     fmt.Sprintf("Uploading photo %d of %d", i+1, total),
			PhotosTotal: total,
			PhotosDone:  i,
		})

		f, size, err := s.storage.Open(photo.StoredPath)
		if err != nil {
			return nil, fmt.Errorf("open photo %s: %w", photo.Filename, err)
		}
		ref, err := s.remote.StorePhoto(ctx, job.Destination, photo.Filename, f, size)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("upload photo %s: %w", photo.Filename, err)
		}
		refs[photo.PhotoID] = ref
	}
	return refs, nil
}

func (s *SyncService) enqueue(ctx context.Context, job uploadJob) (string, error) {
	entry := &models.PendingUpload{
		ID:             models.NewPendingUploadID(s.now()),
		Destination:    job.Destination,
		SurveyJSON:     job.SurveyJSON,
		PlacementsJSON: job.PlacementsJSON,
		Photos:         job.Photos,
		QueuedAt:       s.now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, entry); err != nil {
		return "", fmt.Errorf("enqueue pending upload: %w", err)
	}
	s.logger.WithField("upload_id", entry.ID).Info("Submission queued for later delivery")
	return entry.ID, nil
}

func (s *SyncService) report(p SyncProgress) {
	s.mu.Lock()
	s.last = p
	fn := s.onProgress
	s.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

// surveyNameFromJSON recovers the survey id from a queued export document.
func surveyNameFromJSON(data []byte) string {
	var doc struct {
		SurveyID string `json:"surveyId"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return ""
	}
	return doc.SurveyID
}
