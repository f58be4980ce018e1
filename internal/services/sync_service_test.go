package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitesurvey/server/internal/models"
)

// fakeRemote records uploads in order and can simulate failures.
type fakeRemote struct {
	mu       sync.Mutex
	online   bool
	uploads  []string
	failName string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{online: true}
}

func (f *fakeRemote) record(kind, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failName != "" && name == f.failName {
		return fmt.Errorf("simulated failure for %s", name)
	}
	f.uploads = append(f.uploads, kind+":"+name)
	return nil
}

func (f *fakeRemote) StoreSurveyJSON(ctx context.Context, destination, name string, body []byte) error {
	return f.record("json", name)
}

func (f *fakeRemote) StorePlacementsJSON(ctx context.Context, destination, name string, body []byte) error {
	return f.record("placements", name)
}

func (f *fakeRemote) StorePhoto(ctx context.Context, destination, name string, r io.Reader, size int64) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	if err := f.record("photo", name); err != nil {
		return "", err
	}
	return "https://remote/files/" + name, nil
}

func (f *fakeRemote) Online(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeRemote) uploadLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.uploads))
	copy(out, f.uploads)
	return out
}

// memoryUploadQueue is an in-memory UploadQueue for tests.
type memoryUploadQueue struct {
	mu      sync.Mutex
	entries []*models.PendingUpload
}

func (q *memoryUploadQueue) Enqueue(ctx context.Context, entry *models.PendingUpload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entry)
	return nil
}

func (q *memoryUploadQueue) List(ctx context.Context) ([]*models.PendingUpload, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*models.PendingUpload, len(q.entries))
	copy(out, q.entries)
	return out, nil
}

func (q *memoryUploadQueue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return nil
		}
	}
	return models.ErrUploadNotFound
}

func (q *memoryUploadQueue) Count(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries), nil
}

type syncFixture struct {
	sessions *SessionService
	sync     *SyncService
	remote   *fakeRemote
	queue    *memoryUploadQueue
	storage  *PhotoStorageService
	session  *models.Session
}

// newSyncFixture builds a session with one completed room, one attached
// photo on disk, and one repositioned camera.
func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	sessions := NewSessionService(newMemorySessionStore(), time.Millisecond)
	session, err := sessions.Create(context.Background(), models.CreateSessionRequest{
		SiteName:    "Acme HQ",
		Destination: "projects/acme",
		Dataset:     builderDataset(),
	})
	require.NoError(t, err)

	storage, err := NewPhotoStorageService(t.TempDir(), nil, 50)
	require.NoError(t, err)
	content := []byte("jpeg bytes")
	storedPath, err := storage.Store(bytes.NewReader(content), session.ID, "lobby", "shot.jpg", int64(len(content)))
	require.NoError(t, err)

	roomID := session.Rooms[0].ID()
	_, err = sessions.AttachPhoto(roomID, &models.Photo{
		ID:         "p1",
		Label:      models.LabelOverview,
		CapturedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		StoredPath: storedPath,
		FileHash:   "hash1",
		Extension:  "jpg",
	})
	require.NoError(t, err)

	moved := true
	_, err = sessions.UpdateCamera(models.UpdateCameraRequest{
		RoomID:       roomID,
		CameraID:     "c1",
		NewLatitude:  f64(50.86),
		NewLongitude: f64(4.36),
		Repositioned: &moved,
	})
	require.NoError(t, err)

	remote := newFakeRemote()
	queue := &memoryUploadQueue{}
	exporter := &ExportService{Now: func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}}
	svc := NewSyncService(sessions, exporter, storage, queue, remote)

	return &syncFixture{
		sessions: sessions,
		sync:     svc,
		remote:   remote,
		queue:    queue,
		storage:  storage,
		session:  session,
	}
}

func TestSyncService_Submit(t *testing.T) {
	t.Run("uploads JSON then placements then photos", func(t *testing.T) {
		fx := newSyncFixture(t)

		resp, err := fx.sync.Submit(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "succeeded", resp.Status)

		log := fx.remote.uploadLog()
		require.Len(t, log, 3)
		assert.Equal(t, "json:"+fx.session.ID+".json", log[0])
		assert.Equal(t, "placements:"+fx.session.ID+"_placements.json", log[1])
		assert.Equal(t, "photo:20260301_lobby_overview_1.jpg", log[2])
	})

	t.Run("skips placements when nothing moved", func(t *testing.T) {
		fx := newSyncFixture(t)
		moved := false
		_, err := fx.sessions.UpdateCamera(models.UpdateCameraRequest{
			RoomID:       fx.session.Rooms[0].ID(),
			CameraID:     "c1",
			Repositioned: &moved,
		})
		require.NoError(t, err)

		_, err = fx.sync.Submit(context.Background())
		require.NoError(t, err)

		for _, entry := range fx.remote.uploadLog() {
			assert.NotContains(t, entry, "placements")
		}
	})

	t.Run("marks photos uploaded on success", func(t *testing.T) {
		fx := newSyncFixture(t)

		_, err := fx.sync.Submit(context.Background())
		require.NoError(t, err)

		session, err := fx.sessions.Session()
		require.NoError(t, err)
		photo := session.Rooms[0].Survey.Photos[0]
		assert.Equal(t, "https://remote/files/20260301_lobby_overview_1.jpg", photo.RemoteRef)
	})

	t.Run("reports per-photo progress", func(t *testing.T) {
		fx := newSyncFixture(t)

		var mu sync.Mutex
		var messages []string
		fx.sync.SetProgressListener(func(p SyncProgress) {
			mu.Lock()
			messages = append(messages, p.Message)
			mu.Unlock()
		})

		_, err := fx.sync.Submit(context.Background())
		require.NoError(t, err)

		mu.Lock()
		defer mu.Unlock()
		assert.Contains(t, messages, "Uploading photo 1 of 1")
		assert.Contains(t, messages, "Submission complete")
	})

	t.Run("photo failure fails the whole attempt", func(t *testing.T) {
		fx := newSyncFixture(t)
		fx.remote.failName = "20260301_lobby_overview_1.jpg"

		resp, err := fx.sync.Submit(context.Background())
		require.Error(t, err)
		assert.Equal(t, "failed", resp.Status)
		assert.Equal(t, PhaseFailed, fx.sync.Status().Phase)

		// The photo stays local for the retry.
		session, _ := fx.sessions.Session()
		assert.Empty(t, session.Rooms[0].Survey.Photos[0].RemoteRef)
	})

	t.Run("offline submission lands in the queue", func(t *testing.T) {
		fx := newSyncFixture(t)
		fx.remote.online = false

		resp, err := fx.sync.Submit(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "queued", resp.Status)
		assert.NotEmpty(t, resp.UploadID)

		count, err := fx.queue.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Empty(t, fx.remote.uploadLog())
	})

	t.Run("missing destination is rejected", func(t *testing.T) {
		fx := newSyncFixture(t)
		_, err := fx.sessions.Create(context.Background(), models.CreateSessionRequest{
			SiteName: "No Dest",
			Dataset:  builderDataset(),
		})
		require.NoError(t, err)

		_, err = fx.sync.Submit(context.Background())
		assert.ErrorIs(t, err, models.ErrNoDestination)
	})
}

func TestSyncService_Replay(t *testing.T) {
	queueOne := func(t *testing.T, fx *syncFixture) {
		t.Helper()
		fx.remote.mu.Lock()
		fx.remote.online = false
		fx.remote.mu.Unlock()

		_, err := fx.sync.Submit(context.Background())
		require.NoError(t, err)

		fx.remote.mu.Lock()
		fx.remote.online = true
		fx.remote.mu.Unlock()
	}

	t.Run("delivers queued entries and removes them", func(t *testing.T) {
		fx := newSyncFixture(t)
		queueOne(t, fx)

		resp, err := fx.sync.Replay(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Attempted)
		assert.Equal(t, 1, resp.Delivered)
		assert.Equal(t, 0, resp.Remaining)

		count, _ := fx.queue.Count(context.Background())
		assert.Equal(t, 0, count)

		// The replayed upload keeps the original export filenames.
		log := fx.remote.uploadLog()
		require.NotEmpty(t, log)
		assert.Equal(t, "json:"+fx.session.ID+".json", log[0])
	})

	t.Run("failed entries stay queued", func(t *testing.T) {
		fx := newSyncFixture(t)
		queueOne(t, fx)
		fx.remote.failName = fx.session.ID + ".json"

		resp, err := fx.sync.Replay(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Attempted)
		assert.Equal(t, 0, resp.Delivered)
		assert.Equal(t, 1, resp.Remaining)

		count, _ := fx.queue.Count(context.Background())
		assert.Equal(t, 1, count)
	})

	t.Run("empty queue replays to zero", func(t *testing.T) {
		fx := newSyncFixture(t)

		resp, err := fx.sync.Replay(context.Background())
		require.NoError(t, err)
		assert.Zero(t, resp.Attempted)
		assert.Zero(t, resp.Delivered)
	})
}
