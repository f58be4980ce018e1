package repository

import (
	"context"

	"github.com/sitesurvey/server/internal/models"
)

// SessionStore persists in-progress session state so a reload picks up
// where the technician left off. Load returns (nil, nil) when nothing was
// saved under the id; absence is not an error.
type SessionStore interface {
	Save(ctx context.Context, saved *models.SavedSession) error
	Load(ctx context.Context, sessionID string) (*models.SavedSession, error)
	Latest(ctx context.Context) (*models.SavedSession, error)
	Delete(ctx context.Context, sessionID string) error
}

// UploadQueue is the durable pending-upload queue bridging offline periods
// across app relaunches. Entries leave the queue one at a time by id, only
// after a confirmed successful replay.
type UploadQueue interface {
	Enqueue(ctx context.Context, entry *models.PendingUpload) error
	List(ctx context.Context) ([]*models.PendingUpload, error)
	Remove(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
