package models

import (
	"fmt"
	"time"
)

// Session is one walk-through of a site: the immutable imported dataset,
// the ordered room survey items, and where the result gets submitted.
type Session struct {
	ID          string        `json:"id"`
	SiteName    string        `json:"siteName"`
	MapRef      string        `json:"mapRef"`
	ProjectCode string        `json:"projectCode,omitempty"`
	Destination string        `json:"destination,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	Dataset     CameraDataset `json:"dataset"`
	Rooms       []*Room       `json:"rooms"`
}

// NewSessionID builds the persistence key for a session. Sessions tied to a
// remote project carry its code in the key.
func NewSessionID(projectCode string, now time.Time) string {
	if projectCode != "" {
		return fmt.Sprintf("survey_%s_%d", projectCode, now.UnixMilli())
	}
	return fmt.Sprintf("survey_%d", now.UnixMilli())
}

// RoomByID returns the room with the given routing id, or nil.
func (s *Session) RoomByID(id string) *Room {
	for _, r := range s.Rooms {
		if r.ID() == id {
			return r
		}
	}
	return nil
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	out := *s
	out.Dataset = s.Dataset.Clone()
	out.Rooms = make([]*Room, len(s.Rooms))
	for i, r := range s.Rooms {
		out.Rooms[i] = r.Clone()
	}
	return &out
}

// SavedSession is a persisted session snapshot with its autosave stamp.
type SavedSession struct {
	SessionID string    `json:"sessionId"`
	State     *Session  `json:"state"`
	SavedAt   time.Time `json:"savedAt"`
}

// PendingUpload is a deferred submission waiting for connectivity. The
// snapshot is complete: replay never needs the live session.
type PendingUpload struct {
	ID             string          `json:"id"`
	Destination    string          `json:"destination"`
	SurveyJSON     []byte          `json:"surveyJson"`
	PlacementsJSON []byte          `json:"placementsJson,omitempty"`
	Photos         []UploadedPhoto `json:"photos"`
	QueuedAt       time.Time       `json:"queuedAt"`
}

// UploadedPhoto names one photo artifact inside a pending upload.
type UploadedPhoto struct {
	PhotoID    string `json:"photoId"`
	Filename   string `json:"filename"`
	StoredPath string `json:"storedPath"`
}

// NewPendingUploadID builds the queue key for a deferred submission.
func NewPendingUploadID(now time.Time) string {
	return fmt.Sprintf("upload_%d", now.UnixMilli())
}
