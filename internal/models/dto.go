package models

import "time"

// UpdateResult distinguishes a landed update from a tolerated miss.
// Unknown ids are a no-op rather than an error because UI route changes can
// race with stale ids; the enum keeps that case observable in tests.
type UpdateResult string

const (
	UpdateApplied       UpdateResult = "applied"
	UpdateNoopUnknownID UpdateResult = "no-op-unknown-id"
)

// CreateSessionRequest starts a session from an imported dataset.
type CreateSessionRequest struct {
	SiteName    string        `json:"siteName"`
	MapRef      string        `json:"mapRef"`
	ProjectCode string        `json:"projectCode,omitempty"`
	Destination string        `json:"destination,omitempty"`
	Dataset     CameraDataset `json:"dataset"`
}

// UpdateRoomRequest is a partial update of a room's survey record.
// Nil fields are left untouched.
type UpdateRoomRequest struct {
	RoomID          string               `json:"roomId"`
	CeilingHeight   *string              `json:"ceilingHeight,omitempty"`
	CeilingUnit     *CeilingUnit         `json:"ceilingUnit,omitempty"`
	PowerOutlet     *PowerOutletLocation `json:"powerOutlet,omitempty"`
	MountingSurface *MountingSurface     `json:"mountingSurface,omitempty"`
	Network         *NetworkConnectivity `json:"network,omitempty"`
	Obstructions    *string              `json:"obstructions,omitempty"`
	Notes           *string              `json:"notes,omitempty"`
	Completed       *bool                `json:"completed,omitempty"`
}

// UpdateCameraRequest is a partial update of one camera's reposition state.
type UpdateCameraRequest struct {
	RoomID           string   `json:"roomId"`
	CameraID         string   `json:"cameraId"`
	NewLatitude      *float64 `json:"newLatitude,omitempty"`
	NewLongitude     *float64 `json:"newLongitude,omitempty"`
	Repositioned     *bool    `json:"repositioned,omitempty"`
	RepositionReason *string  `json:"repositionReason,omitempty"`
}

// UpdateResponse reports the outcome of a room or camera update.
type UpdateResponse struct {
	Result UpdateResult `json:"result"`
}

// FloorProgress is completion scoped to one floor, used for tab labels.
type FloorProgress struct {
	FloorID   string `json:"floorId"`
	FloorName string `json:"floorName"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// ProgressResponse is the derived completion view of the session.
type ProgressResponse struct {
	TotalRooms      int             `json:"totalRooms"`
	CompletedRooms  int             `json:"completedRooms"`
	ProgressPercent int             `json:"progressPercent"`
	Floors          []FloorProgress `json:"floors"`
}

// NextRoomResponse is the ring-scan result. RoomID is empty when every room
// is complete and the technician can proceed to review.
type NextRoomResponse struct {
	RoomID string `json:"roomId"`
	Done   bool   `json:"done"`
}

// AttachPhotoResult is returned after attaching a photo to a room.
type AttachPhotoResult struct {
	PhotoID    string    `json:"photoId"`
	StoredPath string    `json:"storedPath"`
	CapturedAt time.Time `json:"capturedAt"`
}

// SaveStatus is the user-visible autosave indicator.
type SaveStatus string

const (
	SaveStatusSaved   SaveStatus = "saved"
	SaveStatusSaving  SaveStatus = "saving"
	SaveStatusOffline SaveStatus = "offline"
)

// SaveStatusResponse reports the autosave indicator and last save stamp.
type SaveStatusResponse struct {
	Status  SaveStatus `json:"status"`
	SavedAt *time.Time `json:"savedAt,omitempty"`
}

// SubmitResponse reports the outcome of a submission attempt.
type SubmitResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	UploadID string `json:"uploadId,omitempty"`
}

// ReplayResponse reports the outcome of draining the pending upload queue.
type ReplayResponse struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Remaining int `json:"remaining"`
}

// HealthResponse is returned by health check
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}
