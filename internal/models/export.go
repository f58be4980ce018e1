package models

import "time"

// ExportDocument is the canonical serialized snapshot of a session, produced
// for both manual download and remote submission. Exporting the same session
// twice with a frozen clock yields byte-identical JSON.
type ExportDocument struct {
	SurveyID      string        `json:"surveyId"`
	SiteName      string        `json:"siteName"`
	MapRef        string        `json:"mapRef"`
	ExportedAt    time.Time     `json:"exportedAt"`
	Summary       ExportSummary `json:"summary"`
	Rooms         []ExportRoom  `json:"rooms"`
	CameraChanges ChangeLog     `json:"cameraChanges"`
}

// ExportSummary carries the aggregate counts of the session.
type ExportSummary struct {
	TotalRooms          int `json:"totalRooms"`
	CompletedRooms      int `json:"completedRooms"`
	TotalCameras        int `json:"totalCameras"`
	RepositionedCameras int `json:"repositionedCameras"`
}

// ExportRoom is one room entry in the export document.
type ExportRoom struct {
	FloorID   string         `json:"floorId"`
	FloorName string         `json:"floorName"`
	Room      string         `json:"room"`
	Cameras   []ExportCamera `json:"cameras"`
	Survey    ExportSurvey   `json:"survey"`
}

// ExportCamera is one camera entry in the export document.
type ExportCamera struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	MountType    string      `json:"mountType"`
	Original     Coordinate  `json:"original"`
	NewPosition  *Coordinate `json:"newPosition"`
	Repositioned bool        `json:"repositioned"`
	Reason       string      `json:"reason,omitempty"`
	Height       float64     `json:"height"`
	Rotation     float64     `json:"rotation"`
	FieldOfView  float64     `json:"fieldOfView"`
	Range        float64     `json:"range"`
	Tilt         float64     `json:"tilt"`
}

// ExportSurvey is the survey record projection in the export document.
// Photos carry metadata only; binaries are uploaded as separate artifacts.
type ExportSurvey struct {
	CeilingHeight   string              `json:"ceilingHeight"`
	CeilingUnit     CeilingUnit         `json:"ceilingUnit"`
	PowerOutlet     PowerOutletLocation `json:"powerOutlet"`
	MountingSurface MountingSurface     `json:"mountingSurface"`
	Network         NetworkConnectivity `json:"network"`
	Obstructions    string              `json:"obstructions"`
	Notes           string              `json:"notes"`
	Photos          []ExportPhoto       `json:"photos"`
	Completed       bool                `json:"completed"`
	CompletedAt     *time.Time          `json:"completedAt"`
}

// ExportPhoto is photo metadata in the export document: a label, a capture
// timestamp, and either a generated filename or the remote reference.
type ExportPhoto struct {
	Label      PhotoLabel `json:"label"`
	CapturedAt time.Time  `json:"capturedAt"`
	Filename   string     `json:"filename,omitempty"`
	RemoteRef  string     `json:"remoteRef,omitempty"`
}

// ChangeLog is the reposition audit section of the export document.
type ChangeLog struct {
	TotalCameras int            `json:"totalCameras"`
	Repositioned int            `json:"repositioned"`
	Unchanged    int            `json:"unchanged"`
	Changes      []CameraChange `json:"changes"`
}

// CameraChange records one camera's as-installed displacement. Original and
// DistanceMeters are nil when the source dataset no longer carries the
// camera; the log degrades instead of failing.
type CameraChange struct {
	CameraID       string      `json:"cameraId"`
	Name           string      `json:"name"`
	Room           string      `json:"room"`
	Reason         string      `json:"reason,omitempty"`
	Original       *Coordinate `json:"original"`
	NewPosition    Coordinate  `json:"newPosition"`
	DistanceMeters *float64    `json:"distanceMeters"`
}
