package models

import (
	"strings"
	"time"
)

// RoomKey identifies a room within a session. Rooms are keyed by floor id
// plus room name; duplicate room names under the same floor collapse into
// one room, exactly as the source planning export behaves. That constraint
// is documented, not patched over.
type RoomKey struct {
	FloorID string `json:"floorId"`
	Name    string `json:"name"`
}

// String renders the key in its routing form.
func (k RoomKey) String() string {
	return k.FloorID + "/" + k.Name
}

// CeilingUnit is the unit of the recorded ceiling height.
type CeilingUnit string

const (
	UnitMeters CeilingUnit = "meters"
	UnitFeet   CeilingUnit = "feet"
)

// PowerOutletLocation describes the nearest usable power outlet.
type PowerOutletLocation string

const (
	PowerSameWall     PowerOutletLocation = "same-wall"
	PowerOppositeWall PowerOutletLocation = "opposite-wall"
	PowerCeiling      PowerOutletLocation = "ceiling"
	PowerNoneVisible  PowerOutletLocation = "none-visible"
	PowerUnknown      PowerOutletLocation = "unknown"
)

// MountingSurface describes the surface the camera mounts to.
type MountingSurface string

const (
	SurfaceDrywall  MountingSurface = "drywall"
	SurfaceConcrete MountingSurface = "concrete"
	SurfaceTile     MountingSurface = "tile"
	SurfaceMetal    MountingSurface = "metal"
	SurfaceWood     MountingSurface = "wood"
	SurfaceOther    MountingSurface = "other"
)

// NetworkConnectivity describes available network drops in the room.
type NetworkConnectivity string

const (
	NetworkWired    NetworkConnectivity = "wired-available"
	NetworkWifiOnly NetworkConnectivity = "wifi-only"
	NetworkNone     NetworkConnectivity = "none"
	NetworkUnknown  NetworkConnectivity = "unknown"
)

// PhotoLabel categorizes an attached photo.
type PhotoLabel string

const (
	LabelOverview      PhotoLabel = "overview"
	LabelMountLocation PhotoLabel = "mount-location"
	LabelObstruction   PhotoLabel = "obstruction"
	LabelCablePath     PhotoLabel = "cable-path"
	LabelOther         PhotoLabel = "other"
)

// Photo is one attachment on a room's survey record. The binary lives on
// disk under StoredPath while editing; after a successful submission only
// RemoteRef is carried forward into exports.
type Photo struct {
	ID         string     `json:"id"`
	Label      PhotoLabel `json:"label"`
	CapturedAt time.Time  `json:"capturedAt"`
	StoredPath string     `json:"storedPath,omitempty"`
	FileHash   string     `json:"fileHash,omitempty"`
	FileSize   int64      `json:"fileSize,omitempty"`
	Extension  string     `json:"extension,omitempty"`
	RemoteRef  string     `json:"remoteRef,omitempty"`
}

// Clone returns a copy of the photo.
func (p *Photo) Clone() *Photo {
	out := *p
	return &out
}

// SurveyRecord holds the technician's answers for one room.
type SurveyRecord struct {
	CeilingHeight   string              `json:"ceilingHeight"`
	CeilingUnit     CeilingUnit         `json:"ceilingUnit"`
	PowerOutlet     PowerOutletLocation `json:"powerOutlet"`
	MountingSurface MountingSurface     `json:"mountingSurface"`
	Network         NetworkConnectivity `json:"network"`
	Obstructions    string              `json:"obstructions"`
	Notes           string              `json:"notes"`
	Photos          []*Photo            `json:"photos"`
	Completed       bool                `json:"completed"`
	CompletedAt     *time.Time          `json:"completedAt"`
}

// NewSurveyRecord returns an empty record with defaults.
func NewSurveyRecord() SurveyRecord {
	return SurveyRecord{
		CeilingUnit:     UnitMeters,
		PowerOutlet:     PowerUnknown,
		MountingSurface: SurfaceOther,
		Network:         NetworkUnknown,
		Photos:          []*Photo{},
	}
}

// MissingFields lists unanswered form fields. Completion is a technician
// toggle and is never gated on this; callers decide what to do with gaps.
func (r SurveyRecord) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(r.CeilingHeight) == "" {
		missing = append(missing, "ceilingHeight")
	}
	if r.PowerOutlet == PowerUnknown {
		missing = append(missing, "powerOutlet")
	}
	if r.MountingSurface == SurfaceOther {
		missing = append(missing, "mountingSurface")
	}
	if r.Network == NetworkUnknown {
		missing = append(missing, "network")
	}
	return missing
}

// Clone returns a deep copy of the record.
func (r SurveyRecord) Clone() SurveyRecord {
	out := r
	out.Photos = make([]*Photo, len(r.Photos))
	for i, p := range r.Photos {
		out.Photos[i] = p.Clone()
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// Room is one room survey item: the unit of work for the technician.
// Its camera list never changes size after creation.
type Room struct {
	Key       RoomKey      `json:"key"`
	Index     int          `json:"index"`
	FloorName string       `json:"floorName"`
	Center    Coordinate   `json:"center"`
	Cameras   []*Camera    `json:"cameras"`
	Survey    SurveyRecord `json:"survey"`
}

// ID returns the routing form of the room key.
func (r *Room) ID() string {
	return r.Key.String()
}

// Clone returns a deep copy of the room.
func (r *Room) Clone() *Room {
	out := *r
	out.Cameras = make([]*Camera, len(r.Cameras))
	for i, c := range r.Cameras {
		out.Cameras[i] = c.Clone()
	}
	out.Survey = r.Survey.Clone()
	return &out
}
