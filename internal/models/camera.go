package models

// Coordinate is a WGS84 latitude/longitude pair
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CameraRecord is one element of the imported camera dataset. Only ID and
// the coordinate are required; everything else is optional in the source
// planning tool's export.
type CameraRecord struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	Room        string  `json:"room,omitempty"`
	FloorID     string  `json:"floorId,omitempty"`
	FloorName   string  `json:"floorName,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	MountType   string  `json:"mountType,omitempty"`
	Height      float64 `json:"height,omitempty"`
	Rotation    float64 `json:"rotation,omitempty"`
	FieldOfView float64 `json:"fieldOfView,omitempty"`
	Range       float64 `json:"range,omitempty"`
	Tilt        float64 `json:"tilt,omitempty"`
}

// Coordinate returns the planned position of the record.
func (r CameraRecord) Coordinate() Coordinate {
	return Coordinate{Latitude: r.Latitude, Longitude: r.Longitude}
}

// CameraDataset is the wire format of the imported camera plan.
// It is never mutated after import; reposition diffs depend on it.
type CameraDataset struct {
	Cameras []CameraRecord `json:"cameras"`
}

// Clone returns a deep copy of the dataset.
func (d CameraDataset) Clone() CameraDataset {
	out := CameraDataset{Cameras: make([]CameraRecord, len(d.Cameras))}
	copy(out.Cameras, d.Cameras)
	return out
}

// Camera is the survey-mutable shape of a planned camera. The planned
// coordinate stays in Original; technician edits land in NewLatitude,
// NewLongitude, Repositioned and RepositionReason.
type Camera struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	MountType        string     `json:"mountType"`
	Original         Coordinate `json:"original"`
	Height           float64    `json:"height"`
	Rotation         float64    `json:"rotation"`
	FieldOfView      float64    `json:"fieldOfView"`
	Range            float64    `json:"range"`
	Tilt             float64    `json:"tilt"`
	FloorID          string     `json:"floorId"`
	RoomName         string     `json:"roomName"`
	NewLatitude      *float64   `json:"newLatitude"`
	NewLongitude     *float64   `json:"newLongitude"`
	Repositioned     bool       `json:"repositioned"`
	RepositionReason *string    `json:"repositionReason"`
}

// NewPosition returns the candidate coordinate, or nil when not set.
func (c *Camera) NewPosition() *Coordinate {
	if c.NewLatitude == nil || c.NewLongitude == nil {
		return nil
	}
	return &Coordinate{Latitude: *c.NewLatitude, Longitude: *c.NewLongitude}
}

// Clone returns a deep copy of the camera.
func (c *Camera) Clone() *Camera {
	out := *c
	if c.NewLatitude != nil {
		v := *c.NewLatitude
		out.NewLatitude = &v
	}
	if c.NewLongitude != nil {
		v := *c.NewLongitude
		out.NewLongitude = &v
	}
	if c.RepositionReason != nil {
		v := *c.RepositionReason
		out.RepositionReason = &v
	}
	return &out
}
