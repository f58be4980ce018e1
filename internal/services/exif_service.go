package services

import (
	"bytes"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// PhotoMeta is the slice of EXIF metadata the survey cares about: when the
// photo was taken and how it should be rotated for the preview.
type PhotoMeta struct {
	CapturedAt  *time.Time
	Orientation int
}

// EXIFService extracts capture metadata from attached photos.
type EXIFService struct{}

// NewEXIFService creates a new EXIFService
func NewEXIFService() *EXIFService {
	return &EXIFService{}
}

// Extract reads the capture timestamp and orientation from image bytes.
// Photos without EXIF (screenshots, some HEIC exports) come back with nil
// timestamp and default orientation; the caller falls back to upload time.
func (s *EXIFService) Extract(data []byte) PhotoMeta {
	meta := PhotoMeta{Orientation: 1}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return meta
	}

	if tm, err := x.DateTime(); err == nil {
		meta.CapturedAt = &tm
	}
	if tag, err := x.Get(exif.Orientation); err == nil {
		if val, err := tag.Int(0); err == nil && val >= 1 && val <= 8 {
			meta.Orientation = val
		}
	}
	return meta
}
