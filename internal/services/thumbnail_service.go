package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
)

const (
	previewMaxDim  = 400
	previewQuality = 82
)

// ThumbnailService renders one small preview per attached photo so the room
// form can show attachments without loading full-size binaries.
type ThumbnailService struct {
	basePath string
}

// NewThumbnailService creates a ThumbnailService rooted at the photo
// storage path.
func NewThumbnailService(basePath string) *ThumbnailService {
	return &ThumbnailService{basePath: basePath}
}

// GeneratePreview decodes the photo (HEIC included, phones attach those),
// corrects EXIF orientation, and writes a JPEG preview next to the stored
// binary. Returns the preview's relative path.
func (s *ThumbnailService) GeneratePreview(imageData []byte, photoID, storedPath string, orientation int) (string, error) {
	var img image.Image
	var err error

	if isHEIC(storedPath) {
		img, err = goheif.Decode(bytes.NewReader(imageData))
		if err != nil {
			return "", fmt.Errorf("decode HEIC image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return "", fmt.Errorf("decode image: %w", err)
		}
	}

	img = applyOrientation(img, orientation)
	img = imaging.Fit(img, previewMaxDim, previewMaxDim, imaging.Lanczos)

	thumbDir := filepath.Join(filepath.Dir(storedPath), ".previews")
	if err := os.MkdirAll(filepath.Join(s.basePath, thumbDir), 0755); err != nil {
		return "", fmt.Errorf("create preview directory: %w", err)
	}

	relPath := filepath.Join(thumbDir, photoID+".jpg")
	out, err := os.Create(filepath.Join(s.basePath, relPath))
	if err != nil {
		return "", fmt.Errorf("create preview file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: previewQuality}); err != nil {
		os.Remove(filepath.Join(s.basePath, relPath))
		return "", fmt.Errorf("encode preview: %w", err)
	}
	return strings.ReplaceAll(relPath, string(os.PathSeparator), "/"), nil
}

// DeletePreview removes a photo's preview if one exists.
func (s *ThumbnailService) DeletePreview(storedPath, photoID string) {
	rel := filepath.Join(filepath.Dir(storedPath), ".previews", photoID+".jpg")
	os.Remove(filepath.Join(s.basePath, rel))
}

// applyOrientation corrects image orientation based on EXIF data
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Rotate270(imaging.FlipH(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Rotate90(imaging.FlipH(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func isHEIC(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".heic" || ext == ".heif"
}
