package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sitesurvey/server/internal/models"
)

// PhotoStorageService holds attached photo binaries on local disk, laid out
// by session and room, until a submission ships them to the remote store.
type PhotoStorageService struct {
	basePath          string
	allowedExtensions map[string]bool
	maxFileSizeBytes  int64
}

// NewPhotoStorageService creates a PhotoStorageService rooted at basePath.
func NewPhotoStorageService(basePath string, allowedExtensions []string, maxFileSizeMB int64) (*PhotoStorageService, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, err
	}

	extSet := make(map[string]bool)
	if len(allowedExtensions) == 0 {
		for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp", ".heic", ".heif"} {
			extSet[ext] = true
		}
	} else {
		for _, ext := range allowedExtensions {
			extSet[strings.ToLower(ext)] = true
		}
	}

	return &PhotoStorageService{
		basePath:          absPath,
		allowedExtensions: extSet,
		maxFileSizeBytes:  maxFileSizeMB * 1024 * 1024,
	}, nil
}

// Store saves a photo binary under {sessionID}/{roomSlug}/ and returns the
// relative storage path.
func (s *PhotoStorageService) Store(r io.Reader, sessionID, roomSlug, originalFilename string, fileSize int64) (string, error) {
	if fileSize > s.maxFileSizeBytes {
		return "", models.ErrFileTooLarge
	}

	name := sanitizeFilename(originalFilename)
	if name == "" {
		return "", models.ErrEmptyFilename
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !s.allowedExtensions[ext] {
		return "", models.ErrInvalidExtension
	}

	relFolder := filepath.Join(sanitizeFilename(sessionID), sanitizeFilename(roomSlug))
	absFolder := filepath.Join(s.basePath, relFolder)
	if err := os.MkdirAll(absFolder, 0755); err != nil {
		return "", err
	}

	unique := uniqueFilename(name, absFolder)
	relPath := filepath.Join(relFolder, unique)
	absPath := filepath.Join(s.basePath, relPath)
	if !strings.HasPrefix(absPath, s.basePath) {
		return "", models.ErrPathTraversal
	}

	f, err := os.OpenFile(absPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(absPath)
		return "", err
	}
	return strings.ReplaceAll(relPath, string(os.PathSeparator), "/"), nil
}

// Open returns a reader over a stored photo plus its size.
func (s *PhotoStorageService) Open(storedPath string) (io.ReadCloser, int64, error) {
	fullPath, err := s.fullPath(storedPath)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// ReadAll returns the full contents of a stored photo.
func (s *PhotoStorageService) ReadAll(storedPath string) ([]byte, error) {
	fullPath, err := s.fullPath(storedPath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(fullPath)
}

// Delete removes a stored photo; reports whether anything was removed.
func (s *PhotoStorageService) Delete(storedPath string) bool {
	fullPath, err := s.fullPath(storedPath)
	if err != nil {
		return false
	}
	return os.Remove(fullPath) == nil
}

// Exists checks whether a stored photo is still on disk.
func (s *PhotoStorageService) Exists(storedPath string) bool {
	fullPath, err := s.fullPath(storedPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}

func (s *PhotoStorageService) fullPath(storedPath string) (string, error) {
	if strings.TrimSpace(storedPath) == "" {
		return "", models.ErrEmptyFilename
	}
	full := filepath.Join(s.basePath, filepath.FromSlash(storedPath))
	abs, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(abs, s.basePath) {
		return "", models.ErrPathTraversal
	}
	return abs, nil
}

// sanitizeFilename strips path components and characters that would break
// the storage layout.
func sanitizeFilename(filename string) string {
	name := filepath.Base(filename)
	replacer := strings.NewReplacer(
		"..", "",
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	name = replacer.Replace(name)

	const maxLength = 200
	if len(name) > maxLength {
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		if len(base) > maxLength-len(ext) {
			base = base[:maxLength-len(ext)]
		}
		name = base + ext
	}
	return name
}

// uniqueFilename suffixes a counter on collision.
func uniqueFilename(filename, folderPath string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	ext := filepath.Ext(filename)
	candidate := filename

	for counter := 1; ; counter++ {
		if _, err := os.Stat(filepath.Join(folderPath, candidate)); os.IsNotExist(err) {
			return candidate
		}
		if counter > 9999 {
			return fmt.Sprintf("%s_%d%s", base, time.Now().UnixNano(), ext)
		}
		candidate = fmt.Sprintf("%s_%03d%s", base, counter, ext)
	}
}
