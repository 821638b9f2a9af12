package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fleveque/photo-autopilot/internal/model"
)

// ImageKind names which copy of a request's image a file holds.
type ImageKind string

const (
	ImageOriginal ImageKind = "original"
	ImageFinal    ImageKind = "final"
)

// FileSystem stores the original and final image of each enhancement run.
// Files live at: {baseDir}/{enhancementID}/{kind}.{ext}
type FileSystem struct {
	baseDir string
}

// NewFileSystem creates the storage root if needed.
func NewFileSystem(baseDir string) (*FileSystem, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}
	return &FileSystem{baseDir: baseDir}, nil
}

// ImagePath returns the filesystem path for one stored image.
func (fs *FileSystem) ImagePath(id string, kind ImageKind, mediaType model.MediaType) string {
	return filepath.Join(fs.baseDir, id, string(kind)+"."+mediaType.Ext())
}

// RunDir returns the directory holding one enhancement's images.
func (fs *FileSystem) RunDir(id string) string {
	return filepath.Join(fs.baseDir, id)
}

// Write saves an image, creating the run directory if needed. Returns the
// path so the caller can persist it on the enhancement record.
func (fs *FileSystem) Write(id string, kind ImageKind, mediaType model.MediaType, data []byte) (string, error) {
	if err := os.MkdirAll(fs.RunDir(id), 0755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}

	path := fs.ImagePath(id, kind, mediaType)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing image file: %w", err)
	}
	return path, nil
}

// Read returns the raw bytes of a stored image.
func (fs *FileSystem) Read(id string, kind ImageKind, mediaType model.MediaType) ([]byte, error) {
	path := fs.ImagePath(id, kind, mediaType)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image file not found: %s/%s", id, kind)
		}
		return nil, fmt.Errorf("reading image file: %w", err)
	}
	return data, nil
}

// Exists checks if a stored image is on disk.
func (fs *FileSystem) Exists(id string, kind ImageKind, mediaType model.MediaType) bool {
	_, err := os.Stat(fs.ImagePath(id, kind, mediaType))
	return err == nil
}

// DeleteRun removes all stored images for one enhancement.
func (fs *FileSystem) DeleteRun(id string) error {
	return os.RemoveAll(fs.RunDir(id))
}
