// Package image loads the reference image that slots are drawn over.
package image

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff"

	"slot-editor/pkg/geometry"
)

// Reference is a decoded reference image. Its pixel dimensions define the
// logical coordinate space of every stored slot.
type Reference struct {
	Path    string
	Image   image.Image
	ModTime time.Time
}

// Load decodes the image at path, applying EXIF orientation so the logical
// space matches what a viewer shows.
func Load(path string) (*Reference, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return &Reference{Path: path, Image: img, ModTime: info.ModTime()}, nil
}

// Decode reads a reference image from r. name is kept as the Path.
func Decode(r io.Reader, name string) (*Reference, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return &Reference{Path: name, Image: img}, nil
}

// Width returns the image width in pixels.
func (r *Reference) Width() int {
	if r == nil || r.Image == nil {
		return 0
	}
	return r.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (r *Reference) Height() int {
	if r == nil || r.Image == nil {
		return 0
	}
	return r.Image.Bounds().Dy()
}

// Size returns the natural pixel dimensions.
func (r *Reference) Size() geometry.Size {
	return geometry.Size{Width: float64(r.Width()), Height: float64(r.Height())}
}

// Changed reports whether the file on disk is newer than the loaded copy.
func (r *Reference) Changed() bool {
	if r == nil || r.Path == "" {
		return false
	}
	info, err := os.Stat(r.Path)
	if err != nil {
		return false
	}
	return info.ModTime().After(r.ModTime)
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".tif"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
