// Package image provides image loading, resampling, and mask-aware compositing.
package image

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrExists is returned by Save when the output path is already present.
	ErrExists = errors.New("output file already exists")

	// ErrSizeMismatch is returned when a patch does not match its target box.
	ErrSizeMismatch = errors.New("patch size does not match target box")

	// ErrOutOfBounds is returned when a box extends beyond the image.
	ErrOutOfBounds = errors.New("region extends beyond image bounds")
)

// DefaultJPEGQuality is used by Save for .jpg outputs.
const DefaultJPEGQuality = 95

// Load decodes an image from the specified path.
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// Save encodes img into dir/name with the format implied by ext (".png" when
// empty) and returns the written path. It never overwrites: an existing path
// yields ErrExists so that re-runs skip work that is already on disk.
func Save(img image.Image, dir, name, ext string) (string, error) {
	if ext == "" {
		ext = ".png"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create output directory: %w", err)
	}
	path := filepath.Join(dir, name+ext)

	// O_EXCL makes the existence check and the create a single step.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return path, ErrExists
		}
		return "", fmt.Errorf("cannot create %s: %w", path, err)
	}

	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: DefaultJPEGQuality})
	default:
		err = png.Encode(f, img)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("cannot encode %s: %w", path, err)
	}
	return path, nil
}

// Exists reports whether dir/name+ext is already on disk.
func Exists(dir, name, ext string) bool {
	if ext == "" {
		ext = ".png"
	}
	_, err := os.Stat(filepath.Join(dir, name+ext))
	return err == nil
}

var supportedFormats = []string{".png", ".jpg", ".jpeg", ".gif", ".tiff", ".tif", ".webp"}

// IsSupportedFormat reports whether path has an extension Load can decode.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}
