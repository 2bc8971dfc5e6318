// Package dataset reads annotated scenes from disk.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	sgimage "scenegen/internal/image"
	"scenegen/internal/region"
)

var (
	// ErrAdapterIO is returned when an image or manifest cannot be read.
	ErrAdapterIO = errors.New("dataset read failed")

	// ErrUnknownImage is returned for IDs the adapter does not know.
	ErrUnknownImage = errors.New("unknown image id")
)

// Category is an object class.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Annotation is one labelled object in an image.
type Annotation struct {
	CategoryID int
	Box        region.Box
	Mask       *region.Mask // nil when no per-pixel outline is available
}

// Sample is an image with the annotations of the requested categories.
type Sample struct {
	ID          string
	Path        string
	Image       image.Image
	Annotations []Annotation
}

// Adapter is the read side of a dataset.
type Adapter interface {
	// Image loads id with the annotations of categoryIDs (all when empty).
	Image(ctx context.Context, id string, categoryIDs []int) (*Sample, error)
	// ImageIDs lists images that contain every one of categoryIDs.
	ImageIDs(categoryIDs []int) ([]string, error)
	// Categories lists the dataset's categories.
	Categories() []Category
}

// resolve makes path relative to dir unless it is already absolute.
func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func loadImage(path string) (image.Image, error) {
	if !sgimage.IsSupportedFormat(path) {
		return nil, fmt.Errorf("unsupported image format %q: %w", filepath.Ext(path), ErrAdapterIO)
	}
	img, err := sgimage.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrAdapterIO)
	}
	return img, nil
}

func openManifest(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %v: %w", err, ErrAdapterIO)
	}
	return f, nil
}

// SortIDs orders IDs numerically when they are all integers and
// lexically otherwise.
func SortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
