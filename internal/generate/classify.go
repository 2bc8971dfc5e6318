package generate

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"scenegen/internal/dataset"
	"scenegen/internal/metadata"
)

var _ CategorySource = (*dataset.COCO)(nil)

// CategorySource lists the categories present in each image.
type CategorySource interface {
	GroupCategories() map[string][]int
	Path(id string) (string, error)
	ImageExists(id string) bool
}

// Classify writes multi-label metadata: one row per image listing every
// category annotated in it. No images are produced.
type Classify struct {
	src  CategorySource
	opts Options
}

// NewClassify creates a classification metadata generator.
func NewClassify(src CategorySource, opts Options) *Classify {
	return &Classify{src: src, opts: opts.withDefaults()}
}

// Generate logs up to Count images (all when Count is 0). Images already in
// the log and images missing on disk are skipped.
func (g *Classify) Generate(ctx context.Context) (Stats, error) {
	dir := filepath.Join(g.opts.OutputDir, "classification")
	l, err := metadata.OpenLog(filepath.Join(dir, metadata.FileName), metadata.CategoryHeader)
	if err != nil {
		return Stats{}, fmt.Errorf("%v: %w", err, ErrSystemic)
	}

	rows, err := metadata.ReadLog(l.Path())
	if err != nil {
		return Stats{}, fmt.Errorf("%v: %w", err, ErrSystemic)
	}
	logged := make(map[string]bool, len(rows))
	for i, row := range rows {
		if i > 0 && len(row) > 0 {
			logged[row[0]] = true
		}
	}

	groups := g.src.GroupCategories()
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	dataset.SortIDs(ids)

	var stats Stats
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if g.opts.Count > 0 && stats.Generated >= g.opts.Count {
			break
		}
		if logged[id] {
			stats.Skipped++
			continue
		}
		path, err := g.src.Path(id)
		if err != nil || !g.src.ImageExists(id) {
			log.Printf("cannot find image %s (%s)", id, path)
			stats.Failed++
			continue
		}
		if err := l.Append(metadata.CategoryRow{ImageID: id, Path: path, Categories: groups[id]}); err != nil {
			return stats, fmt.Errorf("%v: %w", err, ErrSystemic)
		}
		stats.Generated++
	}
	return stats, nil
}
