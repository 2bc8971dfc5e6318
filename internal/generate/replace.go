package generate

import (
	"context"
	"fmt"
	"image"
	"log"
	"math/rand"
	"path/filepath"
	"strconv"

	"scenegen/internal/dataset"
	"scenegen/internal/inpaint"
	"scenegen/internal/metadata"
	"scenegen/internal/region"
	"scenegen/internal/synth"
)

// RegionKind selects which annotation form a replace run swaps.
type RegionKind int

const (
	RegionBoxes RegionKind = iota
	RegionMasks
)

func (k RegionKind) dirName() string {
	if k == RegionMasks {
		return "seg_replace"
	}
	return "bbox_replace"
}

// Replace swaps the annotated object of one category between pairs of
// similarly shaped images.
//
// Each swapped image is a plausible sample. With comparisons on, each image
// also gets an implausible sample: its own object is cleared and its
// partner's object is dropped at a random size and position instead.
type Replace struct {
	kind      RegionKind
	adapter   dataset.Adapter
	opts      Options
	inpainter inpaint.Inpainter
}

// NewReplace creates a replace generator. inpainter is only used for the
// inpaint background mode and may be nil otherwise.
func NewReplace(kind RegionKind, adapter dataset.Adapter, opts Options, inpainter inpaint.Inpainter) *Replace {
	return &Replace{kind: kind, adapter: adapter, opts: opts.withDefaults(), inpainter: inpainter}
}

// Generate produces up to Count images per category.
func (g *Replace) Generate(ctx context.Context) (Stats, error) {
	r, err := newRunner(g.opts, g.kind.dirName(), g.inpainter, true)
	if err != nil {
		return Stats{}, err
	}

	p := newPool(ctx, g.opts.Workers)
	for _, cat := range g.categories() {
		if !g.enqueueCategory(p, r, cat) {
			break
		}
	}
	return r.finish(p)
}

func (g *Replace) categories() []dataset.Category {
	all := g.adapter.Categories()
	if len(g.opts.CategoryIDs) == 0 {
		return all
	}
	var out []dataset.Category
	for _, c := range all {
		for _, id := range g.opts.CategoryIDs {
			if c.ID == id {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// enqueueCategory walks the category's images batch by batch until Count
// images are scheduled or the images run out. It returns false once the
// pool has stopped.
func (g *Replace) enqueueCategory(p *pool, r *runner, cat dataset.Category) bool {
	ids, err := g.adapter.ImageIDs([]int{cat.ID})
	if err != nil {
		log.Printf("skipping category %d: %v", cat.ID, err)
		return true
	}
	log.Printf("category %d (%s): %d images", cat.ID, cat.Name, len(ids))

	dir := filepath.Join(r.dir, categoryDir(cat))
	used := make(map[string]bool)
	scheduled := 0

	for start := 0; scheduled < g.opts.Count && start < len(ids); start += g.opts.BatchSize {
		if p.Stopped() {
			return false
		}
		end := min(start+g.opts.BatchSize, len(ids))
		cands := g.loadCandidates(p.ctx, ids[start:end], cat.ID)

		for _, pair := range pairCandidates(cands, g.opts.RatioGroups, used) {
			if scheduled >= g.opts.Count {
				break
			}
			a, b := pair[0], pair[1]
			used[a.ID], used[b.ID] = true, true
			scheduled += 2

			rng := r.jobRand()
			name := fmt.Sprintf("pair %s/%s (category %d)", a.ID, b.ID, cat.ID)
			if !p.Go(name, func(ctx context.Context) error {
				return g.swapPair(ctx, r, rng, dir, a, b)
			}) {
				return false
			}
		}
	}
	return true
}

// loadCandidates loads each image with its first usable annotation of
// categoryID. Images that fail to load or have no usable annotation are
// logged and left out.
func (g *Replace) loadCandidates(ctx context.Context, ids []string, categoryID int) []candidate {
	var out []candidate
	for _, id := range ids {
		if ctx.Err() != nil {
			return out
		}
		s, err := g.adapter.Image(ctx, id, []int{categoryID})
		if err != nil {
			log.Printf("skipping image %s: %v", id, err)
			continue
		}
		c, ok := g.pick(s)
		if !ok {
			log.Printf("skipping image %s: no usable annotation for category %d", id, categoryID)
			continue
		}
		out = append(out, c)
	}
	return out
}

func (g *Replace) pick(s *dataset.Sample) (candidate, bool) {
	for _, a := range s.Annotations {
		box, err := a.Box.Bounds()
		if err != nil {
			continue
		}
		c := candidate{ID: s.ID, Sample: s, Region: a.Box, Box: box}
		if g.kind == RegionMasks {
			if a.Mask == nil {
				continue
			}
			c.Region = a.Mask
		}
		return c, true
	}
	return candidate{}, false
}

func (g *Replace) swapPair(ctx context.Context, r *runner, rng *rand.Rand, dir string, a, b candidate) error {
	edited1, edited2, err := synth.Swap(a.Sample.Image, a.Region, b.Sample.Image, b.Region, g.opts.Swap)
	if err != nil {
		return fmt.Errorf("failed to swap: %w", err)
	}

	if err := g.emit(ctx, r, rng, dir, a, b, edited1); err != nil {
		return fmt.Errorf("image %s: %w", a.ID, err)
	}
	if err := g.emit(ctx, r, rng, dir, b, a, edited2); err != nil {
		return fmt.Errorf("image %s: %w", b.ID, err)
	}
	return nil
}

// emit saves self's swapped image and, with comparisons on, its randomly
// placed negative and the side-by-side pair.
func (g *Replace) emit(ctx context.Context, r *runner, rng *rand.Rand, dir string, self, partner candidate, edited *image.RGBA) error {
	if _, err := r.logSample(edited, dir, self.ID, self.ID, true); err != nil {
		return err
	}
	if !g.opts.Compare {
		return nil
	}
	compareDir := filepath.Join(r.dir, metadata.CompareDirName, filepath.Base(dir))
	done := []output{{dir, self.ID + "_random"}}
	if r.pairs != nil {
		done = append(done, output{compareDir, self.ID + "_compare"})
	}
	if r.skipExisting(done...) {
		return nil
	}

	cleared, err := r.neutral.Neutralize(ctx, self.Sample.Image, self.Region)
	if err != nil {
		return fmt.Errorf("failed to clear background: %w", err)
	}
	crop, err := region.Extract(partner.Sample.Image, partner.Region)
	if err != nil {
		return fmt.Errorf("failed to extract partner object: %w", err)
	}
	placed, err := synth.NewPlacer(rng, g.opts.Place).Place(cleared, partner.Region, crop.Image, crop.Alpha)
	if err != nil {
		return fmt.Errorf("failed to place partner object: %w", err)
	}

	if _, err := r.logSample(placed.Image, dir, self.ID+"_random", self.ID, false); err != nil {
		return err
	}
	return r.logComparison(rng, edited, placed.Image, compareDir, self.ID+"_compare", self.ID)
}

func categoryDir(c dataset.Category) string {
	if c.Name == "" {
		return strconv.Itoa(c.ID)
	}
	return c.Name
}
