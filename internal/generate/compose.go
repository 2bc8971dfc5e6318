package generate

import (
	"context"
	"fmt"
	"image"
	"log"
	"math/rand"
	"path/filepath"

	"scenegen/internal/dataset"
	sgimage "scenegen/internal/image"
	"scenegen/internal/inpaint"
	"scenegen/internal/metadata"
	"scenegen/internal/region"
	"scenegen/internal/synth"
)

// SceneSource provides backgrounds and the object renders that belong in them.
type SceneSource interface {
	SceneIDs() []string
	Scene(id string) (dataset.Scene, error)
	Background(ctx context.Context, id string) (image.Image, error)
	LoadRender(r dataset.Render) (image.Image, error)
}

var _ SceneSource = (*dataset.RenderSet)(nil)

// Compose puts rendered objects back into their scenes.
//
// For every render the plausible sample is the render resized into its
// annotated box; the implausible one drops it at a random size and
// position. Both start from the background with the box cleared.
type Compose struct {
	scenes    SceneSource
	opts      Options
	inpainter inpaint.Inpainter
}

// NewCompose creates a compose generator.
func NewCompose(scenes SceneSource, opts Options, inpainter inpaint.Inpainter) *Compose {
	return &Compose{scenes: scenes, opts: opts.withDefaults(), inpainter: inpainter}
}

// Generate processes up to Count renders, visiting scenes in a seeded
// random order.
func (g *Compose) Generate(ctx context.Context) (Stats, error) {
	r, err := newRunner(g.opts, "compose", g.inpainter, true)
	if err != nil {
		return Stats{}, err
	}

	ids := g.scenes.SceneIDs()
	r.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	p := newPool(ctx, g.opts.Workers)
	scheduled := 0
scenes:
	for _, id := range ids {
		if scheduled >= g.opts.Count || p.Stopped() {
			break
		}
		scene, err := g.scenes.Scene(id)
		if err != nil {
			log.Printf("skipping scene %s: %v", id, err)
			continue
		}
		for n, render := range scene.Renders {
			if scheduled >= g.opts.Count {
				break scenes
			}
			scheduled++

			sceneID, index, render := id, n, render
			rng := r.jobRand()
			if !p.Go(fmt.Sprintf("scene %s render %d", sceneID, index), func(ctx context.Context) error {
				return g.composeOne(ctx, r, rng, sceneID, index, render)
			}) {
				break scenes
			}
		}
	}
	return r.finish(p)
}

func (g *Compose) composeOne(ctx context.Context, r *runner, rng *rand.Rand, sceneID string, index int, render dataset.Render) error {
	name := fmt.Sprintf("%s_%d", sceneID, index)
	compareDir := filepath.Join(r.dir, metadata.CompareDirName)
	done := []output{{r.dir, name + "_edited"}, {r.dir, name + "_random"}}
	if r.pairs != nil {
		done = append(done, output{compareDir, name + "_compare"})
	}
	if r.skipExisting(done...) {
		return nil
	}

	bg, err := g.scenes.Background(ctx, sceneID)
	if err != nil {
		return err
	}
	raw, err := g.scenes.LoadRender(render)
	if err != nil {
		return err
	}
	obj, alpha, err := TrimRender(raw)
	if err != nil {
		return fmt.Errorf("render %s: %w", render.Path, err)
	}

	box := render.Box()
	at, err := box.Bounds()
	if err != nil {
		return err
	}

	cleared, err := r.neutral.Neutralize(ctx, bg, box)
	if err != nil {
		return fmt.Errorf("failed to clear background: %w", err)
	}

	patch, err := sgimage.Resize(obj, at.Size(), g.opts.Place.Interpolation)
	if err != nil {
		return err
	}
	patchAlpha, err := sgimage.ResizeAlpha(alpha, at.Size(), g.opts.Place.Interpolation)
	if err != nil {
		return err
	}
	correct, err := sgimage.Composite(cleared, patch, at, patchAlpha)
	if err != nil {
		return fmt.Errorf("failed to composite render: %w", err)
	}

	if _, err := r.logSample(correct, r.dir, name+"_edited", sceneID, true); err != nil {
		return err
	}

	placed, err := synth.NewPlacer(rng, g.opts.Place).Place(cleared, box, obj, alpha)
	if err != nil {
		return fmt.Errorf("failed to place render: %w", err)
	}
	if _, err := r.logSample(placed.Image, r.dir, name+"_random", sceneID, false); err != nil {
		return err
	}

	return r.logComparison(rng, correct, placed.Image, compareDir, name+"_compare", name)
}

// TrimRender crops a render to the bounding box of its non-transparent
// pixels and returns the crop with its alpha channel.
func TrimRender(img image.Image) (*image.RGBA, *image.Alpha, error) {
	alpha := sgimage.AlphaChannel(img)
	box, err := region.NewMaskFromAlpha(alpha).Bounds()
	if err != nil {
		return nil, nil, err
	}

	obj, err := sgimage.Crop(img, box.ImageRect().Add(img.Bounds().Min))
	if err != nil {
		return nil, nil, err
	}
	objAlpha, err := sgimage.CropAlpha(alpha, box.ImageRect())
	if err != nil {
		return nil, nil, err
	}
	return obj, objAlpha, nil
}
