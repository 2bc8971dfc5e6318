package generate

import (
	"context"
	"fmt"

	"scenegen/internal/dataset"
	"scenegen/internal/outline"
	"scenegen/internal/synth"
	"scenegen/pkg/geometry"
)

// Outlines renders each image's segmentation as a colour-coded class map
// with traced object outlines.
type Outlines struct {
	adapter dataset.Adapter
	opts    Options
}

// NewOutlines creates an outline generator.
func NewOutlines(adapter dataset.Adapter, opts Options) *Outlines {
	return &Outlines{adapter: adapter, opts: opts.withDefaults()}
}

// Generate renders up to Count images containing CategoryIDs.
func (g *Outlines) Generate(ctx context.Context) (Stats, error) {
	// Outlines never clear a region, so the background mode does not apply.
	runOpts := g.opts
	runOpts.Background = synth.BackgroundKeep
	r, err := newRunner(runOpts, "outlines", nil, false)
	if err != nil {
		return Stats{}, err
	}

	ids, err := g.adapter.ImageIDs(g.opts.CategoryIDs)
	if err != nil {
		return Stats{}, fmt.Errorf("%v: %w", err, ErrSystemic)
	}

	// Class 0 is background; categories follow in dataset order.
	classes := make(map[int]int)
	for i, c := range g.adapter.Categories() {
		classes[c.ID] = i + 1
	}
	opts := outline.DefaultOptions().WithLevels(len(classes) + 1)

	p := newPool(ctx, g.opts.Workers)
	for i, id := range ids {
		if g.opts.Count > 0 && i >= g.opts.Count {
			break
		}
		id := id
		if !p.Go("image "+id, func(ctx context.Context) error {
			return g.renderOne(ctx, r, id, classes, opts)
		}) {
			break
		}
	}
	return r.finish(p)
}

func (g *Outlines) renderOne(ctx context.Context, r *runner, id string, classes map[int]int, opts outline.Options) error {
	s, err := g.adapter.Image(ctx, id, g.opts.CategoryIDs)
	if err != nil {
		return err
	}

	var layers []outline.Layer
	for _, a := range s.Annotations {
		if a.Mask == nil {
			continue
		}
		layers = append(layers, outline.Layer{Mask: a.Mask, Class: classes[a.CategoryID]})
	}
	if len(layers) == 0 {
		return fmt.Errorf("no segmentation masks")
	}

	img, err := outline.Render(geometry.SizeOf(s.Image.Bounds()), layers, opts)
	if err != nil {
		return err
	}
	_, _, err = r.save(img, r.dir, id, nil, nil)
	return err
}
