package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"path/filepath"

	"scenegen/internal/region"
)

// Render is one object rendered in isolation, with the box it occupies in
// its scene's background.
type Render struct {
	Path       string `json:"path"`
	BBox       [4]int `json:"bbox"` // x1, y1, x2, y2; far edges exclusive
	CategoryID int    `json:"category_id"`
}

// Box returns the render's placement box.
func (r Render) Box() region.Box {
	return region.BoxFromCorners(r.BBox[0], r.BBox[1], r.BBox[2], r.BBox[3])
}

// Scene is a background with the renders that belong in it.
type Scene struct {
	ID         string   `json:"id"`
	Background string   `json:"background"`
	Renders    []Render `json:"renders"`
}

type renderManifest struct {
	Scenes     []Scene    `json:"scenes"`
	Categories []Category `json:"categories"`
}

// RenderSet reads a scene manifest of backgrounds and rendered objects.
type RenderSet struct {
	dir        string
	scenes     map[string]Scene
	order      []string
	categories []Category
}

var _ Adapter = (*RenderSet)(nil)

// LoadRenderSet parses a scene manifest. Relative paths inside it resolve
// against the manifest's directory.
func LoadRenderSet(path string) (*RenderSet, error) {
	f, err := openManifest(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m renderManifest
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %v: %w", path, err, ErrAdapterIO)
	}

	rs := &RenderSet{
		dir:        filepath.Dir(path),
		scenes:     make(map[string]Scene, len(m.Scenes)),
		categories: m.Categories,
	}
	for _, s := range m.Scenes {
		if _, dup := rs.scenes[s.ID]; dup {
			return nil, fmt.Errorf("duplicate scene %q in %s: %w", s.ID, path, ErrAdapterIO)
		}
		rs.scenes[s.ID] = s
		rs.order = append(rs.order, s.ID)
	}
	return rs, nil
}

// Categories lists the manifest's categories.
func (rs *RenderSet) Categories() []Category {
	out := make([]Category, len(rs.categories))
	copy(out, rs.categories)
	return out
}

// SceneIDs lists scenes in manifest order.
func (rs *RenderSet) SceneIDs() []string {
	out := make([]string, len(rs.order))
	copy(out, rs.order)
	return out
}

// Scene returns the manifest entry for id.
func (rs *RenderSet) Scene(id string) (Scene, error) {
	s, ok := rs.scenes[id]
	if !ok {
		return Scene{}, fmt.Errorf("scene %q: %w", id, ErrUnknownImage)
	}
	return s, nil
}

// Background loads the background image of scene id.
func (rs *RenderSet) Background(ctx context.Context, id string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := rs.Scene(id)
	if err != nil {
		return nil, err
	}
	return loadImage(resolve(rs.dir, s.Background))
}

// LoadRender loads a render image, keeping its alpha channel.
func (rs *RenderSet) LoadRender(r Render) (image.Image, error) {
	return loadImage(resolve(rs.dir, r.Path))
}

// ImageIDs lists scenes that have renders of every requested category.
func (rs *RenderSet) ImageIDs(categoryIDs []int) ([]string, error) {
	var ids []string
	for _, id := range rs.order {
		s := rs.scenes[id]
		ok := true
		for _, want := range categoryIDs {
			found := false
			for _, r := range s.Renders {
				if r.CategoryID == want {
					found = true
					break
				}
			}
			if !found {
				ok = false
				break
			}
		}
		if ok && len(s.Renders) > 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Image loads the background of scene id annotated with its render boxes.
func (rs *RenderSet) Image(ctx context.Context, id string, categoryIDs []int) (*Sample, error) {
	img, err := rs.Background(ctx, id)
	if err != nil {
		return nil, err
	}
	s := rs.scenes[id]
	out := &Sample{ID: id, Path: resolve(rs.dir, s.Background), Image: img}
	for _, r := range s.Renders {
		if len(categoryIDs) > 0 && !containsInt(categoryIDs, r.CategoryID) {
			continue
		}
		out.Annotations = append(out.Annotations, Annotation{CategoryID: r.CategoryID, Box: r.Box()})
	}
	return out, nil
}
