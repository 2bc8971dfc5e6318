package dataset

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"scenegen/internal/region"
	"scenegen/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

const cocoJSON = `{
  "images": [
    {"id": 12, "file_name": "b.png", "width": 20, "height": 20},
    {"id": 3, "file_name": "a.png", "width": 20, "height": 20},
    {"id": 7, "file_name": "missing.png", "width": 20, "height": 20}
  ],
  "annotations": [
    {"id": 1, "image_id": 3, "category_id": 1, "bbox": [2, 2, 8, 8],
     "segmentation": [[2, 2, 10, 2, 10, 10, 2, 10]], "iscrowd": 0},
    {"id": 2, "image_id": 3, "category_id": 2, "bbox": [0, 0, 5, 5],
     "segmentation": {"counts": [0, 25], "size": [20, 20]}, "iscrowd": 1},
    {"id": 3, "image_id": 12, "category_id": 1, "bbox": [1, 1, 4, 4],
     "segmentation": [[1, 1, 5, 1, 5, 5, 1, 5]], "iscrowd": 0},
    {"id": 4, "image_id": 12, "category_id": 1, "bbox": [10, 10, 4, 4],
     "segmentation": [[10, 10, 14, 10, 14, 14, 10, 14]], "iscrowd": 0}
  ],
  "categories": [{"id": 1, "name": "cat"}, {"id": 2, "name": "dog"}]
}`

func setupCOCO(t *testing.T) *COCO {
	t.Helper()
	dir := t.TempDir()
	ann := filepath.Join(dir, "instances.json")
	require.NoError(t, os.WriteFile(ann, []byte(cocoJSON), 0o644))
	writePNG(t, filepath.Join(dir, "a.png"), 20, 20, color.White)
	writePNG(t, filepath.Join(dir, "b.png"), 20, 20, color.Black)

	c, err := LoadCOCO(ann, "")
	require.NoError(t, err)
	return c
}

func TestCOCOImageIDs(t *testing.T) {
	c := setupCOCO(t)

	ids, err := c.ImageIDs(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "7", "12"}, ids)

	ids, err = c.ImageIDs([]int{1})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "12"}, ids)

	ids, err = c.ImageIDs([]int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, ids)

	assert.Equal(t, []Category{{ID: 1, Name: "cat"}, {ID: 2, Name: "dog"}}, c.Categories())
}

func TestCOCOImage(t *testing.T) {
	c := setupCOCO(t)

	s, err := c.Image(context.Background(), "3", nil)
	require.NoError(t, err)
	require.Len(t, s.Annotations, 2)
	assert.Equal(t, region.NewBox(2, 2, 8, 8), s.Annotations[0].Box)
	require.NotNil(t, s.Annotations[0].Mask)
	assert.Nil(t, s.Annotations[1].Mask, "crowd annotations have no mask")

	got, err := s.Annotations[0].Mask.Bounds()
	require.NoError(t, err)
	assert.Equal(t, geometry.NewRectInt(2, 2, 8, 8), got)

	s, err = c.Image(context.Background(), "12", []int{2})
	require.NoError(t, err)
	assert.Empty(t, s.Annotations)

	_, err = c.Image(context.Background(), "7", nil)
	assert.ErrorIs(t, err, ErrAdapterIO)
	_, err = c.Image(context.Background(), "99", nil)
	assert.ErrorIs(t, err, ErrUnknownImage)
}

func TestCOCOGroupCategories(t *testing.T) {
	c := setupCOCO(t)
	groups := c.GroupCategories()
	assert.Equal(t, []int{1, 2}, groups["3"])
	assert.Equal(t, []int{1}, groups["12"])
	_, ok := groups["7"]
	assert.False(t, ok)

	assert.True(t, c.ImageExists("3"))
	assert.False(t, c.ImageExists("7"))
}

func TestLoadCOCOMissing(t *testing.T) {
	_, err := LoadCOCO(filepath.Join(t.TempDir(), "nope.json"), "")
	assert.ErrorIs(t, err, ErrAdapterIO)
}

func TestRasterizePolygons(t *testing.T) {
	m := RasterizePolygons([][]float64{{0, 0, 4, 0, 4, 4, 0, 4}, {1, 1}}, 10, 10)
	assert.Equal(t, 16, m.Count())
	assert.True(t, m.At(3, 3))
	assert.False(t, m.At(4, 4))
}

const renderJSON = `{
  "scenes": [
    {"id": "s1", "background": "bg/s1.png",
     "renders": [{"path": "r/s1_0.png", "bbox": [2, 3, 12, 9], "category_id": 4}]},
    {"id": "s2", "background": "bg/s2.png", "renders": []}
  ],
  "categories": [{"id": 4, "name": "chair"}]
}`

func TestRenderSet(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "scenes.json")
	require.NoError(t, os.WriteFile(manifest, []byte(renderJSON), 0o644))
	writePNG(t, filepath.Join(dir, "bg", "s1.png"), 30, 20, color.White)
	writePNG(t, filepath.Join(dir, "r", "s1_0.png"), 5, 5, color.NRGBA{R: 255, A: 128})

	rs, err := LoadRenderSet(manifest)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, rs.SceneIDs())

	ids, err := rs.ImageIDs(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	s, err := rs.Image(context.Background(), "s1", nil)
	require.NoError(t, err)
	require.Len(t, s.Annotations, 1)
	assert.Equal(t, region.NewBox(2, 3, 10, 6), s.Annotations[0].Box)
	assert.Equal(t, 30, s.Image.Bounds().Dx())

	scene, err := rs.Scene("s1")
	require.NoError(t, err)
	render, err := rs.LoadRender(scene.Renders[0])
	require.NoError(t, err)
	_, _, _, a := render.At(0, 0).RGBA()
	assert.Equal(t, uint32(128), a>>8)

	_, err = rs.Background(context.Background(), "s2")
	assert.ErrorIs(t, err, ErrAdapterIO)
}

func TestLoadImageRejectsUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	// A valid PNG behind an extension the decoders do not handle.
	writePNG(t, filepath.Join(dir, "bg.bmp"), 4, 4, color.White)

	_, err := loadImage(filepath.Join(dir, "bg.bmp"))
	assert.ErrorIs(t, err, ErrAdapterIO)
	assert.Contains(t, err.Error(), ".bmp")

	writePNG(t, filepath.Join(dir, "bg.PNG"), 4, 4, color.White)
	img, err := loadImage(filepath.Join(dir, "bg.PNG"))
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
}
