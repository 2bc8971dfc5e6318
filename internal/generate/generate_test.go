package generate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"

	"scenegen/internal/dataset"
	sgimage "scenegen/internal/image"
	"scenegen/internal/metadata"
	"scenegen/internal/region"
	"scenegen/internal/synth"
	"scenegen/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gray = color.RGBA{128, 128, 128, 255}

// memAdapter is an in-memory dataset.
type memAdapter struct {
	cats    []dataset.Category
	order   []string
	samples map[string]*dataset.Sample
}

func newMemAdapter(cats ...dataset.Category) *memAdapter {
	return &memAdapter{cats: cats, samples: make(map[string]*dataset.Sample)}
}

// add registers a 32x32 gray image with one object of colour c at box.
func (m *memAdapter) add(id string, categoryID int, box geometry.RectInt, c color.RGBA) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	draw.Draw(img, img.Bounds(), &image.Uniform{gray}, image.Point{}, draw.Src)
	draw.Draw(img, box.ImageRect(), &image.Uniform{c}, image.Point{}, draw.Src)

	mask := region.NewMask(32, 32)
	for y := box.Y; y < box.Bottom(); y++ {
		for x := box.X; x < box.Right(); x++ {
			mask.Set(x, y, true)
		}
	}

	m.order = append(m.order, id)
	m.samples[id] = &dataset.Sample{
		ID:    id,
		Path:  id + ".png",
		Image: img,
		Annotations: []dataset.Annotation{
			{CategoryID: categoryID, Box: region.Box(box), Mask: mask},
		},
	}
}

func (m *memAdapter) Image(_ context.Context, id string, categoryIDs []int) (*dataset.Sample, error) {
	s, ok := m.samples[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, dataset.ErrUnknownImage)
	}
	out := *s
	out.Annotations = nil
	for _, a := range s.Annotations {
		if len(categoryIDs) == 0 || containsID(categoryIDs, a.CategoryID) {
			out.Annotations = append(out.Annotations, a)
		}
	}
	return &out, nil
}

func (m *memAdapter) ImageIDs(categoryIDs []int) ([]string, error) {
	var ids []string
	for _, id := range m.order {
		for _, a := range m.samples[id].Annotations {
			if len(categoryIDs) == 0 || containsID(categoryIDs, a.CategoryID) {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids, nil
}

func (m *memAdapter) Categories() []dataset.Category { return m.cats }

func containsID(ids []int, v int) bool {
	for _, id := range ids {
		if id == v {
			return true
		}
	}
	return false
}

func testOptions(t *testing.T) Options {
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()
	opts.Background = synth.BackgroundKeep
	opts.Workers = 2
	opts.Seed = 7
	opts.Swap = opts.Swap.WithInterpolation(sgimage.InterpolationNearest)
	opts.Place.Interpolation = sgimage.InterpolationNearest
	return opts
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	rows, err := metadata.ReadLog(path)
	require.NoError(t, err)
	return rows
}

func loadRGBA(t *testing.T, path string) *image.RGBA {
	t.Helper()
	img, err := sgimage.Load(path)
	require.NoError(t, err)
	return sgimage.ToRGBA(img)
}

type stubGenerator struct {
	stats Stats
	err   error
}

func (g stubGenerator) Generate(context.Context) (Stats, error) { return g.stats, g.err }

func TestRunWritesManifest(t *testing.T) {
	opts := testOptions(t)
	want := Stats{Generated: 4, Skipped: 2, Failed: 1}

	stats, err := Run(context.Background(), KindBBoxReplace, stubGenerator{stats: want}, opts, "v1.2.3", map[string]int{"count": 4})
	require.NoError(t, err)
	assert.Equal(t, want, stats)

	m, err := metadata.ReadRunManifest(opts.OutputDir)
	require.NoError(t, err)
	assert.Equal(t, "bboxreplace", m.Generator)
	assert.Equal(t, "v1.2.3", m.Version)
	assert.Equal(t, opts.Seed, m.Seed)
	assert.Equal(t, 4, m.Generated)
	assert.Equal(t, 2, m.Skipped)
	assert.Equal(t, 1, m.Failed)
	assert.NotEmpty(t, m.RunID)
	assert.False(t, m.Finished.Before(m.Started))
}

func TestRunKeepsGeneratorError(t *testing.T) {
	opts := testOptions(t)
	boom := errors.New("boom")

	_, err := Run(context.Background(), KindCompose, stubGenerator{err: boom}, opts, "dev", nil)
	assert.ErrorIs(t, err, boom)
	assert.FileExists(t, filepath.Join(opts.OutputDir, metadata.RunFileName))
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(" " + string(k) + " ")
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("swap")
	assert.Error(t, err)
}

func TestNewRunnerNeedsInpainter(t *testing.T) {
	opts := testOptions(t)
	opts.Background = synth.BackgroundInpaint

	_, err := newRunner(opts, "x", nil, true)
	assert.ErrorIs(t, err, ErrSystemic)
}
