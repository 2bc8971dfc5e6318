package generate

import (
	"context"
	"image/color"
	"path/filepath"
	"testing"

	"scenegen/internal/dataset"
	"scenegen/internal/metadata"
	"scenegen/internal/synth"
	"scenegen/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = color.RGBA{255, 0, 0, 255}
	green = color.RGBA{0, 255, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
	white = color.RGBA{255, 255, 255, 255}
)

// fourCups returns four images of one category whose square objects grow
// in the order a, b, c, d.
func fourCups() *memAdapter {
	m := newMemAdapter(dataset.Category{ID: 1, Name: "cup"})
	m.add("a", 1, geometry.NewRectInt(4, 4, 8, 8), red)
	m.add("b", 1, geometry.NewRectInt(10, 6, 10, 10), green)
	m.add("c", 1, geometry.NewRectInt(2, 8, 12, 12), blue)
	m.add("d", 1, geometry.NewRectInt(6, 2, 14, 14), white)
	return m
}

func TestReplaceSwapsPairs(t *testing.T) {
	opts := testOptions(t)
	opts.Count = 4

	stats, err := NewReplace(RegionBoxes, fourCups(), opts, nil).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Generated: 4}, stats)

	dir := filepath.Join(opts.OutputDir, "bbox_replace")
	rows := readRows(t, filepath.Join(dir, metadata.FileName))
	require.Len(t, rows, 5)
	assert.Equal(t, metadata.SampleHeader, rows[0])
	for _, row := range rows[1:] {
		assert.Equal(t, "1", row[2])
		assert.Equal(t, filepath.Join(dir, "cup", row[0]+".png"), row[1])
	}

	// Pairs by area: a with b, c with d. Each image carries its partner's
	// object inside its own box.
	a := loadRGBA(t, filepath.Join(dir, "cup", "a.png"))
	assert.Equal(t, green, a.RGBAAt(4, 4))
	assert.Equal(t, green, a.RGBAAt(11, 11))
	assert.Equal(t, gray, a.RGBAAt(12, 12))

	b := loadRGBA(t, filepath.Join(dir, "cup", "b.png"))
	assert.Equal(t, red, b.RGBAAt(15, 11))

	d := loadRGBA(t, filepath.Join(dir, "cup", "d.png"))
	assert.Equal(t, blue, d.RGBAAt(10, 10))
}

func TestReplaceIsIdempotent(t *testing.T) {
	opts := testOptions(t)
	opts.Count = 4
	adapter := fourCups()

	_, err := NewReplace(RegionBoxes, adapter, opts, nil).Generate(context.Background())
	require.NoError(t, err)

	stats, err := NewReplace(RegionBoxes, adapter, opts, nil).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Skipped: 4}, stats)

	rows := readRows(t, filepath.Join(opts.OutputDir, "bbox_replace", metadata.FileName))
	assert.Len(t, rows, 5)
}

func TestReplaceCountLimit(t *testing.T) {
	opts := testOptions(t)
	opts.Count = 2

	stats, err := NewReplace(RegionBoxes, fourCups(), opts, nil).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Generated)
}

func TestReplaceMasksWithComparisons(t *testing.T) {
	opts := testOptions(t)
	opts.Count = 4
	opts.Compare = true
	opts.Background = synth.BackgroundBlack

	stats, err := NewReplace(RegionMasks, fourCups(), opts, nil).Generate(context.Background())
	require.NoError(t, err)
	// Four swapped, four randomly placed, four comparisons.
	assert.Equal(t, Stats{Generated: 12}, stats)

	dir := filepath.Join(opts.OutputDir, "seg_replace")
	samples := readRows(t, filepath.Join(dir, metadata.FileName))
	require.Len(t, samples, 9)
	var correct, incorrect int
	for _, row := range samples[1:] {
		switch row[2] {
		case "1":
			correct++
		case "0":
			incorrect++
			assert.Equal(t, filepath.Join(dir, "cup", row[0]+"_random.png"), row[1])
		}
	}
	assert.Equal(t, 4, correct)
	assert.Equal(t, 4, incorrect)

	pairs := readRows(t, filepath.Join(dir, metadata.CompareDirName, metadata.FileName))
	require.Len(t, pairs, 5)
	assert.Equal(t, metadata.ComparisonHeader, pairs[0])
	for _, row := range pairs[1:] {
		assert.Equal(t, row[0], row[1])
		assert.Contains(t, []string{"0", "1"}, row[3])
		assert.FileExists(t, row[2])
	}

	cmp := loadRGBA(t, filepath.Join(dir, metadata.CompareDirName, "cup", "a_compare.png"))
	assert.Equal(t, 64, cmp.Bounds().Dx())
	assert.Equal(t, 32, cmp.Bounds().Dy())
}

func TestReplaceCategoryFilter(t *testing.T) {
	m := fourCups()
	m.cats = append(m.cats, dataset.Category{ID: 2, Name: "plate"})
	m.add("e", 2, geometry.NewRectInt(0, 0, 8, 8), red)
	m.add("f", 2, geometry.NewRectInt(0, 0, 8, 8), blue)

	opts := testOptions(t)
	opts.Count = 10
	opts.CategoryIDs = []int{2}

	stats, err := NewReplace(RegionBoxes, m, opts, nil).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Generated)
	assert.FileExists(t, filepath.Join(opts.OutputDir, "bbox_replace", "plate", "e.png"))
	assert.NoFileExists(t, filepath.Join(opts.OutputDir, "bbox_replace", "cup", "a.png"))
}

func TestReplaceFirstInpaintFailureAborts(t *testing.T) {
	opts := testOptions(t)
	opts.Count = 4
	opts.Compare = true
	opts.Background = synth.BackgroundInpaint
	opts.Workers = 1

	inner := &scriptedInpainter{fail: map[int]bool{1: true}}
	_, err := NewReplace(RegionBoxes, fourCups(), opts, inner).Generate(context.Background())
	assert.ErrorIs(t, err, ErrSystemic)
	assert.Equal(t, 1, inner.calls)
}

func TestReplaceWithInpainting(t *testing.T) {
	opts := testOptions(t)
	opts.Count = 2
	opts.Compare = true
	opts.Background = synth.BackgroundInpaint

	inner := &scriptedInpainter{}
	stats, err := NewReplace(RegionBoxes, fourCups(), opts, inner).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Generated)
	assert.Equal(t, 2, inner.calls)
}

func TestReplaceRerunSkipsInpainting(t *testing.T) {
	opts := testOptions(t)
	opts.Count = 2
	opts.Compare = true
	opts.Background = synth.BackgroundInpaint
	adapter := fourCups()

	inner := &scriptedInpainter{}
	_, err := NewReplace(RegionBoxes, adapter, opts, inner).Generate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)

	// Every output is on disk, so nothing is cleared again.
	stats, err := NewReplace(RegionBoxes, adapter, opts, inner).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Skipped: 6}, stats)
	assert.Equal(t, 2, inner.calls)
}
