package image

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	img := solid(t, 3, 3, color.RGBA{G: 200, A: 255})

	path, err := Save(img, dir, "a", ".png")
	require.NoError(t, err)
	assert.True(t, Exists(dir, "a", ".png"))

	again, err := Save(solid(t, 3, 3, red), dir, "a", ".png")
	assert.ErrorIs(t, err, ErrExists)
	assert.Equal(t, path, again)

	loaded, err := Load(path)
	require.NoError(t, err)
	r, g, _, _ := loaded.At(1, 1).RGBA()
	assert.Equal(t, uint32(0), r)
	assert.Equal(t, uint32(200), g>>8)
}

func TestSaveJPEG(t *testing.T) {
	dir := t.TempDir()
	path, err := Save(solid(t, 8, 8, red), dir, "b", ".jpg")
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, loaded.Bounds().Dx())
}

func TestIsSupportedFormat(t *testing.T) {
	assert.True(t, IsSupportedFormat("x/y.PNG"))
	assert.True(t, IsSupportedFormat("a.webp"))
	assert.False(t, IsSupportedFormat("a.bmp"))
}
