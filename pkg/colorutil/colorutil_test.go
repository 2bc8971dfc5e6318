package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJetEndpoints(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0, G: 0, B: 128, A: 255}, Jet(0))
	assert.Equal(t, color.RGBA{R: 128, G: 255, B: 128, A: 255}, Jet(0.5))
	assert.Equal(t, color.RGBA{R: 128, G: 0, B: 0, A: 255}, Jet(1))
	assert.Equal(t, Jet(1), Jet(3))
}

func TestJetLevels(t *testing.T) {
	assert.Equal(t, Jet(0), JetLevels(0, 3))
	assert.Equal(t, Jet(0.5), JetLevels(1, 3))
	assert.Equal(t, Jet(1), JetLevels(2, 3))
	assert.Equal(t, Jet(1), JetLevels(7, 3))
	assert.Equal(t, Jet(0), JetLevels(4, 1))
}
