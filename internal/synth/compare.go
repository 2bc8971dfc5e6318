package synth

import (
	"image"

	sgimage "scenegen/internal/image"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// BuildComparison places correct and incorrect side by side in a random
// order and reports which slot (0 left, 1 right) holds the correct image.
func BuildComparison(rng Rand, correct, incorrect image.Image) (*image.RGBA, int) {
	idx := rng.Intn(2)
	if idx == 0 {
		return sgimage.ConcatHorizontal(correct, incorrect), 0
	}
	return sgimage.ConcatHorizontal(incorrect, correct), 1
}

// FairnessPValue runs a chi-square goodness-of-fit test of counts against a
// uniform distribution and returns the p-value.
func FairnessPValue(counts []int) float64 {
	if len(counts) < 2 {
		return 1
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 1
	}

	obs := make([]float64, len(counts))
	exp := make([]float64, len(counts))
	for i, c := range counts {
		obs[i] = float64(c)
		exp[i] = float64(total) / float64(len(counts))
	}

	chi := stat.ChiSquare(obs, exp)
	dist := distuv.ChiSquared{K: float64(len(counts) - 1)}
	return 1 - dist.CDF(chi)
}
