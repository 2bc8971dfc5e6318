package generate

import (
	"math"
	"sort"

	"scenegen/internal/dataset"
	"scenegen/internal/region"
	"scenegen/pkg/geometry"

	"gonum.org/v1/gonum/floats"
)

// candidate is one image considered for a content swap.
type candidate struct {
	ID     string
	Sample *dataset.Sample
	Region region.Region
	Box    geometry.RectInt // annotation box, used for grouping
}

func (c candidate) ratio() float64 { return c.Box.Size().AspectRatio() }
func (c candidate) area() int      { return c.Box.Size().Area() }

// RatioGroup buckets ratio into one of n groups spanning [minRatio, maxRatio].
// The maximum lands in the last group; everything lands in group 0 when the
// span is empty.
func RatioGroup(minRatio, maxRatio, ratio float64, n int) int {
	if n < 2 || maxRatio <= minRatio {
		return 0
	}
	size := (maxRatio - minRatio) / float64(n-1)
	g := int(math.Floor((ratio - minRatio) / size))
	if g < 0 {
		return 0
	}
	if g > n-1 {
		return n - 1
	}
	return g
}

// pairCandidates groups candidates by aspect ratio, sorts each group by area
// and pairs neighbours (0-1, 2-3, ...). Pairs touching an ID in used are
// dropped; a group's odd one out is left unpaired.
func pairCandidates(cands []candidate, groups int, used map[string]bool) [][2]candidate {
	if len(cands) < 2 {
		return nil
	}

	ratios := make([]float64, len(cands))
	for i, c := range cands {
		ratios[i] = c.ratio()
	}
	minRatio, maxRatio := floats.Min(ratios), floats.Max(ratios)

	buckets := make([][]candidate, max(groups, 1))
	for i, c := range cands {
		g := RatioGroup(minRatio, maxRatio, ratios[i], groups)
		buckets[g] = append(buckets[g], c)
	}

	var pairs [][2]candidate
	for _, bucket := range buckets {
		if len(bucket) <= 1 {
			continue
		}
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].area() < bucket[j].area() })
		for i := 0; i+1 < len(bucket); i += 2 {
			a, b := bucket[i], bucket[i+1]
			if used[a.ID] || used[b.ID] {
				continue
			}
			pairs = append(pairs, [2]candidate{a, b})
		}
	}
	return pairs
}
