// Package surrogate fabricates plausible, reproducible geometry metrics for
// solid formats that are never parsed.
package surrogate

import (
	"math"
	"unicode/utf16"

	"github.com/philipparndt/partquote/pkg/analysis"
)

// Draw offsets, one per estimated quantity
const (
	offsetVolume = iota + 1
	offsetAreaRatio
	offsetExtentX
	offsetExtentY
	offsetExtentZ
	offsetFaces
	offsetEdges
)

// Seed sums the UTF-16 code units of a file name. An empty name seeds as
// "default".
func Seed(name string) int {
	if name == "" {
		name = "default"
	}
	seed := 0
	for _, unit := range utf16.Encode([]rune(name)) {
		seed += int(unit)
	}
	return seed
}

// Random is the seeded draw function of the estimator
type Random struct {
	Seed int
}

// Between draws a value in [min, max) for the given offset. The same seed
// and offset always yield the same value.
func (r Random) Between(min, max float64, offset int) float64 {
	x := math.Sin(float64(r.Seed+offset)) * 10000
	return min + (x-math.Floor(x))*(max-min)
}

// Estimate returns surrogate metrics for a file name
func Estimate(name string) analysis.GeometryMetrics {
	return EstimateSeed(Seed(name))
}

// EstimateSeed returns surrogate metrics for a precomputed seed
func EstimateSeed(seed int) analysis.GeometryMetrics {
	r := Random{Seed: seed}
	volume := r.Between(50, 500, offsetVolume)
	area := volume * r.Between(5, 8, offsetAreaRatio)

	return analysis.GeometryMetrics{
		Volume:      analysis.Round(volume, 2),
		SurfaceArea: analysis.Round(area, 2),
		BoundingBox: analysis.Extents{
			X: analysis.Round(r.Between(50, 150, offsetExtentX), 1),
			Y: analysis.Round(r.Between(40, 120, offsetExtentY), 1),
			Z: analysis.Round(r.Between(30, 100, offsetExtentZ), 1),
		},
		FaceCount: int(math.Floor(r.Between(10, 40, offsetFaces))),
		EdgeCount: int(math.Floor(r.Between(20, 80, offsetEdges))),
		Source:    analysis.SourceSurrogate,
	}
}
