package analysis

import (
	"math"

	"github.com/philipparndt/partquote/pkg/mesh"
)

// Source tells how a set of metrics was obtained
type Source string

const (
	// SourceMesh marks metrics derived from a decoded triangle mesh
	SourceMesh Source = "mesh-heuristic"
	// SourceSurrogate marks metrics fabricated from a file name
	SourceSurrogate Source = "surrogate"
)

// Heuristic constants. The fill factor treats a part as 40% of its bounding
// box, which is not a physical volume.
const (
	FillFactor      = 0.4
	AreaFactor      = 0.1
	EdgesPerFace    = 1.5
	volumeDecimals  = 2
	areaDecimals    = 2
	extentsDecimals = 1
)

// Extents holds the bounding box size per axis in mm
type Extents struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// GeometryMetrics are the manufacturing relevant measures of a part
type GeometryMetrics struct {
	Volume      float64 `json:"volume"`      // cm³
	SurfaceArea float64 `json:"surfaceArea"` // cm²
	BoundingBox Extents `json:"boundingBox"`
	FaceCount   int     `json:"faceCount"`
	EdgeCount   int     `json:"edgeCount"`
	Source      Source  `json:"source,omitempty"`
}

// Calculate derives metrics from a mesh buffer using the fill-factor
// heuristic. An empty buffer yields zero metrics.
func Calculate(buf *mesh.Buffer) GeometryMetrics {
	metrics := GeometryMetrics{Source: SourceMesh}
	if buf == nil || buf.VertexCount() == 0 {
		return metrics
	}

	size := buf.BoundingBox().Size()
	triangles := buf.TriangleCount()
	meanExtent := (size.X + size.Y + size.Z) / 3

	metrics.Volume = Round(size.X*size.Y*size.Z*FillFactor, volumeDecimals)
	metrics.SurfaceArea = Round(float64(triangles)*meanExtent*meanExtent*AreaFactor, areaDecimals)
	metrics.BoundingBox = Extents{
		X: Round(size.X, extentsDecimals),
		Y: Round(size.Y, extentsDecimals),
		Z: Round(size.Z, extentsDecimals),
	}
	metrics.FaceCount = triangles
	metrics.EdgeCount = int(math.Floor(float64(triangles) * EdgesPerFace))
	return metrics
}

// Round rounds half up to the given number of decimals
func Round(value float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Floor(value*scale+0.5) / scale
}
