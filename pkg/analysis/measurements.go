package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/philipparndt/partquote/pkg/geometry"
	"github.com/philipparndt/partquote/pkg/mesh"
)

// EdgeInfo describes one triangle edge of a mesh
type EdgeInfo struct {
	Start      geometry.Vector3
	End        geometry.Vector3
	Length     float64
	TriangleID int
}

// EdgeStats contains the measured geometry of a mesh, as opposed to the
// heuristic estimate returned by Calculate
type EdgeStats struct {
	BoundingBox   geometry.BoundingBox
	Dimensions    geometry.Vector3
	MeasuredArea  float64
	TriangleCount int
	EdgeCount     int
	MinEdgeLength float64
	MaxEdgeLength float64
	AvgEdgeLength float64
	AllEdges      []EdgeInfo
}

// AnalyzeEdges walks every triangle edge of the mesh and sums the true
// triangle areas
func AnalyzeEdges(buf *mesh.Buffer) *EdgeStats {
	stats := &EdgeStats{
		BoundingBox:   buf.BoundingBox(),
		TriangleCount: buf.TriangleCount(),
		AllEdges:      make([]EdgeInfo, 0, buf.TriangleCount()*3),
	}
	stats.Dimensions = stats.BoundingBox.Size()

	minLength := math.MaxFloat64
	maxLength := 0.0
	totalLength := 0.0

	for i := 0; i < buf.TriangleCount(); i++ {
		tri := buf.Triangle(i)
		stats.MeasuredArea += tri.Area()

		for _, edge := range [3][2]geometry.Vector3{
			{tri.V1, tri.V2},
			{tri.V2, tri.V3},
			{tri.V3, tri.V1},
		} {
			length := edge[0].Distance(edge[1])
			stats.AllEdges = append(stats.AllEdges, EdgeInfo{
				Start:      edge[0],
				End:        edge[1],
				Length:     length,
				TriangleID: i,
			})

			totalLength += length
			minLength = math.Min(minLength, length)
			maxLength = math.Max(maxLength, length)
		}
	}

	stats.EdgeCount = len(stats.AllEdges)
	if stats.EdgeCount > 0 {
		stats.MinEdgeLength = minLength
		stats.MaxEdgeLength = maxLength
		stats.AvgEdgeLength = totalLength / float64(stats.EdgeCount)
	}

	return stats
}

// FindEdgesByLength finds all edges within a length range
func FindEdgesByLength(stats *EdgeStats, minLength, maxLength float64) []EdgeInfo {
	var edges []EdgeInfo
	for _, edge := range stats.AllEdges {
		if edge.Length >= minLength && edge.Length <= maxLength {
			edges = append(edges, edge)
		}
	}
	return edges
}

// FindLongestEdges returns the N longest edges in the mesh
func FindLongestEdges(stats *EdgeStats, count int) []EdgeInfo {
	return sortedEdges(stats, count, func(a, b EdgeInfo) bool { return a.Length > b.Length })
}

// FindShortestEdges returns the N shortest edges in the mesh
func FindShortestEdges(stats *EdgeStats, count int) []EdgeInfo {
	return sortedEdges(stats, count, func(a, b EdgeInfo) bool { return a.Length < b.Length })
}

func sortedEdges(stats *EdgeStats, count int, less func(a, b EdgeInfo) bool) []EdgeInfo {
	edges := make([]EdgeInfo, len(stats.AllEdges))
	copy(edges, stats.AllEdges)

	sort.SliceStable(edges, func(i, j int) bool {
		return less(edges[i], edges[j])
	})

	if count > len(edges) {
		count = len(edges)
	}
	return edges[:count]
}

// FindNearestVertex finds the vertex of the mesh nearest to a given point.
// The distance is +Inf for an empty mesh.
func FindNearestVertex(buf *mesh.Buffer, point geometry.Vector3) (geometry.Vector3, float64) {
	var nearest geometry.Vector3
	minDistance := math.Inf(1)

	for i := 0; i < buf.VertexCount(); i++ {
		vertex := buf.Vertex(i)
		if distance := point.Distance(vertex); distance < minDistance {
			minDistance = distance
			nearest = vertex
		}
	}

	return nearest, minDistance
}

// FormatMeasurement formats a measurement with appropriate units
func FormatMeasurement(value float64, unit string) string {
	if unit == "" {
		unit = "units"
	}
	return fmt.Sprintf("%.6f %s", value, unit)
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z)
}
