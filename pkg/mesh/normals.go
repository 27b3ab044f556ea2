package mesh

import "github.com/philipparndt/partquote/pkg/geometry"

// ComputeVertexNormals returns a new buffer whose normals are the average of
// the unit face normals of every triangle sharing each vertex. Faces are
// weighted equally, not by area or corner angle. Vertices touched only by
// degenerate triangles get a zero normal.
func ComputeVertexNormals(b *Buffer) *Buffer {
	sums := make([]geometry.Vector3, b.VertexCount())

	for i := 0; i < b.TriangleCount(); i++ {
		vs := b.TriangleVertices(i)
		face := geometry.NewTriangle(geometry.Vector3{}, b.Vertex(vs[0]), b.Vertex(vs[1]), b.Vertex(vs[2])).CalculateNormal()
		for _, v := range vs {
			sums[v] = sums[v].Add(face)
		}
	}

	normals := make([]float32, len(b.positions))
	for i, sum := range sums {
		n := sum.Normalize()
		normals[i*3+0] = float32(n.X)
		normals[i*3+1] = float32(n.Y)
		normals[i*3+2] = float32(n.Z)
	}

	return &Buffer{
		positions: b.positions,
		normals:   normals,
		indices:   b.indices,
	}
}
