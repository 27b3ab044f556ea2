// Package mesh holds the flattened triangle buffer handed from the decoder to
// the metrics calculator and on to any renderer.
package mesh

import (
	"errors"
	"fmt"

	"github.com/philipparndt/partquote/pkg/geometry"
)

// ErrInvalidBuffer is returned by New when the arrays violate the buffer layout
var ErrInvalidBuffer = errors.New("invalid mesh buffer")

// Buffer is an immutable triangle mesh stored as parallel flat arrays.
//
// Positions and normals hold one xyz triple per vertex. Indices group
// vertices into triangles; an empty index array means every three
// consecutive vertices form one triangle.
type Buffer struct {
	positions []float32
	normals   []float32
	indices   []uint32
}

// New validates the arrays and builds a buffer that owns copies of them.
// A nil or empty normals slice means the source carried no usable normals.
func New(positions, normals []float32, indices []uint32) (*Buffer, error) {
	if len(positions)%3 != 0 {
		return nil, fmt.Errorf("%w: %d position values is not a multiple of 3", ErrInvalidBuffer, len(positions))
	}
	if len(normals) > 0 && len(normals) != len(positions) {
		return nil, fmt.Errorf("%w: %d normal values for %d position values", ErrInvalidBuffer, len(normals), len(positions))
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices is not a multiple of 3", ErrInvalidBuffer, len(indices))
	}
	if len(indices) == 0 && len(positions)%9 != 0 {
		return nil, fmt.Errorf("%w: %d vertices do not form whole triangles", ErrInvalidBuffer, len(positions)/3)
	}

	vertexCount := uint32(len(positions) / 3)
	for i, idx := range indices {
		if idx >= vertexCount {
			return nil, fmt.Errorf("%w: index %d at position %d exceeds vertex count %d", ErrInvalidBuffer, idx, i, vertexCount)
		}
	}

	b := &Buffer{
		positions: append([]float32(nil), positions...),
		indices:   append([]uint32(nil), indices...),
	}
	if len(normals) > 0 {
		b.normals = append([]float32(nil), normals...)
	}
	return b, nil
}

// Positions returns a copy of the flattened vertex positions
func (b *Buffer) Positions() []float32 {
	return append([]float32(nil), b.positions...)
}

// Normals returns a copy of the flattened vertex normals, or nil if absent
func (b *Buffer) Normals() []float32 {
	if b.normals == nil {
		return nil
	}
	return append([]float32(nil), b.normals...)
}

// Indices returns a copy of the triangle indices (empty for non-indexed meshes)
func (b *Buffer) Indices() []uint32 {
	return append([]uint32(nil), b.indices...)
}

// HasNormals reports whether per-vertex normals are present
func (b *Buffer) HasNormals() bool {
	return len(b.normals) > 0
}

// IsIndexed reports whether triangles are described by the index array
func (b *Buffer) IsIndexed() bool {
	return len(b.indices) > 0
}

// VertexCount returns the number of vertices
func (b *Buffer) VertexCount() int {
	return len(b.positions) / 3
}

// TriangleCount returns the number of triangles
func (b *Buffer) TriangleCount() int {
	if b.IsIndexed() {
		return len(b.indices) / 3
	}
	return len(b.positions) / 9
}

// Vertex returns the position of vertex i
func (b *Buffer) Vertex(i int) geometry.Vector3 {
	return geometry.FromFloat32(b.positions, i*3)
}

// TriangleVertices returns the vertex numbers of triangle i
func (b *Buffer) TriangleVertices(i int) [3]int {
	if b.IsIndexed() {
		return [3]int{int(b.indices[i*3]), int(b.indices[i*3+1]), int(b.indices[i*3+2])}
	}
	return [3]int{i * 3, i*3 + 1, i*3 + 2}
}

// Triangle returns triangle i. The normal is the stored normal of its first
// vertex when present, otherwise the winding normal.
func (b *Buffer) Triangle(i int) geometry.Triangle {
	vs := b.TriangleVertices(i)
	tri := geometry.NewTriangle(geometry.Vector3{}, b.Vertex(vs[0]), b.Vertex(vs[1]), b.Vertex(vs[2]))
	if b.HasNormals() {
		tri.Normal = geometry.FromFloat32(b.normals, vs[0]*3)
	} else {
		tri.Normal = tri.CalculateNormal()
	}
	return tri
}

// BoundingBox calculates the bounding box over all vertex positions
func (b *Buffer) BoundingBox() geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	for i := 0; i < b.VertexCount(); i++ {
		bbox.Extend(b.Vertex(i))
	}
	return bbox
}
