package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/philipparndt/partquote/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitTriangle() []float32 {
	return []float32{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
	}
}

func TestNewRejectsInvalidLayout(t *testing.T) {
	tests := []struct {
		name      string
		positions []float32
		normals   []float32
		indices   []uint32
	}{
		{"positions not xyz", []float32{0, 0}, nil, nil},
		{"partial triangle", []float32{0, 0, 0, 1, 1, 1}, nil, nil},
		{"normals length mismatch", unitTriangle(), []float32{0, 0, 1}, nil},
		{"index count not triangles", unitTriangle(), nil, []uint32{0, 1}},
		{"index out of range", unitTriangle(), nil, []uint32{0, 1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.positions, tt.normals, tt.indices)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidBuffer))
		})
	}
}

func TestNewCopiesInput(t *testing.T) {
	positions := unitTriangle()
	buf, err := New(positions, nil, nil)
	require.NoError(t, err)

	positions[0] = 42
	assert.Equal(t, float32(0), buf.Positions()[0])

	out := buf.Positions()
	out[1] = 42
	assert.Equal(t, float32(0), buf.Positions()[1])
}

func TestTriangleCount(t *testing.T) {
	nonIndexed, err := New(append(unitTriangle(), unitTriangle()...), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, nonIndexed.TriangleCount())
	assert.False(t, nonIndexed.IsIndexed())

	indexed, err := New(unitTriangle(), nil, []uint32{0, 1, 2, 2, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, indexed.TriangleCount())
	assert.Equal(t, 3, indexed.VertexCount())
	assert.Equal(t, [3]int{2, 1, 0}, indexed.TriangleVertices(1))
}

func TestComputeVertexNormals(t *testing.T) {
	buf, err := New(unitTriangle(), nil, nil)
	require.NoError(t, err)
	assert.False(t, buf.HasNormals())

	withNormals := ComputeVertexNormals(buf)
	require.True(t, withNormals.HasNormals())
	assert.False(t, buf.HasNormals(), "source buffer must stay unchanged")

	normals := withNormals.Normals()
	require.Len(t, normals, 9)
	for v := 0; v < 3; v++ {
		assert.Equal(t, []float32{0, 0, 1}, normals[v*3:v*3+3])
	}
}

func TestComputeVertexNormalsAveragesFaces(t *testing.T) {
	// Two faces sharing the edge 0-1, one facing +Z and one facing -Y
	positions := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
		0, 0, -1,
	}
	buf, err := New(positions, nil, []uint32{0, 1, 2, 0, 3, 1})
	require.NoError(t, err)

	normals := ComputeVertexNormals(buf).Normals()
	shared := geometry.FromFloat32(normals, 0)
	expected := geometry.NewVector3(0, -1, 1).Normalize()

	assert.InDelta(t, expected.X, shared.X, 1e-6)
	assert.InDelta(t, expected.Y, shared.Y, 1e-6)
	assert.InDelta(t, expected.Z, shared.Z, 1e-6)
}

func TestBoxPrimitive(t *testing.T) {
	box := CenteredBox(2, 1, 0.8)

	assert.Equal(t, 12, box.TriangleCount())
	assert.Equal(t, 8, box.VertexCount())
	assert.True(t, box.HasNormals())

	size := box.BoundingBox().Size()
	assert.InDelta(t, 2.0, size.X, 1e-6)
	assert.InDelta(t, 1.0, size.Y, 1e-6)
	assert.InDelta(t, 0.8, size.Z, 1e-6)

	// Every face normal points away from the center
	for i := 0; i < box.TriangleCount(); i++ {
		tri := box.Triangle(i)
		outward := tri.Center().Normalize()
		assert.Greater(t, tri.CalculateNormal().Dot(outward), 0.0, "triangle %d faces inward", i)
	}
}

func TestPrimitivesAreValid(t *testing.T) {
	shapes := map[string]*Buffer{
		"cylinder": Cylinder(0.5, 2, 32),
		"cone":     Cone(0.8, 2, 32),
		"sphere":   Sphere(1, 32, 32),
		"torus":    Torus(1, 0.3, 16, 32),
		"merged":   Merge(CenteredBox(1, 1, 1), Box(geometry.NewVector3(2, 2, 2), geometry.NewVector3(3, 3, 3))),
	}

	for name, shape := range shapes {
		t.Run(name, func(t *testing.T) {
			_, err := New(shape.Positions(), shape.Normals(), shape.Indices())
			require.NoError(t, err)
			assert.Greater(t, shape.TriangleCount(), 0)

			for _, n := range shape.Normals() {
				assert.False(t, math.IsNaN(float64(n)))
			}
		})
	}
}

func TestSphereExtents(t *testing.T) {
	sphere := Sphere(1, 16, 8)
	size := sphere.BoundingBox().Size()

	assert.InDelta(t, 2.0, size.Y, 1e-6)
	assert.InDelta(t, 2.0, size.X, 1e-6)
}
