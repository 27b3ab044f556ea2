package mesh

import (
	"math"

	"github.com/philipparndt/partquote/pkg/geometry"
)

// builder accumulates an indexed mesh; build computes the normals
type builder struct {
	positions []float32
	indices   []uint32
}

func (b *builder) vertex(v geometry.Vector3) uint32 {
	idx := uint32(len(b.positions) / 3)
	b.positions = append(b.positions, float32(v.X), float32(v.Y), float32(v.Z))
	return idx
}

func (b *builder) tri(a, c, d uint32) {
	b.indices = append(b.indices, a, c, d)
}

func (b *builder) quad(a, c, d, e uint32) {
	b.tri(a, c, d)
	b.tri(a, d, e)
}

func (b *builder) build() *Buffer {
	return ComputeVertexNormals(&Buffer{positions: b.positions, indices: b.indices})
}

// Box creates an axis-aligned box spanning min to max with outward winding
func Box(min, max geometry.Vector3) *Buffer {
	var b builder
	var c [8]uint32
	for i := range c {
		p := min
		if i&1 != 0 {
			p.X = max.X
		}
		if i&2 != 0 {
			p.Y = max.Y
		}
		if i&4 != 0 {
			p.Z = max.Z
		}
		c[i] = b.vertex(p)
	}

	b.quad(c[0], c[2], c[3], c[1]) // -Z
	b.quad(c[4], c[5], c[7], c[6]) // +Z
	b.quad(c[0], c[1], c[5], c[4]) // -Y
	b.quad(c[2], c[6], c[7], c[3]) // +Y
	b.quad(c[0], c[4], c[6], c[2]) // -X
	b.quad(c[1], c[3], c[7], c[5]) // +X
	return b.build()
}

// CenteredBox creates a box of the given size centered on the origin
func CenteredBox(width, height, depth float64) *Buffer {
	half := geometry.NewVector3(width/2, height/2, depth/2)
	return Box(half.Mul(-1), half)
}

// Frustum creates a capped truncated cone along the Y axis centered on the
// origin. A zero top radius collapses the top ring into a single apex.
func Frustum(radiusTop, radiusBottom, height float64, segments int) *Buffer {
	if segments < 3 {
		segments = 3
	}
	var b builder
	y0, y1 := -height/2, height/2

	ring := func(radius, y float64) []uint32 {
		idx := make([]uint32, segments)
		for i := range idx {
			theta := 2 * math.Pi * float64(i) / float64(segments)
			idx[i] = b.vertex(geometry.NewVector3(radius*math.Cos(theta), y, radius*math.Sin(theta)))
		}
		return idx
	}

	bottom := ring(radiusBottom, y0)
	bottomCenter := b.vertex(geometry.NewVector3(0, y0, 0))

	if radiusTop == 0 {
		apex := b.vertex(geometry.NewVector3(0, y1, 0))
		for i := 0; i < segments; i++ {
			next := (i + 1) % segments
			b.tri(bottom[i], apex, bottom[next])
			b.tri(bottomCenter, bottom[i], bottom[next])
		}
		return b.build()
	}

	top := ring(radiusTop, y1)
	topCenter := b.vertex(geometry.NewVector3(0, y1, 0))
	for i := 0; i < segments; i++ {
		next := (i + 1) % segments
		b.quad(bottom[i], top[i], top[next], bottom[next])
		b.tri(topCenter, top[next], top[i])
		b.tri(bottomCenter, bottom[i], bottom[next])
	}
	return b.build()
}

// Cylinder creates a capped cylinder along the Y axis
func Cylinder(radius, height float64, segments int) *Buffer {
	return Frustum(radius, radius, height, segments)
}

// Cone creates a capped cone along the Y axis with its apex at +Y
func Cone(radius, height float64, segments int) *Buffer {
	return Frustum(0, radius, height, segments)
}

// Sphere creates a UV sphere centered on the origin
func Sphere(radius float64, widthSegments, heightSegments int) *Buffer {
	if widthSegments < 3 {
		widthSegments = 3
	}
	if heightSegments < 2 {
		heightSegments = 2
	}
	var b builder
	row := widthSegments + 1

	for j := 0; j <= heightSegments; j++ {
		phi := math.Pi * float64(j) / float64(heightSegments)
		for i := 0; i <= widthSegments; i++ {
			theta := 2 * math.Pi * float64(i) / float64(widthSegments)
			b.vertex(geometry.NewVector3(
				radius*math.Sin(phi)*math.Cos(theta),
				radius*math.Cos(phi),
				radius*math.Sin(phi)*math.Sin(theta),
			))
		}
	}

	for j := 0; j < heightSegments; j++ {
		for i := 0; i < widthSegments; i++ {
			a := uint32(j*row + i)
			d := a + 1
			bl := uint32((j+1)*row + i)
			c := bl + 1
			// Skip the triangle that collapses at each pole
			if j != 0 {
				b.tri(a, d, c)
			}
			if j != heightSegments-1 {
				b.tri(a, c, bl)
			}
		}
	}
	return b.build()
}

// Torus creates a torus around the Z axis
func Torus(radius, tube float64, radialSegments, tubularSegments int) *Buffer {
	if radialSegments < 3 {
		radialSegments = 3
	}
	if tubularSegments < 3 {
		tubularSegments = 3
	}
	var b builder
	row := tubularSegments + 1

	for j := 0; j <= radialSegments; j++ {
		v := 2 * math.Pi * float64(j) / float64(radialSegments)
		for i := 0; i <= tubularSegments; i++ {
			u := 2 * math.Pi * float64(i) / float64(tubularSegments)
			b.vertex(geometry.NewVector3(
				(radius+tube*math.Cos(v))*math.Cos(u),
				(radius+tube*math.Cos(v))*math.Sin(u),
				tube*math.Sin(v),
			))
		}
	}

	for j := 0; j < radialSegments; j++ {
		for i := 0; i < tubularSegments; i++ {
			a := uint32(j*row + i)
			d := a + 1
			bl := uint32((j+1)*row + i)
			c := bl + 1
			b.tri(a, d, bl)
			b.tri(bl, d, c)
		}
	}
	return b.build()
}

// Merge concatenates indexed buffers into one. Normals are recomputed.
func Merge(buffers ...*Buffer) *Buffer {
	var b builder
	for _, buf := range buffers {
		offset := uint32(len(b.positions) / 3)
		b.positions = append(b.positions, buf.positions...)
		for i := 0; i < buf.TriangleCount(); i++ {
			vs := buf.TriangleVertices(i)
			b.tri(offset+uint32(vs[0]), offset+uint32(vs[1]), offset+uint32(vs[2]))
		}
	}
	return b.build()
}
