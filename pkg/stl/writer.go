package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/philipparndt/partquote/pkg/geometry"
	"github.com/philipparndt/partquote/pkg/mesh"
)

// Encode writes the mesh as a binary STL. Indexed meshes are expanded into
// one facet per triangle.
func Encode(w io.Writer, name string, buf *mesh.Buffer) error {
	var header struct {
		Name  [headerSize]byte
		Count uint32
	}
	copy(header.Name[:], name)
	header.Count = uint32(buf.TriangleCount())

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	var facet struct {
		Normal    [3]float32
		Vertices  [9]float32
		Attribute uint16
	}
	for i := 0; i < buf.TriangleCount(); i++ {
		tri := buf.Triangle(i)
		facet.Normal = [3]float32{float32(tri.Normal.X), float32(tri.Normal.Y), float32(tri.Normal.Z)}
		for v, p := range []geometry.Vector3{tri.V1, tri.V2, tri.V3} {
			facet.Vertices[v*3+0] = float32(p.X)
			facet.Vertices[v*3+1] = float32(p.Y)
			facet.Vertices[v*3+2] = float32(p.Z)
		}
		if err := binary.Write(bw, binary.LittleEndian, &facet); err != nil {
			return fmt.Errorf("failed to write triangle %d: %w", i, err)
		}
	}

	return bw.Flush()
}

// EncodeASCII writes the mesh using the text grammar
func EncodeASCII(w io.Writer, name string, buf *mesh.Buffer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "solid %s\n", name)
	for i := 0; i < buf.TriangleCount(); i++ {
		tri := buf.Triangle(i)
		fmt.Fprintf(bw, "  facet normal %g %g %g\n", tri.Normal.X, tri.Normal.Y, tri.Normal.Z)
		fmt.Fprintln(bw, "    outer loop")
		for _, v := range []geometry.Vector3{tri.V1, tri.V2, tri.V3} {
			fmt.Fprintf(bw, "      vertex %g %g %g\n", v.X, v.Y, v.Z)
		}
		fmt.Fprintln(bw, "    endloop")
		fmt.Fprintln(bw, "  endfacet")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)
	return bw.Flush()
}
