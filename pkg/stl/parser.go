package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/philipparndt/partquote/pkg/geometry"
	"github.com/philipparndt/partquote/pkg/mesh"
)

const (
	headerSize      = 80
	countSize       = 4
	triangleSize    = 50 // normal + 3 vertices as float32, plus the attribute word
	maxASCIILineLen = 1024 * 1024
)

// ReadFile reads an STL file and decodes it
func ReadFile(filename string) (*Model, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Decode(data)
}

// Read decodes an STL stream
func Read(r io.Reader) (*Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read stl data: %w", err)
	}
	return Decode(data)
}

// Decode turns raw STL bytes into a model.
// It automatically detects whether the data is ASCII or binary.
func Decode(data []byte) (*Model, error) {
	if isASCII(data) {
		return decodeASCII(data)
	}
	return decodeBinary(data)
}

// isASCII reports whether data should be read as text. Some exporters write
// "solid" into binary headers, so a size that matches the binary layout
// exactly wins over the prefix.
func isASCII(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) < 5 || !strings.EqualFold(string(trimmed[:5]), "solid") {
		return false
	}
	if len(data) < headerSize+countSize {
		return true
	}
	count := binary.LittleEndian.Uint32(data[headerSize:])
	return uint64(len(data)) != uint64(headerSize+countSize)+uint64(count)*triangleSize
}

// decodeBinary decodes the little-endian binary layout
func decodeBinary(data []byte) (*Model, error) {
	if len(data) < headerSize+countSize {
		return nil, decodeErrorf(ErrMalformedHeader, 0, "need %d bytes, got %d", headerSize+countSize, len(data))
	}

	reader := bytes.NewReader(data)
	var header struct {
		Name  [headerSize]byte
		Count uint32
	}
	if err := binary.Read(reader, binary.LittleEndian, &header); err != nil {
		return nil, decodeErrorf(ErrMalformedHeader, 0, "%v", err)
	}

	if header.Count == 0 {
		return nil, decodeErrorf(ErrNoTriangles, 0, "header declares no triangles")
	}
	need := uint64(header.Count) * triangleSize
	if have := uint64(reader.Len()); have < need {
		return nil, decodeErrorf(ErrTruncated, 0, "%d triangles need %d bytes, got %d", header.Count, need, have)
	}

	positions := make([]float32, 0, int(header.Count)*9)
	normals := make([]float32, 0, int(header.Count)*9)
	normalsUsable := true

	var facet struct {
		Normal    [3]float32
		Vertices  [9]float32
		Attribute uint16
	}
	for i := uint32(0); i < header.Count; i++ {
		if err := binary.Read(reader, binary.LittleEndian, &facet); err != nil {
			return nil, decodeErrorf(ErrTruncated, 0, "failed to read triangle %d: %v", i, err)
		}

		for v := 0; v < 9; v += 3 {
			vertex := geometry.NewVector3(float64(facet.Vertices[v]), float64(facet.Vertices[v+1]), float64(facet.Vertices[v+2]))
			if !vertex.IsFinite() {
				return nil, decodeErrorf(ErrNonFinite, 0, "triangle %d vertex %d", i, v/3)
			}
		}
		positions = append(positions, facet.Vertices[:]...)
		if normalsUsable {
			if usableNormal(facet.Normal) {
				for v := 0; v < 3; v++ {
					normals = append(normals, facet.Normal[:]...)
				}
			} else {
				normalsUsable = false
				normals = nil
			}
		}
	}

	buf, err := mesh.New(positions, normals, nil)
	if err != nil {
		return nil, decodeErrorf(ErrMalformedHeader, 0, "%v", err)
	}

	return &Model{
		Name:   strings.TrimSpace(string(bytes.TrimRight(header.Name[:], "\x00"))),
		Format: FormatBinary,
		Mesh:   buf,
	}, nil
}

// usableNormal reports whether a stored facet normal is finite and non-zero
func usableNormal(n [3]float32) bool {
	v := geometry.NewVector3(float64(n[0]), float64(n[1]), float64(n[2]))
	return v.IsFinite() && v.Length() > 1e-12
}

// asciiState tracks where the line grammar is inside a solid
type asciiState int

const (
	stateOutside asciiState = iota // before "solid" or after "endsolid"
	stateSolid                     // between facets
	stateFacet                     // after "facet normal", expecting "outer loop"
	stateLoop                      // reading vertices
	stateEndLoop                   // after "endloop", expecting "endfacet"
)

// decodeASCII decodes the line-oriented text grammar
func decodeASCII(data []byte) (*Model, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), maxASCIILineLen)

	model := &Model{Format: FormatASCII}
	var (
		positions     []float32
		normals       []float32
		normalsUsable = true
		facetNormal   [3]float32
		vertices      []float32
		state         = stateOutside
		lineNo        int
		facets        int
	)

	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		keyword := strings.ToLower(fields[0])

		switch {
		case keyword == "solid" && state == stateOutside:
			if model.Name == "" && len(fields) > 1 {
				model.Name = strings.Join(fields[1:], " ")
			}
			state = stateSolid

		case keyword == "endsolid" && state == stateSolid:
			state = stateOutside

		case keyword == "facet" && state == stateSolid:
			if len(fields) != 5 || !strings.EqualFold(fields[1], "normal") {
				return nil, decodeErrorf(ErrSyntax, lineNo, "expected 'facet normal nx ny nz'")
			}
			n, err := parseTriple(fields[2:], lineNo)
			if err != nil {
				return nil, err
			}
			facetNormal = n
			vertices = vertices[:0]
			state = stateFacet

		case keyword == "outer" && state == stateFacet:
			if len(fields) != 2 || !strings.EqualFold(fields[1], "loop") {
				return nil, decodeErrorf(ErrSyntax, lineNo, "expected 'outer loop'")
			}
			state = stateLoop

		case keyword == "vertex" && state == stateLoop:
			if len(fields) != 4 {
				return nil, decodeErrorf(ErrSyntax, lineNo, "expected 'vertex x y z'")
			}
			if len(vertices) == 9 {
				return nil, decodeErrorf(ErrSyntax, lineNo, "facet has more than 3 vertices")
			}
			v, err := parseTriple(fields[1:], lineNo)
			if err != nil {
				return nil, err
			}
			vertices = append(vertices, v[:]...)

		case keyword == "endloop" && state == stateLoop:
			if len(vertices) != 9 {
				return nil, decodeErrorf(ErrSyntax, lineNo, "facet has %d vertices, want 3", len(vertices)/3)
			}
			state = stateEndLoop

		case keyword == "endfacet" && state == stateEndLoop:
			positions = append(positions, vertices...)
			if normalsUsable {
				if usableNormal(facetNormal) {
					for v := 0; v < 3; v++ {
						normals = append(normals, facetNormal[:]...)
					}
				} else {
					normalsUsable = false
					normals = nil
				}
			}
			facets++
			state = stateSolid

		default:
			return nil, decodeErrorf(ErrSyntax, lineNo, "unexpected %q", fields[0])
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, decodeErrorf(ErrSyntax, lineNo, "failed to read line: %v", err)
	}
	if state != stateOutside && state != stateSolid {
		return nil, decodeErrorf(ErrTruncated, lineNo, "input ends inside a facet")
	}
	if facets == 0 {
		return nil, decodeErrorf(ErrNoTriangles, 0, "no facets found")
	}

	buf, err := mesh.New(positions, normals, nil)
	if err != nil {
		return nil, decodeErrorf(ErrSyntax, 0, "%v", err)
	}
	model.Mesh = buf
	return model, nil
}

// parseTriple parses three whitespace-delimited numeric tokens
func parseTriple(tokens []string, lineNo int) ([3]float32, error) {
	var out [3]float32
	for i, tok := range tokens[:3] {
		f, err := strconv.ParseFloat(tok, 32)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return out, decodeErrorf(ErrSyntax, lineNo, "malformed number %q", tok)
		}
		out[i] = float32(f)
	}
	return out, nil
}
