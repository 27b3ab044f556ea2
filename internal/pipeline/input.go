package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/philipparndt/partquote/pkg/mesh"
)

// Format is the kind of part file supplied to the pipeline
type Format int

const (
	FormatUnknown Format = iota
	// FormatMesh is a triangle mesh that is decoded for real
	FormatMesh
	// FormatSolid is a boundary representation that goes to the surrogate
	FormatSolid
)

func (f Format) String() string {
	switch f {
	case FormatMesh:
		return "mesh"
	case FormatSolid:
		return "solid"
	default:
		return "unknown"
	}
}

// DetectFormat maps a file name to its format by extension
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".stl":
		return FormatMesh
	case ".step", ".stp":
		return FormatSolid
	default:
		return FormatUnknown
	}
}

// Input is a part file handed to Select. A zero Format is detected from the
// name.
type Input struct {
	Name   string
	Data   []byte
	Format Format
}

// UnsupportedFormatError is returned by Select for files the pipeline cannot
// route
type UnsupportedFormatError struct {
	Name string
}

func (e *UnsupportedFormatError) Error() string {
	ext := filepath.Ext(e.Name)
	if ext == "" {
		return fmt.Sprintf("unsupported file %q: missing extension", e.Name)
	}
	return fmt.Sprintf("unsupported file %q: %s is not .stl, .step or .stp", e.Name, ext)
}

// ParsedInput is the outcome of the parsing stage, either RealMesh or
// SyntheticInput
type ParsedInput interface {
	parsedInput()
}

// RealMesh is a decoded triangle mesh
type RealMesh struct {
	Name string
	Mesh *mesh.Buffer
}

// SyntheticInput stands in for a solid that is not parsed
type SyntheticInput struct {
	FileName string
	Seed     int
}

func (RealMesh) parsedInput()       {}
func (SyntheticInput) parsedInput() {}
