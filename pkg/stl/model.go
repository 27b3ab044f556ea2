package stl

import (
	"errors"
	"fmt"

	"github.com/philipparndt/partquote/pkg/mesh"
)

// Format identifies the STL encoding a model was decoded from
type Format string

const (
	FormatBinary Format = "binary"
	FormatASCII  Format = "ascii"
)

// Model is a decoded STL file
type Model struct {
	Name   string
	Format Format
	Mesh   *mesh.Buffer
}

// TriangleCount returns the number of triangles in the model
func (m *Model) TriangleCount() int {
	return m.Mesh.TriangleCount()
}

// Decode failure reasons. A DecodeError matches its reason with errors.Is.
var (
	ErrMalformedHeader = errors.New("malformed header")
	ErrTruncated       = errors.New("truncated buffer")
	ErrNoTriangles     = errors.New("zero triangles")
	ErrSyntax          = errors.New("syntax error")
	ErrNonFinite       = errors.New("non-finite vertex")
)

// DecodeError reports why STL bytes could not be turned into a mesh
type DecodeError struct {
	Reason error
	Line   int // 1-based line for ASCII input, 0 otherwise
	Detail string
}

func (e *DecodeError) Error() string {
	msg := "stl: " + e.Reason.Error()
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Reason
}

func decodeErrorf(reason error, line int, format string, args ...any) *DecodeError {
	return &DecodeError{Reason: reason, Line: line, Detail: fmt.Sprintf(format, args...)}
}
