package surrogate

import (
	"strings"
	"sync"

	"github.com/philipparndt/partquote/pkg/geometry"
	"github.com/philipparndt/partquote/pkg/mesh"
)

// Shape is the template family a file name is classified into
type Shape string

const (
	ShapeBracket  Shape = "bracket"
	ShapeCylinder Shape = "cylinder"
	ShapeSphere   Shape = "sphere"
	ShapeTorus    Shape = "torus"
	ShapeCone     Shape = "cone"
	ShapeBox      Shape = "box"
)

// classification is checked in order, the first keyword match wins
var classification = []struct {
	shape    Shape
	keywords []string
}{
	{ShapeBracket, []string{"bracket"}},
	{ShapeCylinder, []string{"shaft", "cylinder"}},
	{ShapeSphere, []string{"sphere", "ball"}},
	{ShapeTorus, []string{"torus", "ring"}},
	{ShapeCone, []string{"cone"}},
}

// Backend holds the preview templates for surrogate inputs. Create it once
// with NewBackend and share it; it is safe for concurrent use.
type Backend struct {
	once      sync.Once
	templates map[Shape]*mesh.Buffer
}

// NewBackend creates a backend. Templates are built on first use.
func NewBackend() *Backend {
	return &Backend{}
}

func (b *Backend) init() {
	b.once.Do(func() {
		b.templates = map[Shape]*mesh.Buffer{
			ShapeBracket: mesh.Merge(
				mesh.Box(geometry.NewVector3(0, 0, 0), geometry.NewVector3(2, 0.2, 0.15)),
				mesh.Box(geometry.NewVector3(0, 0.2, 0), geometry.NewVector3(0.2, 1.5, 0.15)),
			),
			ShapeCylinder: mesh.Cylinder(0.5, 2, 32),
			ShapeSphere:   mesh.Sphere(1, 32, 32),
			ShapeTorus:    mesh.Torus(1, 0.3, 16, 32),
			ShapeCone:     mesh.Cone(0.8, 2, 32),
			ShapeBox:      mesh.CenteredBox(2, 1, 0.8),
		}
	})
}

// Classify maps a file name to a template shape
func Classify(name string) Shape {
	lower := strings.ToLower(name)
	for _, c := range classification {
		for _, keyword := range c.keywords {
			if strings.Contains(lower, keyword) {
				return c.shape
			}
		}
	}
	return ShapeBox
}

// Preview returns the template mesh for a file name. Buffers are immutable,
// so the same template is handed to every caller.
func (b *Backend) Preview(name string) *mesh.Buffer {
	b.init()
	return b.templates[Classify(name)]
}
