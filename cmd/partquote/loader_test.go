package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/partquote/internal/pipeline"
	"github.com/philipparndt/partquote/pkg/advisor"
	"github.com/philipparndt/partquote/pkg/analysis"
	"github.com/philipparndt/partquote/pkg/cost"
	"github.com/philipparndt/partquote/pkg/mesh"
	"github.com/philipparndt/partquote/pkg/stl"
)

func TestLoadPart(t *testing.T) {
	dir := t.TempDir()
	meshPath := filepath.Join(dir, "Cube.STL")
	var buf bytes.Buffer
	require.NoError(t, stl.Encode(&buf, "cube", mesh.CenteredBox(1, 2, 3)))
	require.NoError(t, os.WriteFile(meshPath, buf.Bytes(), 0o644))

	in, err := loadPart(context.Background(), meshPath)
	require.NoError(t, err)
	assert.Equal(t, pipeline.FormatMesh, in.Format)
	assert.Equal(t, "Cube.STL", in.Name)
	assert.Equal(t, buf.Bytes(), in.Data)

	in, err = loadPart(context.Background(), filepath.Join(dir, "absent.step"))
	require.NoError(t, err, "solid files are not read")
	assert.Equal(t, pipeline.FormatSolid, in.Format)
	assert.Nil(t, in.Data)

	_, err = loadPart(context.Background(), filepath.Join(dir, "notes.txt"))
	var unsupported *pipeline.UnsupportedFormatError
	assert.ErrorAs(t, err, &unsupported)

	_, err = loadPart(context.Background(), filepath.Join(dir, "absent.stl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadMeshRejectsSolids(t *testing.T) {
	_, err := loadMesh(context.Background(), "bracket.step")
	assert.ErrorContains(t, err, "not a mesh file")
}

func TestIsPartFile(t *testing.T) {
	for path, want := range map[string]bool{
		"a.stl":  true,
		"a.STEP": true,
		"a.stp":  true,
		"a.scad": true,
		"a.obj":  false,
		"a":      false,
	} {
		assert.Equal(t, want, isPartFile(path), path)
	}
}

func TestWriteReport(t *testing.T) {
	metrics := analysis.GeometryMetrics{
		Volume:      245.67,
		SurfaceArea: 1596.86,
		BoundingBox: analysis.Extents{X: 100, Y: 80, Z: 40},
		FaceCount:   24,
		Source:      analysis.SourceMesh,
	}
	result := advisor.Result{
		Breakdown:  cost.NewModel(nil).Estimate(metrics, cost.Aluminum6061),
		Provenance: advisor.ProvenanceAlgorithm,
	}

	var out bytes.Buffer
	writeReport(&out, newOutcome("bracket.stl", "run-1", metrics, result))

	text := out.String()
	assert.Contains(t, text, "bracket.stl\n")
	assert.Contains(t, text, "Metrics (mesh-heuristic)")
	assert.Contains(t, text, "Bounding Box: 100.0 × 80.0 × 40.0 mm")
	assert.Contains(t, text, "Estimate (Aluminum 6061, algorithm)")
	assert.Contains(t, text, "Total:        $    597.84")
	assert.Contains(t, text, "Time:         4.8 hours")
	assert.NotContains(t, text, "Warning")

	out.Reset()
	writeReport(&out, outcome{File: "broken.stl", Error: "stl: truncated buffer"})
	assert.Equal(t, "broken.stl\n  Error: stl: truncated buffer\n\n", out.String())
}
