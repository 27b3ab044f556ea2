package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/partquote/internal/history"
	"github.com/philipparndt/partquote/pkg/advisor"
	"github.com/philipparndt/partquote/pkg/cost"
	"github.com/philipparndt/partquote/pkg/mesh"
	"github.com/philipparndt/partquote/pkg/stl"
	"github.com/philipparndt/partquote/pkg/surrogate"
)

func TestEstimateFiles(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, stl.Encode(&buf, "cube", mesh.CenteredBox(10, 10, 10)))
	cube := writeFile(t, dir, "cube.stl", buf.String())

	store, err := history.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer store.Close()

	est := &estimator{backend: surrogate.NewBackend(), recorder: store, material: cost.Aluminum6061}
	paths := []string{cube, "bracket.step", "notes.txt", filepath.Join(dir, "absent.stl")}

	outcomes, err := estimateFiles(context.Background(), est, paths, 2)
	require.EqualError(t, err, "2 of 4 files failed")
	require.Len(t, outcomes, 4)

	for i, o := range outcomes {
		assert.Equal(t, paths[i], o.File, "outcomes keep the argument order")
	}
	assert.Equal(t, 400.0, outcomes[0].Metrics.Volume)
	assert.Equal(t, advisor.ProvenanceAlgorithm, outcomes[0].Method)
	assert.Empty(t, outcomes[1].Error)
	assert.Contains(t, outcomes[2].Error, "unsupported")
	assert.Contains(t, outcomes[3].Error, "failed to read")

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "only successful estimates are recorded")
}

func TestEstimateFilesAllSucceed(t *testing.T) {
	est := &estimator{backend: surrogate.NewBackend(), material: cost.Aluminum6061}

	outcomes, err := estimateFiles(context.Background(), est, []string{"a.step", "b.stp"}, 0)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, surrogate.Estimate("a.step"), *outcomes[0].Metrics)
	assert.Equal(t, surrogate.Estimate("b.stp"), *outcomes[1].Metrics)
}

func TestWriteHistory(t *testing.T) {
	var out bytes.Buffer
	writeHistory(&out, nil)
	assert.Equal(t, "No estimates recorded yet.\n", out.String())

	out.Reset()
	writeHistory(&out, []history.Entry{{
		FileName:   "bracket.stl",
		Material:   cost.Aluminum6061,
		TotalCost:  597.84,
		Complexity: cost.Medium,
		Provenance: advisor.ProvenanceFallback,
		CreatedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local),
	}})

	text := out.String()
	assert.Contains(t, text, "Date")
	assert.Contains(t, text, "2024-05-01 12:00:00")
	assert.Contains(t, text, "bracket.stl")
	assert.Contains(t, text, "597.84")
	assert.Contains(t, text, "algorithm-fallback")
}
