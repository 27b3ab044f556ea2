package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/partquote/internal/history"
	"github.com/philipparndt/partquote/pkg/advisor"
	"github.com/philipparndt/partquote/pkg/analysis"
	"github.com/philipparndt/partquote/pkg/cost"
	"github.com/philipparndt/partquote/pkg/surrogate"
)

// gatedEstimator holds its first call until release is closed
type gatedEstimator struct {
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func newGatedEstimator() *gatedEstimator {
	return &gatedEstimator{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedEstimator) Estimate(ctx context.Context, metrics analysis.GeometryMetrics, material string) advisor.Result {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()

	if first {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
		}
	}
	return advisor.Result{
		Breakdown:  cost.NewModel(nil).Estimate(metrics, material),
		Provenance: advisor.ProvenanceAI,
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// reportsFor counts the reports headed by file
func reportsFor(text, file string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if line == file {
			n++
		}
	}
	return n
}

func TestScadOwnersSharedDependency(t *testing.T) {
	dir := t.TempDir()
	lib := writeFile(t, dir, "lib.scad", "module peg() { cube(1); }\n")
	a := writeFile(t, dir, "a.scad", "use <lib.scad>\npeg();\n")
	b := writeFile(t, dir, "b.scad", "include <lib.scad>\npeg();\n")

	owners, watched, err := scadOwners([]string{a, b, filepath.Join(dir, "part.stl")})
	require.NoError(t, err)

	assert.Equal(t, []string{a, b}, owners[lib])
	assert.Equal(t, []string{a}, owners[a])
	assert.Equal(t, []string{b}, owners[b])
	assert.Equal(t, []string{a, lib, b}, watched)
}

func TestScadOwnersMissingDependency(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.scad", "use <./absent.scad>\n")

	_, _, err := scadOwners([]string{a})
	assert.Error(t, err)
}

func TestWatchSessionProcessesEveryOwner(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.scad")
	owners := map[string][]string{
		lib: {filepath.Join(dir, "a.scad"), filepath.Join(dir, "b.scad")},
	}

	var out bytes.Buffer
	est := &estimator{backend: surrogate.NewBackend(), material: cost.Aluminum6061}
	s := newWatchSession(est, owners, &out)
	s.changed(context.Background(), lib)

	assert.Equal(t, 1, reportsFor(out.String(), owners[lib][0]))
	assert.Equal(t, 1, reportsFor(out.String(), owners[lib][1]))
	assert.Equal(t, 0, reportsFor(out.String(), lib))
}

func TestWatchSessionDropsSupersededEstimate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bracket.step")
	store, err := history.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer store.Close()

	gate := newGatedEstimator()
	est := &estimator{
		backend:  surrogate.NewBackend(),
		advisor:  gate,
		recorder: store,
		material: cost.Aluminum6061,
	}
	var out bytes.Buffer
	s := newWatchSession(est, nil, &out)
	ctx := context.Background()

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		s.changed(ctx, path)
	}()

	<-gate.entered
	s.changed(ctx, path)
	close(gate.release)
	<-firstDone

	assert.Equal(t, 1, reportsFor(out.String(), path), "only the newest change is reported")
	assert.Contains(t, out.String(), "Estimate (Aluminum 6061, ai)")

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWatchSessionReportsFailures(t *testing.T) {
	var out bytes.Buffer
	est := &estimator{backend: surrogate.NewBackend(), material: cost.Aluminum6061}
	s := newWatchSession(est, nil, &out)

	s.changed(context.Background(), filepath.Join(t.TempDir(), "absent.stl"))
	assert.Contains(t, out.String(), "absent.stl\n  Error: failed to read")
}
