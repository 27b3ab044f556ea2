package openscad

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolveDependencies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.scad"), `use <lib/shapes.scad>
include <./params.scad>
// use <ignored.scad>
cube(size);
`)
	writeFile(t, filepath.Join(dir, "lib", "shapes.scad"), "include <../params.scad>\nmodule s() {}\n")
	writeFile(t, filepath.Join(dir, "params.scad"), "size = 10;\n")

	deps, err := NewRenderer(dir).ResolveDependencies("main.scad")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "main.scad"),
		filepath.Join(dir, "lib", "shapes.scad"),
		filepath.Join(dir, "params.scad"),
	}, deps)
}

func TestResolveDependenciesFallsBackToWorkDir(t *testing.T) {
	work := t.TempDir()
	writeFile(t, filepath.Join(work, "common.scad"), "x = 1;\n")
	writeFile(t, filepath.Join(work, "parts", "arm.scad"), "use <common.scad>\n")

	deps, err := NewRenderer(work).ResolveDependencies(filepath.Join("parts", "arm.scad"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(work, "common.scad"), deps[1])
}

func TestResolveDependenciesMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.scad"), "use <./absent.scad>\n")

	_, err := NewRenderer(dir).ResolveDependencies("main.scad")
	assert.ErrorContains(t, err, "absent.scad")
}

func TestRenderWithoutBinary(t *testing.T) {
	r := NewRenderer(t.TempDir()).WithBinary("partquote-no-such-openscad")
	_, err := r.Render(context.Background(), "part.scad")
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func fakeOpenSCAD(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a unix shell")
	}
	bin := filepath.Join(t.TempDir(), "openscad")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"+script), 0o755))
	return bin
}

func TestRenderReturnsOutput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "part.scad"), "solid part\nendsolid part\n")

	// arguments are: -o <output> <input>
	r := NewRenderer(dir).WithBinary(fakeOpenSCAD(t, `cp "$3" "$2"`+"\n"))
	data, err := r.Render(context.Background(), "part.scad")
	require.NoError(t, err)
	assert.Equal(t, "solid part\nendsolid part\n", string(data))
}

func TestRenderReportsToolOutput(t *testing.T) {
	r := NewRenderer(t.TempDir()).WithBinary(fakeOpenSCAD(t, "echo 'Parser error in line 3' >&2\nexit 1\n"))
	_, err := r.Render(context.Background(), "part.scad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to render part.scad")
	assert.Contains(t, err.Error(), "Parser error in line 3")
}
