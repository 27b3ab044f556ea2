package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/philipparndt/partquote/internal/history"
	"github.com/philipparndt/partquote/internal/pipeline"
	"github.com/philipparndt/partquote/pkg/advisor"
	"github.com/philipparndt/partquote/pkg/cost"
	"github.com/philipparndt/partquote/pkg/openscad"
	"github.com/philipparndt/partquote/pkg/stl"
)

func isSCAD(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".scad")
}

// loadPart reads a part file into a pipeline input. OpenSCAD sources are
// rendered to STL first. Solid files are not read, only their name is used.
func loadPart(ctx context.Context, path string) (pipeline.Input, error) {
	if isSCAD(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return pipeline.Input{}, fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		data, err := openscad.NewRenderer(filepath.Dir(absPath)).Render(ctx, absPath)
		if err != nil {
			return pipeline.Input{}, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".stl"
		return pipeline.Input{Name: name, Data: data, Format: pipeline.FormatMesh}, nil
	}

	in := pipeline.Input{Name: filepath.Base(path), Format: pipeline.DetectFormat(path)}
	switch in.Format {
	case pipeline.FormatUnknown:
		return in, &pipeline.UnsupportedFormatError{Name: in.Name}
	case pipeline.FormatMesh:
		data, err := os.ReadFile(path)
		if err != nil {
			return in, fmt.Errorf("failed to read %s: %w", path, err)
		}
		in.Data = data
	}
	return in, nil
}

// loadMesh decodes a mesh file for the inspection commands
func loadMesh(ctx context.Context, path string) (*stl.Model, error) {
	in, err := loadPart(ctx, path)
	if err != nil {
		return nil, err
	}
	if in.Format != pipeline.FormatMesh {
		return nil, fmt.Errorf("%s is not a mesh file, only STL and OpenSCAD files can be inspected", in.Name)
	}
	model, err := stl.Decode(in.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return model, nil
}

// newAdvisor builds the advisor from the config. noAI skips the language model.
func newAdvisor(noAI bool) *advisor.Advisor {
	if noAI {
		return advisor.New(nil, cost.NewModel(cfg.Rates()), advisor.WithLogger(componentLogger("advisor")))
	}
	return cfg.NewAdvisor(advisor.WithLogger(componentLogger("advisor")))
}

// openHistory opens the history store, or returns nil when it is disabled or
// cannot be opened
func openHistory() *history.Store {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("history disabled")
		return nil
	}
	return store
}

func resolveMaterial(material string) string {
	if material == "" {
		material = cfg.DefaultMaterial
	}
	if _, ok := cfg.Rates().Rate(material); !ok {
		logger.Warn().Str("material", material).Float64("rate", cost.DefaultRate).Msg("unknown material, using the default rate")
	}
	return material
}
