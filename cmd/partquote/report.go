package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/philipparndt/partquote/pkg/advisor"
	"github.com/philipparndt/partquote/pkg/analysis"
	"github.com/philipparndt/partquote/pkg/cost"
)

// outcome is the estimate of one file, or why there is none
type outcome struct {
	File     string                    `json:"file"`
	RunID    string                    `json:"runId,omitempty"`
	Metrics  *analysis.GeometryMetrics `json:"geometryMetrics,omitempty"`
	Estimate *cost.Breakdown           `json:"estimate,omitempty"`
	Method   advisor.Provenance        `json:"method,omitempty"`
	Warning  string                    `json:"warning,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

func failedOutcome(file string, err error) outcome {
	return outcome{File: file, Error: err.Error()}
}

func newOutcome(file, runID string, metrics analysis.GeometryMetrics, result advisor.Result) outcome {
	o := outcome{
		File:     file,
		RunID:    runID,
		Metrics:  &metrics,
		Estimate: &result.Breakdown,
		Method:   result.Provenance,
	}
	if result.Err != nil {
		o.Warning = result.Err.Error()
	}
	return o
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReport(w io.Writer, o outcome) {
	fmt.Fprintln(w, o.File)
	if o.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n\n", o.Error)
		return
	}

	m := o.Metrics
	fmt.Fprintf(w, "  Metrics (%s):\n", m.Source)
	fmt.Fprintf(w, "    Volume:       %.2f cm³\n", m.Volume)
	fmt.Fprintf(w, "    Surface Area: %.2f cm²\n", m.SurfaceArea)
	fmt.Fprintf(w, "    Bounding Box: %.1f × %.1f × %.1f mm\n", m.BoundingBox.X, m.BoundingBox.Y, m.BoundingBox.Z)
	fmt.Fprintf(w, "    Faces:        %d\n", m.FaceCount)

	e := o.Estimate
	fmt.Fprintf(w, "  Estimate (%s, %s):\n", e.Material, o.Method)
	fmt.Fprintf(w, "    Material:     $%10.2f\n", e.MaterialCost)
	fmt.Fprintf(w, "    Machining:    $%10.2f\n", e.MachiningCost)
	fmt.Fprintf(w, "    Setup:        $%10.2f\n", e.SetupCost)
	fmt.Fprintf(w, "    Finishing:    $%10.2f\n", e.FinishingCost)
	fmt.Fprintf(w, "    Total:        $%10.2f\n", e.TotalCost)
	fmt.Fprintf(w, "    Time:         %s\n", e.EstimatedTime)
	fmt.Fprintf(w, "    Complexity:   %s\n", e.Complexity)
	if o.Warning != "" {
		fmt.Fprintf(w, "  Warning: %s\n", o.Warning)
	}
	fmt.Fprintln(w)
}
