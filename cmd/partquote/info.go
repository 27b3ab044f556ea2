package main

import (
	"fmt"

	"github.com/philipparndt/partquote/pkg/analysis"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display general information about a mesh file",
	Long: `Show dimensions, triangle count, measured surface area and edge statistics,
next to the manufacturing metrics the cost estimate is based on.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]

	model, err := loadMesh(cmd.Context(), filename)
	if err != nil {
		return err
	}

	stats := analysis.AnalyzeEdges(model.Mesh)
	metrics := analysis.Calculate(model.Mesh)

	fmt.Println("Part Information")
	fmt.Println("================")
	if model.Name != "" {
		fmt.Printf("Name: %s\n", model.Name)
	}
	fmt.Printf("File: %s\n", filename)
	fmt.Printf("Format: %s\n\n", model.Format)

	fmt.Println("Mesh Statistics:")
	fmt.Printf("  Triangles: %d\n", stats.TriangleCount)
	fmt.Printf("  Edges: %d\n", stats.EdgeCount)
	fmt.Printf("  Normals: %t\n", model.Mesh.HasNormals())
	fmt.Printf("  Measured Surface Area: %s\n\n", analysis.FormatMeasurement(stats.MeasuredArea, "mm²"))

	fmt.Println("Bounding Box:")
	fmt.Printf("  Min: %s\n", analysis.FormatVector(stats.BoundingBox.Min))
	fmt.Printf("  Max: %s\n", analysis.FormatVector(stats.BoundingBox.Max))
	fmt.Printf("  Center: %s\n", analysis.FormatVector(stats.BoundingBox.Center()))
	fmt.Printf("  Diagonal: %s\n\n", analysis.FormatMeasurement(stats.BoundingBox.Diagonal(), "mm"))

	fmt.Println("Edge Lengths:")
	fmt.Printf("  Minimum: %s\n", analysis.FormatMeasurement(stats.MinEdgeLength, "mm"))
	fmt.Printf("  Maximum: %s\n", analysis.FormatMeasurement(stats.MaxEdgeLength, "mm"))
	fmt.Printf("  Average: %s\n\n", analysis.FormatMeasurement(stats.AvgEdgeLength, "mm"))

	fmt.Println("Estimation Metrics (heuristic):")
	fmt.Printf("  Volume: %.2f cm³\n", metrics.Volume)
	fmt.Printf("  Surface Area: %.2f cm²\n", metrics.SurfaceArea)
	fmt.Printf("  Bounding Box: %.1f × %.1f × %.1f mm\n", metrics.BoundingBox.X, metrics.BoundingBox.Y, metrics.BoundingBox.Z)
	fmt.Printf("  Faces: %d\n", metrics.FaceCount)
	fmt.Printf("  Edges: %d\n", metrics.EdgeCount)
	return nil
}
