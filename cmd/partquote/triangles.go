package main

import (
	"fmt"
	"math"
	"sort"

	"github.com/philipparndt/partquote/pkg/analysis"
	"github.com/spf13/cobra"
)

var (
	triCount    int
	triLargest  bool
	triSmallest bool
)

type triangleInfo struct {
	Index     int
	Area      float64
	Perimeter float64
	Vertices  string
}

var trianglesCmd = &cobra.Command{
	Use:   "triangles [file]",
	Short: "Analyze triangles in a mesh file",
	Long:  "Display information about triangles including area, perimeter, and vertex positions.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTriangles,
}

func init() {
	rootCmd.AddCommand(trianglesCmd)

	trianglesCmd.Flags().IntVarP(&triCount, "count", "n", 10, "Number of triangles to display")
	trianglesCmd.Flags().BoolVarP(&triLargest, "largest", "l", false, "Show largest triangles by area")
	trianglesCmd.Flags().BoolVarP(&triSmallest, "smallest", "s", false, "Show smallest triangles by area")
	trianglesCmd.MarkFlagsMutuallyExclusive("largest", "smallest")
}

func runTriangles(cmd *cobra.Command, args []string) error {
	model, err := loadMesh(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	buf := model.Mesh
	triangles := make([]triangleInfo, 0, buf.TriangleCount())
	totalArea := 0.0
	minArea := math.MaxFloat64
	maxArea := 0.0

	for i := 0; i < buf.TriangleCount(); i++ {
		tri := buf.Triangle(i)
		area := tri.Area()

		triangles = append(triangles, triangleInfo{
			Index:     i,
			Area:      area,
			Perimeter: tri.Perimeter(),
			Vertices: fmt.Sprintf("%s, %s, %s",
				analysis.FormatVector(tri.V1),
				analysis.FormatVector(tri.V2),
				analysis.FormatVector(tri.V3)),
		})

		totalArea += area
		minArea = math.Min(minArea, area)
		maxArea = math.Max(maxArea, area)
	}

	title := fmt.Sprintf("First %d Triangles", min(triCount, len(triangles)))
	if triLargest {
		sort.SliceStable(triangles, func(i, j int) bool {
			return triangles[i].Area > triangles[j].Area
		})
		title = fmt.Sprintf("Top %d Largest Triangles", min(triCount, len(triangles)))
	} else if triSmallest {
		sort.SliceStable(triangles, func(i, j int) bool {
			return triangles[i].Area < triangles[j].Area
		})
		title = fmt.Sprintf("Top %d Smallest Triangles", min(triCount, len(triangles)))
	}

	fmt.Println(title)
	fmt.Println("====================")
	fmt.Printf("Total triangles: %d\n", len(triangles))
	fmt.Printf("Total surface area: %.6f mm²\n", totalArea)
	fmt.Printf("Min triangle area: %.6f mm²\n", minArea)
	fmt.Printf("Max triangle area: %.6f mm²\n", maxArea)
	fmt.Printf("Avg triangle area: %.6f mm²\n\n", totalArea/float64(len(triangles)))

	for i := 0; i < triCount && i < len(triangles); i++ {
		tri := triangles[i]
		fmt.Printf("Triangle #%d:\n", tri.Index)
		fmt.Printf("  Area: %.6f mm²\n", tri.Area)
		fmt.Printf("  Perimeter: %.6f mm\n", tri.Perimeter)
		fmt.Printf("  Vertices: %s\n\n", tri.Vertices)
	}
	return nil
}
