package advisor

import (
	"fmt"
	"strings"

	"github.com/philipparndt/partquote/pkg/analysis"
	"github.com/philipparndt/partquote/pkg/cost"
)

const systemPrompt = "You are a manufacturing cost estimation expert. Always respond with valid JSON only."

// BuildMessages renders the chat conversation for one estimate
func BuildMessages(metrics analysis.GeometryMetrics, material string, rates cost.Rates) []Message {
	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildPrompt(metrics, material, rates)},
	}
}

func buildPrompt(metrics analysis.GeometryMetrics, material string, rates cost.Rates) string {
	faces := metrics.FaceCount
	if faces <= 0 {
		faces = cost.DefaultFaceCount
	}

	var sb strings.Builder
	sb.WriteString("You are an expert manufacturing cost estimator for CNC machining.\n\n")
	sb.WriteString("Part Specifications:\n")
	fmt.Fprintf(&sb, "- Volume: %g cm³\n", metrics.Volume)
	fmt.Fprintf(&sb, "- Surface Area: %g cm²\n", metrics.SurfaceArea)
	fmt.Fprintf(&sb, "- Bounding Box: %g × %g × %g mm\n", metrics.BoundingBox.X, metrics.BoundingBox.Y, metrics.BoundingBox.Z)
	fmt.Fprintf(&sb, "- Complexity: %d faces\n", faces)
	fmt.Fprintf(&sb, "- Material: %s\n\n", material)

	sb.WriteString("Calculate the manufacturing cost breakdown for CNC machining this part. Use these rates:\n")
	for _, name := range rates.Names() {
		fmt.Fprintf(&sb, "- %s: $%g/cm³\n", name, rates[name])
	}
	fmt.Fprintf(&sb, "- Shop rate: $%g/hour ($%.2f/minute)\n", cost.ShopRatePerMinute*60, cost.ShopRatePerMinute)
	fmt.Fprintf(&sb, "- Setup cost: $%g\n", cost.SetupCost)
	fmt.Fprintf(&sb, "- Finishing: $%g/cm²\n\n", cost.FinishingRate)

	sb.WriteString("Respond ONLY with valid JSON (no markdown):\n")
	fmt.Fprintf(&sb, `{
  "materialCost": 36.85,
  "machiningCost": 359.29,
  "setupCost": 50.00,
  "finishingCost": 79.84,
  "totalCost": 525.98,
  "estimatedTime": "4.0 hours",
  "complexity": "Medium",
  "material": %q
}`, material)
	return sb.String()
}
