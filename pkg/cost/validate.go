package cost

import (
	"fmt"
	"math"
	"strings"
)

// SumTolerance is the allowed gap between the total and its components
const SumTolerance = 0.01

// ValidationError lists the problems found in a breakdown
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid cost breakdown: " + strings.Join(e.Problems, "; ")
}

// Validate checks that a breakdown is internally consistent. It returns a
// *ValidationError or nil.
func Validate(b Breakdown) error {
	var problems []string

	components := []struct {
		name  string
		value float64
	}{
		{"materialCost", b.MaterialCost},
		{"machiningCost", b.MachiningCost},
		{"setupCost", b.SetupCost},
		{"finishingCost", b.FinishingCost},
		{"totalCost", b.TotalCost},
	}
	for _, c := range components {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) || c.value < 0 {
			problems = append(problems, fmt.Sprintf("%s must be a non-negative number, got %v", c.name, c.value))
		}
	}

	sum := b.MaterialCost + b.MachiningCost + b.SetupCost + b.FinishingCost
	if diff := math.Abs(b.TotalCost - sum); !(diff <= SumTolerance+1e-9) {
		problems = append(problems, fmt.Sprintf("totalCost %.2f does not match component sum %.2f", b.TotalCost, sum))
	}

	if strings.TrimSpace(b.EstimatedTime) == "" {
		problems = append(problems, "estimatedTime is empty")
	}
	if _, ok := ParseComplexity(string(b.Complexity)); !ok {
		problems = append(problems, fmt.Sprintf("unknown complexity %q", b.Complexity))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
