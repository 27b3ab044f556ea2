package cost

import (
	"math"
	"strconv"
	"strings"

	"github.com/philipparndt/partquote/pkg/analysis"
)

// Complexity is the coarse difficulty class of a part
type Complexity string

const (
	Low    Complexity = "Low"
	Medium Complexity = "Medium"
	High   Complexity = "High"
)

// ParseComplexity normalizes a complexity label, case-insensitively
func ParseComplexity(s string) (Complexity, bool) {
	s = strings.TrimSpace(s)
	for _, c := range []Complexity{Low, Medium, High} {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Shop constants
const (
	ShopRatePerMinute = 1.50
	SetupCost         = 50.0
	FinishingRate     = 0.05 // per cm² of surface
	MinutesPer100cm2  = 15.0
	DefaultFaceCount  = 20
)

const (
	highFaceThreshold = 30
	midFaceThreshold  = 20
	highVolumeLimit   = 500.0
	midVolumeLimit    = 200.0
	currencyDecimals  = 2
)

// Detail exposes the factors behind a breakdown
type Detail struct {
	MaterialRate                float64 `json:"materialRate"`
	ShopRatePerHour             float64 `json:"shopRatePerHour"`
	SurfaceComplexityMultiplier float64 `json:"surfaceComplexityMultiplier"`
}

// Breakdown is a cost estimate split into its components
type Breakdown struct {
	MaterialCost  float64    `json:"materialCost"`
	MachiningCost float64    `json:"machiningCost"`
	SetupCost     float64    `json:"setupCost"`
	FinishingCost float64    `json:"finishingCost"`
	TotalCost     float64    `json:"totalCost"`
	EstimatedTime string     `json:"estimatedTime"`
	Complexity    Complexity `json:"complexity"`
	Material      string     `json:"material"`
	Detail        *Detail    `json:"breakdown,omitempty"`
}

// Model computes deterministic cost estimates from a rate table
type Model struct {
	rates Rates
}

// NewModel creates a cost model. A nil table uses DefaultRates.
func NewModel(rates Rates) *Model {
	if rates == nil {
		rates = DefaultRates()
	}
	return &Model{rates: rates.Merge(nil)}
}

// Rates returns a copy of the model's rate table
func (m *Model) Rates() Rates {
	return m.rates.Merge(nil)
}

// Estimate computes the breakdown for the metrics. It never fails; unknown
// materials are charged at DefaultRate.
func (m *Model) Estimate(metrics analysis.GeometryMetrics, material string) Breakdown {
	if material == "" {
		material = DefaultMaterial
	}
	rate, _ := m.rates.Rate(material)

	faces := metrics.FaceCount
	if faces <= 0 {
		faces = DefaultFaceCount
	}

	surface := SurfaceComplexity(faces)
	minutes := (metrics.SurfaceArea / 100) * MinutesPer100cm2 * surface

	b := Breakdown{
		MaterialCost:  analysis.Round(metrics.Volume*rate, currencyDecimals),
		MachiningCost: analysis.Round(minutes*ShopRatePerMinute, currencyDecimals),
		SetupCost:     SetupCost,
		FinishingCost: analysis.Round(metrics.SurfaceArea*FinishingRate, currencyDecimals),
		EstimatedTime: FormatHours(minutes / 60),
		Complexity:    Classify(faces, metrics.Volume),
		Material:      material,
		Detail: &Detail{
			MaterialRate:                rate,
			ShopRatePerHour:             ShopRatePerMinute * 60,
			SurfaceComplexityMultiplier: surface,
		},
	}
	b.TotalCost = analysis.Round(b.MaterialCost+b.MachiningCost+b.SetupCost+b.FinishingCost, currencyDecimals)
	return b
}

// SurfaceComplexity returns the machining time multiplier for a face count
func SurfaceComplexity(faceCount int) float64 {
	switch {
	case faceCount > highFaceThreshold:
		return 1.5
	case faceCount > midFaceThreshold:
		return 1.2
	default:
		return 1.0
	}
}

// Classify returns the complexity class for a face count and volume
func Classify(faceCount int, volume float64) Complexity {
	switch {
	case faceCount > highFaceThreshold || volume > highVolumeLimit:
		return High
	case faceCount > midFaceThreshold || volume > midVolumeLimit:
		return Medium
	default:
		return Low
	}
}

// FormatHours renders hours rounded to one decimal, e.g. "4.8 hours"
func FormatHours(hours float64) string {
	rounded := analysis.Round(math.Max(hours, 0), 1)
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " hours"
}
