// Package mcptools exposes the cost estimator as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/philipparndt/partquote/internal/history"
	"github.com/philipparndt/partquote/internal/pipeline"
	"github.com/philipparndt/partquote/pkg/advisor"
	"github.com/philipparndt/partquote/pkg/analysis"
	"github.com/philipparndt/partquote/pkg/cost"
	"github.com/philipparndt/partquote/pkg/surrogate"
)

// Recorder stores finished estimates
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (int64, error)
}

// estimateOutput is the JSON returned by both tools
type estimateOutput struct {
	FileName string                   `json:"fileName,omitempty"`
	Metrics  analysis.GeometryMetrics `json:"geometryMetrics"`
	Estimate cost.Breakdown           `json:"estimate"`
	Method   advisor.Provenance       `json:"method"`
	Warning  string                   `json:"warning,omitempty"`
}

func newOutput(fileName string, metrics analysis.GeometryMetrics, result advisor.Result) estimateOutput {
	out := estimateOutput{
		FileName: fileName,
		Metrics:  metrics,
		Estimate: result.Breakdown,
		Method:   result.Provenance,
	}
	if result.Err != nil {
		out.Warning = result.Err.Error()
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func floatArg(req mcp.CallToolRequest, key string, defaultVal float64) float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return v
}

// EstimateTool handles the estimate_part_cost MCP tool.
type EstimateTool struct {
	advisor *advisor.Advisor
}

// NewEstimateTool creates an EstimateTool
func NewEstimateTool(a *advisor.Advisor) *EstimateTool {
	return &EstimateTool{advisor: a}
}

// Definition returns the MCP tool definition for estimate_part_cost.
func (t *EstimateTool) Definition() mcp.Tool {
	return mcp.NewTool("estimate_part_cost",
		mcp.WithDescription("Estimate the CNC machining cost of a part from its geometry metrics. "+
			"Returns material, machining, setup and finishing costs with the method that produced them."),
		mcp.WithNumber("volume", mcp.Required(), mcp.Description("Part volume in cm³")),
		mcp.WithNumber("surface_area", mcp.Required(), mcp.Description("Surface area in cm²")),
		mcp.WithNumber("face_count", mcp.Description("Number of faces (default: 20)")),
		mcp.WithNumber("bbox_x", mcp.Description("Bounding box X extent in mm")),
		mcp.WithNumber("bbox_y", mcp.Description("Bounding box Y extent in mm")),
		mcp.WithNumber("bbox_z", mcp.Description("Bounding box Z extent in mm")),
		mcp.WithString("material", mcp.Description("Material name (default: Aluminum 6061)")),
	)
}

// Handle processes the estimate_part_cost tool call.
func (t *EstimateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	volume := floatArg(req, "volume", -1)
	area := floatArg(req, "surface_area", -1)
	if volume < 0 {
		return mcp.NewToolResultError("'volume' is required and must not be negative"), nil
	}
	if area < 0 {
		return mcp.NewToolResultError("'surface_area' is required and must not be negative"), nil
	}

	metrics := analysis.GeometryMetrics{
		Volume:      volume,
		SurfaceArea: area,
		BoundingBox: analysis.Extents{
			X: floatArg(req, "bbox_x", 0),
			Y: floatArg(req, "bbox_y", 0),
			Z: floatArg(req, "bbox_z", 0),
		},
		FaceCount: int(floatArg(req, "face_count", 0)),
	}
	material := req.GetString("material", cost.DefaultMaterial)

	result := t.advisor.Estimate(ctx, metrics, material)
	return jsonResult(newOutput("", metrics, result))
}

// AnalyzeTool handles the analyze_part_file MCP tool.
type AnalyzeTool struct {
	backend  *surrogate.Backend
	advisor  *advisor.Advisor
	recorder Recorder
	logger   zerolog.Logger
}

// NewAnalyzeTool creates an AnalyzeTool. recorder may be nil.
func NewAnalyzeTool(backend *surrogate.Backend, a *advisor.Advisor, recorder Recorder, logger zerolog.Logger) *AnalyzeTool {
	return &AnalyzeTool{backend: backend, advisor: a, recorder: recorder, logger: logger}
}

// Definition returns the MCP tool definition for analyze_part_file.
func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_part_file",
		mcp.WithDescription("Analyze an STL or STEP part file on disk: compute geometry metrics and a CNC cost estimate. "+
			"STEP files receive surrogate metrics derived from the file name."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to a .stl, .step or .stp file")),
		mcp.WithString("material", mcp.Description("Material name (default: Aluminum 6061)")),
	)
}

// Handle processes the analyze_part_file tool call.
func (t *AnalyzeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	material := req.GetString("material", cost.DefaultMaterial)

	in := pipeline.Input{Name: filepath.Base(path), Format: pipeline.DetectFormat(path)}
	if in.Format == pipeline.FormatMesh {
		data, err := os.ReadFile(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read file: %v", err)), nil
		}
		in.Data = data
	}

	result, err := pipeline.Run(ctx, t.backend, t.advisor, in,
		pipeline.WithLogger(t.logger),
		pipeline.WithMaterial(material),
	)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to analyze %s: %v", path, err)), nil
	}

	if t.recorder != nil {
		entry := history.NewEntry(result.RunID, in.Name, result.Metrics, result.Estimate)
		if _, err := t.recorder.Record(ctx, entry); err != nil {
			t.logger.Warn().Err(err).Str("file", in.Name).Msg("failed to record estimate")
		}
	}

	return jsonResult(newOutput(in.Name, result.Metrics, result.Estimate))
}

// MaterialsTool handles the list_materials MCP tool.
type MaterialsTool struct {
	rates cost.Rates
}

// NewMaterialsTool creates a MaterialsTool
func NewMaterialsTool(rates cost.Rates) *MaterialsTool {
	return &MaterialsTool{rates: rates}
}

// Definition returns the MCP tool definition for list_materials.
func (t *MaterialsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_materials",
		mcp.WithDescription("List the known materials and their cost per cm³."),
	)
}

// Handle processes the list_materials tool call.
func (t *MaterialsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.rates)
}

// NewServer creates the MCP server with every tool registered
func NewServer(version string, backend *surrogate.Backend, a *advisor.Advisor, recorder Recorder, logger zerolog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"partquote",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	estimateTool := NewEstimateTool(a)
	s.AddTool(estimateTool.Definition(), estimateTool.Handle)

	analyzeTool := NewAnalyzeTool(backend, a, recorder, logger)
	s.AddTool(analyzeTool.Definition(), analyzeTool.Handle)

	materialsTool := NewMaterialsTool(a.Model().Rates())
	s.AddTool(materialsTool.Definition(), materialsTool.Handle)

	return s
}
