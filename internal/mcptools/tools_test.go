package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/partquote/internal/history"
	"github.com/philipparndt/partquote/pkg/advisor"
	"github.com/philipparndt/partquote/pkg/analysis"
	"github.com/philipparndt/partquote/pkg/cost"
	"github.com/philipparndt/partquote/pkg/mesh"
	"github.com/philipparndt/partquote/pkg/stl"
	"github.com/philipparndt/partquote/pkg/surrogate"
)

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decodeOutput(t *testing.T, r *mcp.CallToolResult) estimateOutput {
	t.Helper()
	require.False(t, r.IsError, resultText(r))
	var out estimateOutput
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &out))
	return out
}

func algorithmAdvisor() *advisor.Advisor {
	return advisor.New(nil, cost.NewModel(nil))
}

type memoryRecorder struct {
	entries []history.Entry
	err     error
}

func (m *memoryRecorder) Record(ctx context.Context, e history.Entry) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.entries = append(m.entries, e)
	return int64(len(m.entries)), nil
}

func TestEstimateTool_Definition(t *testing.T) {
	def := NewEstimateTool(algorithmAdvisor()).Definition()

	assert.Equal(t, "estimate_part_cost", def.Name)
	for _, key := range []string{"volume", "surface_area", "face_count", "bbox_x", "bbox_y", "bbox_z", "material"} {
		assert.Contains(t, def.InputSchema.Properties, key)
	}
	assert.ElementsMatch(t, []string{"volume", "surface_area"}, def.InputSchema.Required)
}

func TestEstimateTool_Handle(t *testing.T) {
	tool := NewEstimateTool(algorithmAdvisor())

	r, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"volume":       245.67,
		"surface_area": 1596.86,
		"face_count":   float64(24),
		"material":     cost.Aluminum6061,
	}))
	require.NoError(t, err)

	out := decodeOutput(t, r)
	assert.Equal(t, advisor.ProvenanceAlgorithm, out.Method)
	assert.Equal(t, 597.84, out.Estimate.TotalCost)
	assert.Equal(t, cost.Medium, out.Estimate.Complexity)
	assert.Equal(t, 24, out.Metrics.FaceCount)
	assert.Empty(t, out.Warning)
}

func TestEstimateTool_MissingArguments(t *testing.T) {
	tool := NewEstimateTool(algorithmAdvisor())

	tests := map[string]map[string]interface{}{
		"no volume":        {"surface_area": 10.0},
		"no surface area":  {"volume": 10.0},
		"negative volume":  {"volume": -1.0, "surface_area": 10.0},
		"volume as string": {"volume": "10", "surface_area": 10.0},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			r, err := tool.Handle(context.Background(), makeReq(args))
			require.NoError(t, err)
			assert.True(t, r.IsError)
		})
	}
}

func TestAnalyzeTool_MeshFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.stl")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, stl.Encode(f, "cube", mesh.CenteredBox(10, 10, 10)))
	require.NoError(t, f.Close())

	recorder := &memoryRecorder{}
	tool := NewAnalyzeTool(surrogate.NewBackend(), algorithmAdvisor(), recorder, zerolog.Nop())

	r, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"path":     path,
		"material": cost.Steel1018,
	}))
	require.NoError(t, err)

	out := decodeOutput(t, r)
	assert.Equal(t, "cube.stl", out.FileName)
	assert.Equal(t, analysis.SourceMesh, out.Metrics.Source)
	assert.Equal(t, 400.0, out.Metrics.Volume)
	assert.Equal(t, 120.0, out.Metrics.SurfaceArea)
	assert.Equal(t, 12, out.Metrics.FaceCount)
	assert.Equal(t, cost.Steel1018, out.Estimate.Material)

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, "cube.stl", recorder.entries[0].FileName)
	assert.NotEmpty(t, recorder.entries[0].RunID)
}

func TestAnalyzeTool_SolidFileUsesSurrogate(t *testing.T) {
	tool := NewAnalyzeTool(surrogate.NewBackend(), algorithmAdvisor(), nil, zerolog.Nop())

	// solid files are never read, so the path need not exist
	r, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"path": filepath.Join(t.TempDir(), "bracket.step"),
	}))
	require.NoError(t, err)

	out := decodeOutput(t, r)
	expected := surrogate.Estimate("bracket.step")
	assert.Equal(t, analysis.SourceSurrogate, out.Metrics.Source)
	assert.Equal(t, expected.Volume, out.Metrics.Volume)
	assert.Equal(t, cost.DefaultMaterial, out.Estimate.Material)
}

func TestAnalyzeTool_Errors(t *testing.T) {
	tool := NewAnalyzeTool(surrogate.NewBackend(), algorithmAdvisor(), nil, zerolog.Nop())
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.stl")
	require.NoError(t, os.WriteFile(broken, []byte("solid broken\nfacet normal 0 0 1\n"), 0o644))

	tests := map[string]string{
		"missing path": "",
		"unsupported":  filepath.Join(dir, "notes.txt"),
		"unreadable":   filepath.Join(dir, "absent.stl"),
		"malformed":    broken,
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			r, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"path": path}))
			require.NoError(t, err)
			assert.True(t, r.IsError)
		})
	}
}

func TestAnalyzeTool_RecorderFailureIsNotFatal(t *testing.T) {
	recorder := &memoryRecorder{err: errors.New("disk full")}
	tool := NewAnalyzeTool(surrogate.NewBackend(), algorithmAdvisor(), recorder, zerolog.Nop())

	r, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"path": "gear.stp"}))
	require.NoError(t, err)
	assert.False(t, r.IsError)
}

func TestMaterialsTool(t *testing.T) {
	tool := NewMaterialsTool(cost.DefaultRates().Merge(map[string]float64{"Wood": 0.02}))

	r, err := tool.Handle(context.Background(), makeReq(nil))
	require.NoError(t, err)

	var rates map[string]float64
	require.NoError(t, json.Unmarshal([]byte(resultText(r)), &rates))
	assert.Equal(t, 0.02, rates["Wood"])
	assert.Equal(t, 0.15, rates[cost.Aluminum6061])
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer("test", surrogate.NewBackend(), algorithmAdvisor(), nil, zerolog.Nop())
	reply := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))

	raw, err := json.Marshal(reply)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"estimate_part_cost"`)
	assert.Contains(t, string(raw), `"analyze_part_file"`)
	assert.Contains(t, string(raw), `"list_materials"`)
}
