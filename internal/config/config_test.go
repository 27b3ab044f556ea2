package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/philipparndt/partquote/pkg/advisor"
	"github.com/philipparndt/partquote/pkg/analysis"
	"github.com/philipparndt/partquote/pkg/cost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 20*time.Second, cfg.Advisor.Timeout)
	assert.Equal(t, "GROQ_API_KEY", cfg.Advisor.APIKeyEnv)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
default_material: Brass
materials:
  Wood: 0.02
advisor:
  enabled: false
  timeout: 5s
  model: llama-3.1-8b-instant
server:
  address: ":9090"
  run_ttl: 10m
history:
  path: /tmp/partquote.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cost.Brass, cfg.DefaultMaterial)
	assert.False(t, cfg.Advisor.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Advisor.Timeout)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.Advisor.Model)
	assert.Equal(t, advisor.DefaultEndpoint, cfg.Advisor.Endpoint, "unset keys keep defaults")
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 10*time.Minute, cfg.Server.RunTTL)
	assert.Equal(t, "/tmp/partquote.db", cfg.History.Path)
	assert.True(t, cfg.History.Enabled)

	rates := cfg.Rates()
	assert.Equal(t, 0.02, rates["Wood"])
	assert.Equal(t, 0.15, rates[cost.Aluminum6061])
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"zero timeout":     "advisor:\n  timeout: 0s\n",
		"negative timeout": "advisor:\n  timeout: -1s\n",
		"negative rate":    "materials:\n  Wood: -1\n",
		"bad yaml":         "advisor: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestNewAdvisorWithoutKeyUsesCostModel(t *testing.T) {
	cfg := Default()
	cfg.Advisor.APIKeyEnv = "PARTQUOTE_TEST_MISSING_KEY"
	cfg.Materials = map[string]float64{"Wood": 0.02}

	a := cfg.NewAdvisor()
	result := a.Estimate(context.Background(), analysis.GeometryMetrics{Volume: 100, SurfaceArea: 100, FaceCount: 5}, "Wood")

	assert.Equal(t, advisor.ProvenanceAlgorithm, result.Provenance)
	assert.Equal(t, 2.0, result.Breakdown.MaterialCost)
}

func TestAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("PARTQUOTE_TEST_KEY", "secret")
	cfg := Default()
	cfg.Advisor.APIKeyEnv = "PARTQUOTE_TEST_KEY"
	assert.Equal(t, "secret", cfg.APIKey())

	cfg.Advisor.APIKeyEnv = ""
	assert.Empty(t, cfg.APIKey())
}
