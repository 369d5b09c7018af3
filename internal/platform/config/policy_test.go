package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyIsValid(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())
}

func TestParsePolicy_OverridesKeepDefaults(t *testing.T) {
	raw := []byte(`
algorithm_version: verity-risk/2.0
high_risk_countries: [XX]
cache_ttl:
  registry: 48h
steps:
  registry_verification:
    require_resolved: true
    min_confidence:
      registry: 0.7
`)
	p, err := ParsePolicy(raw)
	require.NoError(t, err)

	assert.Equal(t, "verity-risk/2.0", p.AlgorithmVersion)
	assert.Equal(t, []string{"XX"}, p.HighRiskCountries)
	assert.Equal(t, 48*time.Hour, p.CacheTTL.Registry)
	assert.Equal(t, 24*time.Hour, p.CacheTTL.Document, "unset TTLs keep defaults")
	assert.True(t, p.Steps[StepRegistryVerification].RequireResolved)
	assert.InDelta(t, 0.7, p.Steps[StepRegistryVerification].MinConfidence["registry"], 1e-9)
	assert.InDelta(t, 0.25, p.Weights["document"], 1e-9)
}

func TestParsePolicy_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"weights not summing to one", "weights: {document: 0.5}", "sum to"},
		{"unknown factor", "weights: {karma: 0}", `unknown factor "karma"`},
		{"unordered levels", "levels: {low: 0.6, medium: 0.5, high: 0.75}", "level thresholds"},
		{"critical threshold", "fraud: {critical_threshold: 0}", "critical_threshold"},
		{"unknown step", "steps: {coffee_break: {}}", `unknown step "coffee_break"`},
		{"bad min confidence", "steps: {document_verification: {min_confidence: {extraction: 2}}}", "outside [0,1]"},
		{"malformed yaml", "weights: [", "decode policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(tt.raw))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy().AlgorithmVersion, p.AlgorithmVersion)

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("unresolved_risk: 0.7\n"), 0o600))
	p, err = LoadPolicy(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, p.UnresolvedRisk, 1e-9)

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
