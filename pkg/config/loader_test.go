package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "engagic.yaml"), []byte(content), 0o644))
}

func TestLoad_BuiltinCitiesSurviveWithNoUserFile(t *testing.T) {
	dir := t.TempDir()
	// No engagic.yaml at all: builtin cities load, but provider.model is
	// still required (spec.md §4.3 has no safe default model to assume).
	_, err := Load(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "provider")
}

func TestLoad_UserFileMergesOverBuiltinCities(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, `
provider:
  model: test-model
cities:
  paloaltoCA:
    display_name: "City of Palo Alto"
  sunnyvaleCA:
    display_name: Sunnyvale
    state: CA
    vendor: civicclerk
    slug: sunnyvaleca
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "test-model", cfg.ProviderModel)

	byBanana := make(map[string]CityConfig, len(cfg.Cities))
	for _, c := range cfg.Cities {
		byBanana[c.Banana] = c
	}

	require.Contains(t, byBanana, "paloaltoCA")
	require.Equal(t, "City of Palo Alto", byBanana["paloaltoCA"].DisplayName)
	require.Equal(t, "primegov", byBanana["paloaltoCA"].Vendor) // builtin field survives partial override

	require.Contains(t, byBanana, "montpelierVT") // builtin-only city still present
	require.Contains(t, byBanana, "sunnyvaleCA")  // user-only city added
}

func TestLoad_RejectsInvalidBanana(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, `
provider:
  model: test-model
cities:
  not-a-valid-banana:
    display_name: Bad City
    state: CA
    vendor: primegov
    slug: badcity
`)

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoad_AppliesQueueOverrides(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, `
provider:
  model: test-model
queue:
  worker_count: 8
  max_attempts: 5
cities:
  paloaltoCA: {}
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.WorkerCount)
	require.Equal(t, 5, cfg.MaxAttempts)
}
