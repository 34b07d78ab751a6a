package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoldEater/internal/domain/model"
)

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("GE_TEST_OPENAI_KEY", "sk-test")

	cfg, err := Parse([]byte(`
districts:
  surry_hills:
    north: -33.875
    south: -33.895
    west: 151.205
    east: 151.225
    center: {lat: -33.885, lng: 151.215}
providers:
  openai:
    api_key: ${GE_TEST_OPENAI_KEY}
  claude:
    api_key: ${GE_TEST_MISSING_KEY:-fallback}
store:
  driver: memory
`))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, "fallback", cfg.Providers.Claude.APIKey)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
districts:
  newtown:
    north: -33.890
    south: -33.910
    west: 151.170
    east: 151.190
`))
	require.NoError(t, err)

	assert.Equal(t, model.DefaultH3Resolution, cfg.Scan.H3Resolution)
	assert.Equal(t, model.DefaultTapCount, cfg.Scan.Repetitions)
	assert.Equal(t, model.GetAllPlatforms(), cfg.Scan.Platforms)
	assert.Equal(t, model.GetAllPromptTypes(), cfg.Scan.PromptTypes)
	assert.Equal(t, "gpt-4o-2024-08-06", cfg.Providers.OpenAI.Model)
	assert.Equal(t, float32(0.7), cfg.Providers.Gemini.Temperature)
	assert.Equal(t, 2048, cfg.Providers.Claude.MaxTokens)
	assert.Equal(t, 500, cfg.Providers.Places.RadiusMeters)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "file", cfg.Reports.Driver)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestDefault_HasBuiltinDistricts(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Contains(t, cfg.Districts, "surry_hills")
	assert.Contains(t, cfg.Districts, "newtown")
}

func TestValidate_InvertedBounds(t *testing.T) {
	cfg := Default()
	cfg.Districts["broken"] = DistrictConfig{North: -34, South: -33, West: 151, East: 152}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "districts.broken: north")
}

func TestValidate_UnknownPlatform(t *testing.T) {
	cfg := Default()
	cfg.Scan.Platforms = []string{"chatgpt", "bard"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, `scan.platforms: unknown platform "bard"`, err.Error())
}

func TestValidate_UnknownStoreDriver(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "mongo"

	assert.Error(t, cfg.Validate())
}

func TestDistrict(t *testing.T) {
	cfg := Default()

	t.Run("display name from key", func(t *testing.T) {
		d, err := cfg.District("surry_hills")
		require.NoError(t, err)
		assert.Equal(t, "Surry Hills", d.DisplayName)
		assert.Equal(t, model.LatLng{Lat: -33.885, Lng: 151.215}, d.Center)
	})

	t.Run("unknown district", func(t *testing.T) {
		_, err := cfg.District("bondi")
		require.Error(t, err)

		var cfgErr *model.ConfigError
		assert.True(t, errors.As(err, &cfgErr))
		assert.ErrorIs(t, err, model.ErrUnknownDistrict)
	})
}

func TestAllDistricts_Sorted(t *testing.T) {
	cfg := Default()

	districts := cfg.AllDistricts()
	require.Len(t, districts, 2)
	assert.Equal(t, "newtown", districts[0].Name)
	assert.Equal(t, "surry_hills", districts[1].Name)
}
