package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoldEater/internal/config"
	"GoldEater/internal/domain/model"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "goldeater", cmd.Use)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("env"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"scan", "grid", "resolve", "serve"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestScanCommand_Flags(t *testing.T) {
	cmd := NewScanCommand(&RootOptions{})

	for _, name := range []string{"district", "platforms", "prompt-types", "no-parallel"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestResolveCommand_DefaultLimit(t *testing.T) {
	cmd := NewResolveCommand(&RootOptions{})

	f := cmd.Flags().Lookup("limit")
	require.NotNil(t, f)
	assert.Equal(t, "100", f.DefValue)
}

func TestScanCommand_RequiresDistrict(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"scan"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "district")
}

const testConfig = `env: local
districts:
  test_block:
    display_name: Test Block
    north: -33.880
    south: -33.890
    west: 151.205
    east: 151.215
    center: {lat: -33.885, lng: 151.210}
scan:
  platforms: [chatgpt]
  prompt_types: [generic_best, coffee_spot]
  repetitions: 2
  h3_resolution: 9
store:
  driver: memory
reports:
  driver: file
  dir: %s
logging:
  level: error
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "goldeater.yaml")
	body := strings.Replace(testConfig, "%s", filepath.Join(dir, "runs"), 1)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestGridCommand_PrintsCells(t *testing.T) {
	path := writeTestConfig(t)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	root := NewRootCommand()
	root.SetOut(out)
	root.SetArgs([]string{"grid", "--config", path, "--district", "test_block"})
	require.NoError(t, root.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.True(t, strings.HasPrefix(lines[0], "Test Block (test_block):"))
	assert.Contains(t, lines[0], "at resolution 9")

	cells := len(lines) - 2
	perCell := len(cfg.Scan.Platforms) * len(cfg.Scan.PromptTypes) * cfg.Scan.Repetitions
	assert.Equal(t, fmt.Sprintf("full scan: %d work items", cells*perCell), lines[len(lines)-1])
}

func TestGridCommand_UnknownDistrict(t *testing.T) {
	path := writeTestConfig(t)

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"grid", "--config", path, "--district", "atlantis"})

	err := root.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUnknownDistrict))
}

func TestResolveCommand_RequiresPlacesKey(t *testing.T) {
	t.Setenv("GOOGLE_PLACES_API_KEY", "")
	path := writeTestConfig(t)

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"resolve", "--config", path, "--district", "test_block"})

	err := root.Execute()
	require.Error(t, err)
	var cfgErr *model.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "providers.places", cfgErr.Component)
}

func TestConfiguredPlatforms(t *testing.T) {
	cfg := config.Config{}
	cfg.Providers.OpenAI.APIKey = "sk-test"
	cfg.Providers.Claude.APIKey = "sk-ant"

	got := configuredPlatforms(cfg, model.GetAllPlatforms())
	assert.Equal(t, []string{model.PlatformChatGPT, model.PlatformClaude}, got)
}
