package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"GoldEater/internal/domain/helper"
	"GoldEater/internal/domain/model"
)

// Store and report drivers.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreSupabase = "supabase"
	StoreMemory   = "memory"

	ReportsFile      = "file"
	ReportsFirestore = "firestore"
)

// Config holds the GoldEater configuration. Built once at process start and passed down.
type Config struct {
	Env       string                    `yaml:"env"`
	Districts map[string]DistrictConfig `yaml:"districts"`
	Scan      ScanConfig                `yaml:"scan"`
	Providers ProvidersConfig           `yaml:"providers"`
	Store     StoreConfig               `yaml:"store"`
	Cache     CacheConfig               `yaml:"cache"`
	Reports   ReportsConfig             `yaml:"reports"`
	Logging   LoggingConfig             `yaml:"logging"`
	HTTP      HTTPConfig                `yaml:"http"`
}

// DistrictConfig holds the bounding box and search center of one district.
type DistrictConfig struct {
	DisplayName string       `yaml:"display_name"`
	North       float64      `yaml:"north"`
	South       float64      `yaml:"south"`
	West        float64      `yaml:"west"`
	East        float64      `yaml:"east"`
	Center      model.LatLng `yaml:"center"`
}

// ScanConfig holds the fan-out dimensions of a run.
type ScanConfig struct {
	Platforms           []string `yaml:"platforms"`
	PromptTypes         []string `yaml:"prompt_types"`
	Repetitions         int      `yaml:"repetitions"`
	H3Resolution        int      `yaml:"h3_resolution"`
	PoolWidth           int      `yaml:"pool_width"`
	ResolverWidth       int      `yaml:"resolver_width"`
	SystemPromptVersion string   `yaml:"system_prompt_version"`
}

// ProvidersConfig holds per-provider settings.
type ProvidersConfig struct {
	OpenAI     ProviderConfig `yaml:"openai"`
	Perplexity ProviderConfig `yaml:"perplexity"`
	Gemini     ProviderConfig `yaml:"gemini"`
	Claude     ProviderConfig `yaml:"claude"`
	Places     PlacesConfig   `yaml:"places"`
}

// ProviderConfig holds AI provider settings.
type ProviderConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// PlacesConfig holds Google Places settings.
type PlacesConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	RadiusMeters int    `yaml:"radius_meters"`
	PlaceType    string `yaml:"place_type"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Driver          string `yaml:"driver"` // sqlite, postgres, supabase, memory
	SQLitePath      string `yaml:"sqlite_path"`
	PostgresDSN     string `yaml:"postgres_dsn"`
	SupabaseURL     string `yaml:"supabase_url"`
	SupabaseKey     string `yaml:"supabase_key"`
	JobsTable       string `yaml:"jobs_table"`
	ResultsTable    string `yaml:"results_table"`
	BusinessesTable string `yaml:"businesses_table"`
}

// CacheConfig holds the places resolution cache settings. Empty addrs disables the cache.
type CacheConfig struct {
	RedisAddrs []string `yaml:"redis_addrs"`
	Password   string   `yaml:"password"`
	KeyPrefix  string   `yaml:"key_prefix"`
	TTLHours   int      `yaml:"ttl_hours"`
}

// ReportsConfig holds run report storage settings.
type ReportsConfig struct {
	Driver              string `yaml:"driver"` // file, firestore
	Dir                 string `yaml:"dir"`
	FirestoreProjectID  string `yaml:"firestore_project_id"`
	FirestoreCollection string `yaml:"firestore_collection"`
	CredentialsFile     string `yaml:"credentials_file"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Load reads configuration from path. An empty path yields Default().
// A .env file in the working directory is loaded first when present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	if strings.TrimSpace(path) == "" {
		cfg := Default()
		if err := cfg.Validate(); err != nil {
			return Config{}, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes, expanding ${VAR} and ${VAR:-default} first.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration with credentials taken from the environment.
func Default() Config {
	cfg := Config{
		Districts: map[string]DistrictConfig{
			"surry_hills": {
				North:  -33.875,
				South:  -33.895,
				West:   151.205,
				East:   151.225,
				Center: model.LatLng{Lat: -33.885, Lng: 151.215},
			},
			"newtown": {
				North:  -33.890,
				South:  -33.910,
				West:   151.170,
				East:   151.190,
				Center: model.LatLng{Lat: -33.897, Lng: 151.179},
			},
		},
		Providers: ProvidersConfig{
			OpenAI:     ProviderConfig{APIKey: os.Getenv("OPENAI_API_KEY")},
			Perplexity: ProviderConfig{APIKey: os.Getenv("PERPLEXITY_API_KEY")},
			Gemini:     ProviderConfig{APIKey: os.Getenv("GOOGLE_AI_API_KEY")},
			Claude:     ProviderConfig{APIKey: os.Getenv("ANTHROPIC_API_KEY")},
			Places:     PlacesConfig{APIKey: os.Getenv("GOOGLE_PLACES_API_KEY")},
		},
		Store: StoreConfig{
			SupabaseURL: os.Getenv("SUPABASE_URL"),
			SupabaseKey: os.Getenv("SUPABASE_KEY"),
			PostgresDSN: os.Getenv("DATABASE_URL"),
		},
	}
	if driver := os.Getenv("GOLDEATER_STORE"); driver != "" {
		cfg.Store.Driver = driver
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Env == "" {
		c.Env = "local"
	}
	if len(c.Scan.Platforms) == 0 {
		c.Scan.Platforms = model.GetAllPlatforms()
	}
	if len(c.Scan.PromptTypes) == 0 {
		c.Scan.PromptTypes = model.GetAllPromptTypes()
	}
	if c.Scan.Repetitions <= 0 {
		c.Scan.Repetitions = model.DefaultTapCount
	}
	if c.Scan.H3Resolution <= 0 {
		c.Scan.H3Resolution = model.DefaultH3Resolution
	}
	if c.Scan.PoolWidth <= 0 {
		c.Scan.PoolWidth = 10
	}
	if c.Scan.ResolverWidth <= 0 {
		c.Scan.ResolverWidth = 4
	}
	if c.Scan.SystemPromptVersion == "" {
		c.Scan.SystemPromptVersion = model.DefaultSystemPromptVersion
	}

	applyProviderDefaults(&c.Providers.OpenAI, "gpt-4o-2024-08-06", 0)
	applyProviderDefaults(&c.Providers.Perplexity, "llama-3.1-sonar-large-128k-online", 0)
	applyProviderDefaults(&c.Providers.Gemini, "gemini-1.5-pro", 0)
	applyProviderDefaults(&c.Providers.Claude, "claude-3-opus-20240229", 2048)
	if c.Providers.Perplexity.BaseURL == "" {
		c.Providers.Perplexity.BaseURL = "https://api.perplexity.ai"
	}
	if c.Providers.Claude.BaseURL == "" {
		c.Providers.Claude.BaseURL = "https://api.anthropic.com"
	}
	if c.Providers.Places.BaseURL == "" {
		c.Providers.Places.BaseURL = "https://maps.googleapis.com/maps/api/place"
	}
	if c.Providers.Places.RadiusMeters <= 0 {
		c.Providers.Places.RadiusMeters = 500
	}
	if c.Providers.Places.PlaceType == "" {
		c.Providers.Places.PlaceType = "restaurant"
	}
	if c.Providers.Places.TimeoutSec <= 0 {
		c.Providers.Places.TimeoutSec = 10
	}

	if c.Store.Driver == "" {
		c.Store.Driver = StoreSQLite
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "data/goldeater.db"
	}
	if c.Store.JobsTable == "" {
		c.Store.JobsTable = "scan_jobs"
	}
	if c.Store.ResultsTable == "" {
		c.Store.ResultsTable = "scan_results"
	}
	if c.Store.BusinessesTable == "" {
		c.Store.BusinessesTable = "businesses"
	}

	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "goldeater:places:"
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24 * 7
	}

	if c.Reports.Driver == "" {
		c.Reports.Driver = ReportsFile
	}
	if c.Reports.Dir == "" {
		c.Reports.Dir = "data/runs"
	}
	if c.Reports.FirestoreCollection == "" {
		c.Reports.FirestoreCollection = "scanRuns"
	}

	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
}

func applyProviderDefaults(p *ProviderConfig, modelName string, maxTokens int) {
	if p.Model == "" {
		p.Model = modelName
	}
	if p.Temperature == 0 {
		p.Temperature = 0.7
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = maxTokens
	}
	if p.TimeoutSec <= 0 {
		p.TimeoutSec = 60
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if len(c.Districts) == 0 {
		return fmt.Errorf("districts must not be empty")
	}
	for name, d := range c.Districts {
		if d.North <= d.South {
			return fmt.Errorf("districts.%s: north (%f) must be greater than south (%f)", name, d.North, d.South)
		}
		if d.East <= d.West {
			return fmt.Errorf("districts.%s: east (%f) must be greater than west (%f)", name, d.East, d.West)
		}
	}
	known := map[string]bool{}
	for _, p := range model.GetAllPlatforms() {
		known[p] = true
	}
	for _, p := range c.Scan.Platforms {
		if !known[p] {
			return fmt.Errorf("scan.platforms: unknown platform %q", p)
		}
	}
	if c.Scan.H3Resolution < 0 || c.Scan.H3Resolution > 15 {
		return fmt.Errorf("scan.h3_resolution must be between 0 and 15, got %d", c.Scan.H3Resolution)
	}
	switch c.Store.Driver {
	case StoreSQLite, StorePostgres, StoreSupabase, StoreMemory:
	default:
		return fmt.Errorf("store.driver must be one of sqlite, postgres, supabase, memory; got %q", c.Store.Driver)
	}
	switch c.Reports.Driver {
	case ReportsFile, ReportsFirestore:
	default:
		return fmt.Errorf("reports.driver must be file or firestore, got %q", c.Reports.Driver)
	}
	return nil
}

// District returns the named district with its display name resolved.
func (c *Config) District(name string) (model.District, error) {
	d, ok := c.Districts[name]
	if !ok {
		return model.District{}, model.NewConfigError("districts", fmt.Sprintf("district %q is not configured", name), model.ErrUnknownDistrict)
	}
	display := d.DisplayName
	if display == "" {
		display = helper.DistrictDisplayName(name)
	}
	return model.District{
		Name:        name,
		DisplayName: display,
		North:       d.North,
		South:       d.South,
		West:        d.West,
		East:        d.East,
		Center:      d.Center,
	}, nil
}

// AllDistricts returns every configured district sorted by name.
func (c *Config) AllDistricts() []model.District {
	names := make([]string, 0, len(c.Districts))
	for name := range c.Districts {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]model.District, 0, len(names))
	for _, name := range names {
		d, _ := c.District(name)
		out = append(out, d)
	}
	return out
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
