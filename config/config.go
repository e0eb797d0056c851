package config

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ufotracker/tracker/consts"
)

// Config holds all application configuration
type Config struct {
	Environment string
	DataFolder  string
	Server      ServerConfig
	Source      SourceConfig
	Render      RenderConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
	CorsOrigins     []string
	RateLimit       int
	RateWindow      time.Duration
}

// SourceConfig selects the sightings data source
type SourceConfig struct {
	Kind   string // static or sqlite
	DBPath string
	Limit  int
}

// RenderConfig holds rich renderer settings
type RenderConfig struct {
	AssetsHost   string
	ProbeTimeout time.Duration
	DisableRich  bool
}

// Load reads configuration from the environment, after loading an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	dataFolder := cmp.Or(os.Getenv("DATA_FOLDER"), ".")
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		DataFolder:  dataFolder,
		Server: ServerConfig{
			Port:            getEnv("PORT", consts.DefaultPort),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", consts.ShutdownTimeout),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
			RateLimit:       getEnvAsInt("API_RATE_LIMIT", consts.RateLimitRequests),
			RateWindow:      getEnvAsDuration("API_RATE_WINDOW", consts.RateLimitWindow),
		},
		Source: SourceConfig{
			Kind:   strings.ToLower(getEnv("SOURCE", consts.SourceStatic)),
			DBPath: getEnv("DB_PATH", filepath.Join(dataFolder, consts.DBFileName)),
			Limit:  getEnvAsInt("FETCH_LIMIT", consts.DefaultFetchLimit),
		},
		Render: RenderConfig{
			AssetsHost:   AssetsBaseURL(getEnv("ASSETS_HOST", consts.DefaultAssetsHost)),
			ProbeTimeout: getEnvAsDuration("ASSET_PROBE_TIMEOUT", consts.AssetProbeTimeout),
			DisableRich:  getEnvAsBool("DISABLE_RICH", false),
		},
	}

	return config, validate(config)
}

func validate(config Config) error {
	switch config.Source.Kind {
	case consts.SourceStatic, consts.SourceSQLite:
	default:
		return fmt.Errorf("unknown SOURCE %q (want %s or %s)", config.Source.Kind, consts.SourceStatic, consts.SourceSQLite)
	}
	if config.Source.Limit <= 0 || config.Source.Limit > consts.MaxFetchLimit {
		return fmt.Errorf("FETCH_LIMIT must be between 1 and %d, got %d", consts.MaxFetchLimit, config.Source.Limit)
	}
	if config.Server.RateLimit <= 0 {
		return fmt.Errorf("API_RATE_LIMIT must be positive, got %d", config.Server.RateLimit)
	}
	return nil
}

// AssetsBaseURL returns host as a base that file names can be appended to,
// falling back to the default assets host.
func AssetsBaseURL(host string) string {
	host = cmp.Or(strings.TrimSpace(host), consts.DefaultAssetsHost)
	if !strings.HasSuffix(host, "/") {
		host += "/"
	}
	return host
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
