package config

import (
	"os"
	"unicode/utf8"

	"github.com/joho/godotenv"

	"section8map/internal/database"
	"section8map/internal/dataset"
	"section8map/internal/logger"
)

// UI modes.
const (
	ModeWeb      = "web"
	ModeTerminal = "terminal"
)

// Data sources.
const (
	SourceFile   = "file"
	SourceOracle = "oracle"
)

// Config holds application configuration
type Config struct {
	DataSource    string
	DataPath      string
	DataDelimiter rune
	ListingsTable string

	// MapboxToken is only a rendering parameter; the public carto style works without it.
	MapboxToken string

	Port   string
	UIMode string

	BoundaryPath        string
	BoundaryNameField   string
	BoundaryRegionField string

	DB database.DBConfig
}

// Load reads configuration from the environment, after loading .env if present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Log.Warnf("Could not read .env: %v", err)
	}

	cfg := &Config{
		DataSource:    getEnvOrDefault("DATA_SOURCE", SourceFile),
		DataPath:      getEnvOrDefault("DATA_PATH", dataset.DefaultPath),
		DataDelimiter: delimiter(getEnvOrDefault("DATA_DELIMITER", ",")),
		ListingsTable: getEnvOrDefault("LISTINGS_TABLE", "LISTINGS"),

		MapboxToken: os.Getenv("MAPBOX_API_KEY"),

		Port:   getEnvOrDefault("PORT", "8501"),
		UIMode: getEnvOrDefault("UI_MODE", ModeWeb),

		BoundaryPath:        os.Getenv("BOUNDARY_PATH"),
		BoundaryNameField:   getEnvOrDefault("BOUNDARY_NAME_FIELD", "NAME"),
		BoundaryRegionField: os.Getenv("BOUNDARY_REGION_FIELD"),

		DB: database.DBConfig{
			Host:           getEnvOrDefault("DB_HOST", "localhost"),
			Port:           getEnvOrDefault("DB_PORT", "1521"),
			Service:        getEnvOrDefault("DB_SERVICE", "XE"),
			Username:       getEnvOrDefault("DB_USERNAME", ""),
			Password:       getEnvOrDefault("DB_PASSWORD", ""),
			WalletLocation: getEnvOrDefault("DB_WALLET_LOCATION", ""),
		},
	}

	if cfg.MapboxToken == "" {
		logger.Log.Warn("MAPBOX_API_KEY not set; maps fall back to the public tile style")
	}
	return cfg
}

// delimiter accepts a single character or the name "tab"/"pipe".
func delimiter(s string) rune {
	switch s {
	case "tab", `\t`:
		return '\t'
	case "pipe":
		return '|'
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ','
	}
	return r
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
