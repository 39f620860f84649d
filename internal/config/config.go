package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL         string  `yaml:"databaseURL"`
	SermonFile          string  `yaml:"sermonFile"`
	HTTPPort            string  `yaml:"httpPort"`
	LogLevel            string  `yaml:"logLevel"`
	LogFile             string  `yaml:"logFile"`
	LogJournal          bool    `yaml:"logJournal"`
	BibleAPIURL         string  `yaml:"bibleAPIURL"`
	DefaultTranslation  string  `yaml:"defaultTranslation"`
	GeminiModel         string  `yaml:"geminiModel"`
	GeminiAPIKey        string  `yaml:"-"`
	JWTSecret           string  `yaml:"-"`
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
	ExportDir           string  `yaml:"exportDir"`
}

var AppConfig Config

func defaults() Config {
	return Config{
		DatabaseURL:         "sermon_secrets.db",
		SermonFile:          "sermon_data.json",
		HTTPPort:            "8080",
		LogLevel:            "INFO",
		LogFile:             "sermon.log",
		BibleAPIURL:         "https://bolls.life",
		DefaultTranslation:  "WEB",
		GeminiModel:         "gemini-1.5-flash-latest",
		SimilarityThreshold: 0.6,
		ExportDir:           ".",
	}
}

// LoadConfig fills AppConfig from defaults, the optional YAML file named by
// SERMON_CONFIG (sermon.yaml), a .env file and the environment, in that order.
func LoadConfig() {
	cfg, err := Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	AppConfig = cfg
}

// Load builds a Config without touching AppConfig.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}

	cfg := defaults()
	path := getEnv("SERMON_CONFIG", "sermon.yaml")
	if err := loadFile(path, &cfg); err != nil {
		return cfg, err
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.SermonFile = getEnv("SERMON_FILE", cfg.SermonFile)
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.LogLevel = strings.ToUpper(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.LogJournal = getEnvAsBool("LOG_JOURNAL", cfg.LogJournal)
	cfg.BibleAPIURL = strings.TrimRight(getEnv("BIBLE_API_URL", cfg.BibleAPIURL), "/")
	cfg.DefaultTranslation = getEnv("DEFAULT_TRANSLATION", cfg.DefaultTranslation)
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", "")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.SimilarityThreshold = getEnvAsFloat("SIMILARITY_THRESHOLD", cfg.SimilarityThreshold)
	cfg.ExportDir = getEnv("EXPORT_DIR", cfg.ExportDir)

	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		return cfg, fmt.Errorf("similarity threshold must be within [0,1], got %v", cfg.SimilarityThreshold)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
