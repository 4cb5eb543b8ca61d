package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"quizarena-backend/internal/models"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool
	BcryptCost    int

	// Quiz
	QuizSize       int
	StartingTokens int
	FacetsTTL      time.Duration

	// Import
	ImportSources []models.ImportSource
	ImportTimeout time.Duration
	ImportWorkers int
	AutoSeed      bool

	// CORS for /api/v1
	AllowedOrigin string
}

// DefaultImportSources are the Open Trivia DB batches the bank is seeded from
// (computers, general knowledge, history).
var DefaultImportSources = []models.ImportSource{
	{Name: "opentdb-computers", URL: "https://opentdb.com/api.php?amount=50&category=18&type=multiple"},
	{Name: "opentdb-general", URL: "https://opentdb.com/api.php?amount=50&category=9&type=multiple"},
	{Name: "opentdb-history", URL: "https://opentdb.com/api.php?amount=50&category=23&type=multiple"},
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		Env:            getEnvOrDefault("ENV", "development"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		DatabaseURL:    mustGetEnv("DATABASE_URL"),
		RedisURL:       mustGetEnv("REDIS_URL"),
		SessionSecret:  mustGetEnv("SESSION_SECRET"),
		SessionTTL:     getEnvAsDurationOrDefault("SESSION_TTL", 12*time.Hour),
		CookieSecure:   getEnvAsBoolOrDefault("COOKIE_SECURE", false),
		BcryptCost:     bcryptCost(getEnvAsIntOrDefault("BCRYPT_COST", 12)),
		QuizSize:       getEnvAsIntOrDefault("QUIZ_SIZE", 5),
		StartingTokens: getEnvAsIntOrDefault("STARTING_TOKENS", 10),
		FacetsTTL:      getEnvAsDurationOrDefault("FACETS_TTL", 10*time.Minute),
		ImportSources:  DefaultImportSources,
		ImportTimeout:  getEnvAsDurationOrDefault("IMPORT_TIMEOUT", 20*time.Second),
		ImportWorkers:  getEnvAsIntOrDefault("IMPORT_WORKERS", 1),
		AutoSeed:       getEnvAsBoolOrDefault("AUTO_SEED", false),
		AllowedOrigin:  getEnvOrDefault("ALLOWED_ORIGIN", "http://localhost:8080"),
	}

	if path := os.Getenv("IMPORT_SOURCES_FILE"); path != "" {
		sources, err := LoadImportSources(path)
		if err != nil {
			panic(fmt.Sprintf("failed to load import sources: %v", err))
		}
		cfg.ImportSources = sources
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

type importSourcesFile struct {
	Sources []models.ImportSource `yaml:"sources"`
}

// LoadImportSources reads a YAML list of import sources:
//
//	sources:
//	  - name: opentdb-science
//	    url: https://opentdb.com/api.php?amount=50&category=17&type=multiple
func LoadImportSources(path string) ([]models.ImportSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file importSourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("%s lists no sources", path)
	}
	for i, s := range file.Sources {
		if s.URL == "" {
			return nil, fmt.Errorf("source %d has no url", i)
		}
		if s.Name == "" {
			file.Sources[i].Name = s.URL
		}
	}
	return file.Sources, nil
}

// bcryptCost keeps the configured cost inside the range bcrypt accepts.
func bcryptCost(n int) int {
	if n < bcrypt.MinCost || n > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return n
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
