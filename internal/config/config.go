package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string

	HTTP      HTTPConfig
	Gemini    GeminiConfig
	News      NewsConfig
	WebSearch WebSearchConfig
	Redis     RedisConfig
	Log       LogConfig
}

type HTTPConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type NewsConfig struct {
	APIKey   string
	BaseURL  string
	Country  string
	PageSize int
	Timeout  time.Duration
}

type WebSearchConfig struct {
	BaseURL    string
	MaxResults int
	Timeout    time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	SessionTTL   time.Duration
	MaxTurns     int
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// Load reads .env (when present), applies defaults and validates the keys
// the collaborators cannot run without.
func Load() (*Config, error) {
	// A missing .env is fine in deployments that inject real env vars.
	_ = godotenv.Load()

	port, err := intEnv("PORT", 8080)
	if err != nil {
		return nil, err
	}

	pageSize, err := intEnv("NEWS_API_PAGE_SIZE", 10)
	if err != nil {
		return nil, err
	}

	maxResults, err := intEnv("WEB_SEARCH_MAX_RESULTS", 5)
	if err != nil {
		return nil, err
	}

	poolSize, err := intEnv("REDIS_POOL_SIZE", 10)
	if err != nil {
		return nil, err
	}

	maxTurns, err := intEnv("SESSION_MAX_TURNS", 50)
	if err != nil {
		return nil, err
	}

	temperature, err := floatEnv("GEMINI_TEMPERATURE", 0.7)
	if err != nil {
		return nil, err
	}

	maxTokens, err := intEnv("GEMINI_MAX_TOKENS", 1000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		HTTP: HTTPConfig{
			Port:         port,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Gemini: GeminiConfig{
			APIKey:      os.Getenv("GEMINI_API_KEY"),
			Model:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Temperature: temperature,
			MaxTokens:   maxTokens,
			Timeout:     60 * time.Second,
		},
		News: NewsConfig{
			APIKey:   os.Getenv("NEWS_API_KEY"),
			BaseURL:  getEnv("NEWS_API_BASE_URL", "https://newsapi.org/v2"),
			Country:  getEnv("NEWS_API_COUNTRY", "us"),
			PageSize: pageSize,
			Timeout:  15 * time.Second,
		},
		WebSearch: WebSearchConfig{
			BaseURL:    getEnv("WEB_SEARCH_BASE_URL", "https://html.duckduckgo.com/html/"),
			MaxResults: maxResults,
			Timeout:    15 * time.Second,
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
			PoolSize:     poolSize,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			SessionTTL:   24 * time.Hour,
			MaxTurns:     maxTurns,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	var missing []string
	if cfg.Gemini.APIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if cfg.News.APIKey == "" {
		missing = append(missing, "NEWS_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}

	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("PORT must be between 1 and 65535")
	}
	if cfg.News.PageSize <= 0 {
		return errors.New("NEWS_API_PAGE_SIZE must be positive")
	}
	if cfg.WebSearch.MaxResults <= 0 {
		return errors.New("WEB_SEARCH_MAX_RESULTS must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
