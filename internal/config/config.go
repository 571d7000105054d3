package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"
)

type Config struct {
	Env      string
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	LLM      LLMConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StoreConfig struct {
	Driver         string
	DataDir        string
	DefaultAccount string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type LLMConfig struct {
	Provider           string
	APIKey             string
	BaseURL            string
	Model              string
	Timeout            time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
	MaxOutputTokens    int
	Warmup             bool
}

// Load загружает конфигурацию приложения из окружения и .env.
func Load() (Config, error) {
	cfg := Config{}

	if err := loadEnv(); err != nil {
		return cfg, err
	}

	cfg.Env = getEnv("APP_ENV", "local")

	serverPort, err := parseIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return cfg, err
	}

	readTimeout, err := parseDurationEnv("SERVER_READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return cfg, err
	}

	writeTimeout, err := parseDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return cfg, err
	}

	idleTimeout, err := parseDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return cfg, err
	}

	cfg.Server = ServerConfig{
		Host:         getEnv("SERVER_HOST", "0.0.0.0"),
		Port:         serverPort,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	cfg.Store = StoreConfig{
		Driver:         strings.ToLower(getEnv("STORE_DRIVER", StoreDriverFile)),
		DataDir:        getEnv("STORE_DATA_DIR", "data"),
		DefaultAccount: getEnv("STORE_DEFAULT_ACCOUNT", "A123"),
	}

	dbPort, err := parseIntEnv("DB_PORT", 5432)
	if err != nil {
		return cfg, err
	}

	maxOpenConns, err := parseIntEnv("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return cfg, err
	}

	connMaxIdleTime, err := parseDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	if err != nil {
		return cfg, err
	}

	connMaxLifetime, err := parseDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return cfg, err
	}

	cfg.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            dbPort,
		User:            getEnv("DB_USER", "banking"),
		Password:        getEnv("DB_PASSWORD", "banking"),
		Name:            getEnv("DB_NAME", "banking_assistant"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		ConnMaxIdleTime: connMaxIdleTime,
		ConnMaxLifetime: connMaxLifetime,
	}

	llmTimeout, err := parseDurationEnv("LLM_TIMEOUT", 120*time.Second)
	if err != nil {
		return cfg, err
	}

	llmRateLimitPerMinute, err := parseIntEnv("LLM_RATE_LIMIT_PER_MINUTE", 30)
	if err != nil {
		return cfg, err
	}

	llmRateLimitBurst, err := parseIntEnv("LLM_RATE_LIMIT_BURST", 10)
	if err != nil {
		return cfg, err
	}

	llmMaxOutputTokens, err := parseIntEnv("LLM_MAX_OUTPUT_TOKENS", 1024)
	if err != nil {
		return cfg, err
	}

	llmWarmup, err := parseBoolEnv("LLM_WARMUP", false)
	if err != nil {
		return cfg, err
	}

	llmProvider := strings.ToLower(getEnv("LLM_PROVIDER", "ollama"))
	defaultBaseURL := "http://localhost:11434"
	defaultModel := "llama3.2:latest"
	if llmProvider == "openai" {
		defaultBaseURL = "https://api.openai.com/v1"
		defaultModel = "gpt-4o-mini"
	}

	cfg.LLM = LLMConfig{
		Provider:           llmProvider,
		APIKey:             getEnv("LLM_API_KEY", ""),
		BaseURL:            getEnv("LLM_BASE_URL", defaultBaseURL),
		Model:              getEnv("LLM_MODEL", defaultModel),
		Timeout:            llmTimeout,
		RateLimitPerMinute: llmRateLimitPerMinute,
		RateLimitBurst:     llmRateLimitBurst,
		MaxOutputTokens:    llmMaxOutputTokens,
		Warmup:             llmWarmup,
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// DSN возвращает строку подключения к базе данных.
func (c DatabaseConfig) DSN() string {
	user := url.UserPassword(c.User, c.Password)
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	return dsn.String() + "?" + query.Encode()
}

func (c Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("SERVER_PORT must be greater than 0")
	}

	switch c.Store.Driver {
	case StoreDriverFile, StoreDriverPostgres:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverFile, StoreDriverPostgres)
	}

	if c.Store.Driver == StoreDriverFile && c.Store.DataDir == "" {
		return fmt.Errorf("STORE_DATA_DIR is required for the file driver")
	}

	if c.Store.Driver == StoreDriverPostgres {
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	}

	if c.Store.DefaultAccount == "" {
		return fmt.Errorf("STORE_DEFAULT_ACCOUNT is required")
	}

	if c.LLM.RateLimitPerMinute <= 0 {
		return fmt.Errorf("LLM_RATE_LIMIT_PER_MINUTE must be greater than 0")
	}

	if c.LLM.RateLimitBurst <= 0 {
		return fmt.Errorf("LLM_RATE_LIMIT_BURST must be greater than 0")
	}

	if c.LLM.MaxOutputTokens <= 0 {
		return fmt.Errorf("LLM_MAX_OUTPUT_TOKENS must be greater than 0")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	return value, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}

	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	return value, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}

	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}

	return value, nil
}

func loadEnv() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}

	return nil
}
