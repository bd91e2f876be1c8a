package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Market   MarketConfig
	Analysis AnalysisConfig
	Auth     AuthConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	LogLevel string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// MarketConfig holds the simulated market stream configuration
type MarketConfig struct {
	TickInterval time.Duration
}

// AnalysisConfig holds the external signal-analysis capability settings
type AnalysisConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// AutoScanInterval of zero disables background scanning.
	AutoScanInterval time.Duration
}

// AuthConfig selects the account store backend ("memory" or "postgres")
type AuthConfig struct {
	Backend string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the optional snapshot cache settings
type RedisConfig struct {
	Addr string
}

// KafkaConfig holds the optional alert-event export settings
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Market: MarketConfig{
			TickInterval: getDuration("MARKET_TICK_INTERVAL", time.Second),
		},
		Analysis: AnalysisConfig{
			BaseURL:          getEnv("ANALYSIS_BASE_URL", ""),
			APIKey:           getEnv("ANALYSIS_API_KEY", ""),
			Model:            getEnv("ANALYSIS_MODEL", "gemini-2.5-flash"),
			AutoScanInterval: getDuration("ANALYSIS_AUTOSCAN_INTERVAL", 0),
		},
		Auth: AuthConfig{
			Backend: getEnv("AUTH_BACKEND", "memory"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "signaldashboard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "alert-events"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// NewLogger builds the application logger at the configured level
func NewLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
