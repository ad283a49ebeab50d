package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/escolanoar/vocacional/internal/engine"
)

// Config holds all configuration for the vocacional service.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	RabbitMQ   RabbitMQConfig
	Auth       AuthConfig
	Anthropic  AnthropicConfig
	Assessment AssessmentConfig
	Engine     engine.Config
}

type ServerConfig struct {
	Port            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	AutoMigrate bool
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// RedisConfig configures the question bank cache. An empty address disables it.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	BankTTL  time.Duration
}

// RabbitMQConfig configures result events. An empty URI disables publishing.
type RabbitMQConfig struct {
	URI      string
	Exchange string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// AnthropicConfig enables LLM-written summaries when an API key is present.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

type AssessmentConfig struct {
	MaxCompleted int
	SimilarDelta float64
}

// Load reads configuration from the environment, loading a .env file first
// when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARN: could not read .env: %v", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			AllowedOrigins:  []string{getEnv("CORS_ORIGIN", "*")},
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "vocacional"),
			Password: getEnv("DB_PASSWORD", "vocacional"),
			Name:     getEnv("DB_NAME", "vocacional"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			BankTTL:  getEnvAsDuration("REDIS_BANK_TTL", 10*time.Minute),
		},
		RabbitMQ: RabbitMQConfig{
			URI:      getEnv("RABBITMQ_URI", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "vocacional.events"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			TokenTTL:  getEnvAsDuration("JWT_TTL", 72*time.Hour),
		},
		Anthropic: AnthropicConfig{
			APIKey: getEnv("ANTHROPIC_API_KEY", ""),
			Model:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		},
		Assessment: AssessmentConfig{
			MaxCompleted: getEnvAsInt("VOC_MAX_COMPLETED", 2),
			SimilarDelta: getEnvAsFloat("VOC_SIMILAR_DELTA", engine.DefaultSimilarDelta),
		},
		Engine: engine.Config{
			Pass1PerDim:  getEnvAsInt("VOC_REF_PASS1_PER_DIM", engine.DefaultPass1PerDim),
			Pass2PerDim:  getEnvAsInt("VOC_REF_PASS2_PER_DIM", engine.DefaultPass2PerDim),
			Pass2TopK:    getEnvAsInt("VOC_REF_PASS2_TOPK", engine.DefaultPass2TopK),
			SoftmaxTau:   getEnvAsFloat("VOC_REF_SOFTMAX_TAU", engine.DefaultSoftmaxTau),
			GapStopP1:    getEnvAsFloat("VOC_REF_GAP_STOP_P1", engine.DefaultGapStopP1),
			Top1MinP1:    getEnvAsFloat("VOC_REF_TOP1_MIN_P1", engine.DefaultTop1MinP1),
			GapStopP2:    getEnvAsFloat("VOC_REF_GAP_STOP_P2", engine.DefaultGapStopP2),
			Top1MinP2:    getEnvAsFloat("VOC_REF_TOP1_MIN_P2", engine.DefaultTop1MinP2),
			SJTDelta:     getEnvAsFloat("VOC_REF_SJT_DELTA", engine.DefaultSJTDelta),
			ContextDelta: getEnvAsFloat("VOC_REF_CONTEXT_DELTA", engine.DefaultContextDelta),
		}.Normalize(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate rejects settings the process cannot start with. Engine knobs are
// clamped rather than rejected.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %q", c.Server.Port)
	}
	if c.Database.Host == "" || c.Database.Name == "" {
		return fmt.Errorf("database host and name are required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Assessment.MaxCompleted < 1 {
		return fmt.Errorf("invalid VOC_MAX_COMPLETED: %d", c.Assessment.MaxCompleted)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
