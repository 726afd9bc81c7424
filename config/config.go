package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	JWT     JWTConfig
	Kafka   KafkaConfig
	Mail    MailConfig
	Uploads UploadsConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DBConfig struct {
	Path string
}

type JWTConfig struct {
	SigningKey string // Secret key for JWT signing
	Issuer     string // JWT issuer claim
	TTLSeconds int    // access token lifetime
}

type KafkaConfig struct {
	Brokers string // comma-separated broker list, e.g. "kafka:9092"; empty disables the outbox
}

type MailConfig struct {
	ResendAPIKey string
	FromAddress  string
}

type UploadsConfig struct {
	Dir string // directory for processed donation images
}

// Load returns application configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		DB: DBConfig{
			Path: getEnv("DB_PATH", "foodbridge.db"),
		},
		JWT: JWTConfig{
			SigningKey: getEnv("JWT_SIGNING_KEY", ""),
			Issuer:     getEnv("JWT_ISSUER", "api.foodbridge.org"),
			TTLSeconds: getEnvInt("JWT_TTL_SECONDS", 86400), // 24 hours
		},
		Kafka: KafkaConfig{
			Brokers: getEnv("KAFKA_BROKERS", ""),
		},
		Mail: MailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromAddress:  getEnv("MAIL_FROM", "FoodBridge <notifications@foodbridge.org>"),
		},
		Uploads: UploadsConfig{
			Dir: getEnv("UPLOADS_DIR", "uploads"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
