package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerHost     string
	IntakePort     string
	IVRPort        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers  []string
	KafkaGroupID  string
	RunQueueTopic string

	// Pipeline
	RunDispatch     string
	SettleDelay     time.Duration
	MaxPipelineRuns int
	UploadsDir      string

	// Plan rules and CPT terminology
	PlanRulesPath  string
	CPTCatalogPath string

	// Document extraction
	OCREndpoint   string
	OCRAPIKey     string
	OCRDeployment string
	OCRAPIVersion string
	OCRTimeout    time.Duration

	// IVR
	IVRSessionBackend string
	IVRSessionTTL     time.Duration

	// OIDC
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string

	// Rate limiting
	RateLimitRPS   int
	RateLimitBurst int
}

func Load() *Config {
	return &Config{
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		IntakePort:     getEnv("INTAKE_SERVICE_PORT", "8080"),
		IVRPort:        getEnv("IVR_SERVICE_PORT", "8081"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 16*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "clearintake"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "clearintake123"),
		PostgresDB:       getEnv("POSTGRES_DB", "clearintake"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:  getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "clearintake-platform"),
		RunQueueTopic: getEnv("KAFKA_RUN_TOPIC", "intake-run-requests"),

		RunDispatch:     getEnv("RUN_DISPATCH", "inline"),
		SettleDelay:     getDuration("PIPELINE_SETTLE_DELAY", 6*time.Second),
		MaxPipelineRuns: getIntEnv("PIPELINE_MAX_WORKERS", 4),
		UploadsDir:      getEnv("UPLOADS_DIR", "uploads"),

		PlanRulesPath:  getEnv("PLAN_RULES_PATH", ""),
		CPTCatalogPath: getEnv("CPT_CATALOG_PATH", ""),

		OCREndpoint:   getEnv("OCR_ENDPOINT", ""),
		OCRAPIKey:     getEnv("OCR_API_KEY", ""),
		OCRDeployment: getEnv("OCR_DEPLOYMENT", "gpt-4o"),
		OCRAPIVersion: getEnv("OCR_API_VERSION", "2024-06-01"),
		OCRTimeout:    getDuration("OCR_TIMEOUT", 60*time.Second),

		IVRSessionBackend: getEnv("IVR_SESSION_BACKEND", "memory"),
		IVRSessionTTL:     getDuration("IVR_SESSION_TTL", 30*time.Minute),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),

		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
