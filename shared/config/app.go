package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// AppConfig holds the settings shared by the binaries
type AppConfig struct {
	Database *DatabaseConfig

	AuthPort    string
	HostelPort  string
	WorkerPort  string
	GatewayPort string

	AuthServiceURL   string
	HostelServiceURL string
	WorkerServiceURL string
	AllowedOrigins   []string

	KafkaBroker  string
	KafkaTopic   string
	KafkaGroupID string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	AWSRegion           string
	CognitoUserPoolID   string
	CognitoClientID     string
	CognitoClientSecret string
	CognitoAutoConfirm  bool
	VerifyTokens        bool

	StatsCacheTTL     time.Duration
	ReconcileInterval time.Duration
}

// LoadEnv loads an optional .env file into the process environment
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}
}

// Load reads AppConfig from the environment
func Load() *AppConfig {
	return &AppConfig{
		Database: GetDatabaseConfig(),

		AuthPort:    getEnv("AUTH_SERVICE_PORT", "8001"),
		HostelPort:  getEnv("HOSTEL_SERVICE_PORT", "8002"),
		WorkerPort:  getEnv("WORKER_PORT", "8003"),
		GatewayPort: getEnv("GATEWAY_PORT", "8000"),

		AuthServiceURL:   getEnv("AUTH_SERVICE_URL", "http://localhost:8001"),
		HostelServiceURL: getEnv("HOSTEL_SERVICE_URL", "http://localhost:8002"),
		WorkerServiceURL: getEnv("WORKER_SERVICE_URL", "http://localhost:8003"),
		AllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		KafkaBroker:  getEnv("KAFKA_BROKER", "localhost:9092"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "hostel-events"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "hostel-worker"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		CognitoUserPoolID:   os.Getenv("COGNITO_USER_POOL_ID"),
		CognitoClientID:     os.Getenv("COGNITO_CLIENT_ID"),
		CognitoClientSecret: os.Getenv("COGNITO_CLIENT_SECRET"),
		CognitoAutoConfirm:  getEnvBool("COGNITO_AUTO_CONFIRM", false),
		VerifyTokens:        getEnvBool("VERIFY_TOKEN_SIGNATURE", true),

		StatsCacheTTL:     getEnvDuration("STATS_CACHE_TTL", 5*time.Minute),
		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 15*time.Minute),
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logrus.WithField("key", key).Warnf("Invalid integer %q, using default %d", value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		logrus.WithField("key", key).Warnf("Invalid boolean %q, using default %t", value, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logrus.WithField("key", key).Warnf("Invalid duration %q, using default %s", value, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
