package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"

	StorageLocal = "local"
	StorageMinio = "minio"
	StorageGCS   = "gcs"

	MQNone     = "none"
	MQMemory   = "memory"
	MQRabbitMQ = "rabbitmq"
	MQPubSub   = "pubsub"
)

type Config struct {
	Env         string
	ServerPort  int
	StoreDriver string
	Database    DatabaseConfig
	Mongo       MongoConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Storage     StorageConfig
	MQ          MQConfig
	Log         LogConfig
	RateLimit   RateLimitConfig
	Avatar      AvatarConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig configures the profile search cache. An empty URL disables it.
type RedisConfig struct {
	URL string
	TTL time.Duration
}

type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type StorageConfig struct {
	Backend       string
	LocalDir      string
	PublicBaseURL string
	Minio         MinioConfig
	GCS           GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool

	// PublicRead grants anonymous GetObject on avatars/* so the public
	// base URL can point straight at the bucket.
	PublicRead bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type MQConfig struct {
	Backend  string
	Channel  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

type LogConfig struct {
	Level string
	Dev   bool
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type AvatarConfig struct {
	Size      int
	MaxBytes  int64
	MaxPixels int
}

func LoadConfig() Config {
	env := getEnv("ENV", "prod")
	if env == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "heroverse"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "heroverse"),
		UseSSL:   getEnvBool("DB_SSL", false),
	}

	logDev := getEnvBool("LOG_DEV", env == "dev")
	logLevel := getEnv("LOG_LEVEL", "")
	if logLevel == "" {
		logLevel = "info"
		if logDev {
			logLevel = "debug"
		}
	}

	serverPort := getEnvInt("SERVER_PORT", 3000)

	return Config{
		Env:         env,
		ServerPort:  serverPort,
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		Database:    dbConfig,
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "HeroVerse"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
			TTL: getEnvDuration("REDIS_PROFILE_TTL", 30*time.Second),
		},
		Auth: AuthConfig{
			AccessSecret:  strings.TrimSpace(getEnv("JWT_SECRET", "")),
			RefreshSecret: strings.TrimSpace(getEnv("JWT_REFRESH_SECRET", "")),
			AccessTTL:     getEnvDuration("JWT_ACCESS_TTL", time.Hour),
			RefreshTTL:    getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		},
		Storage: StorageConfig{
			Backend:       strings.ToLower(getEnv("STORAGE_BACKEND", StorageLocal)),
			LocalDir:      getEnv("STORAGE_LOCAL_DIR", "assets"),
			PublicBaseURL: strings.TrimRight(getEnv("STORAGE_PUBLIC_URL", fmt.Sprintf("http://localhost:%d/assets", serverPort)), "/"),
			Minio: MinioConfig{
				Endpoint:   getEnv("MINIO_ENDPOINT", ""),
				AccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey:  getEnv("MINIO_SECRET_KEY", ""),
				Bucket:     getEnv("MINIO_BUCKET", "avatars"),
				UseSSL:     getEnvBool("MINIO_USE_SSL", false),
				PublicRead: getEnvBool("MINIO_PUBLIC_READ", false),
			},
			GCS: GCSConfig{
				Bucket:          getEnv("GCS_BUCKET", ""),
				ProjectID:       getEnv("GCS_PROJECT_ID", ""),
				CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
			},
		},
		MQ: MQConfig{
			Backend: strings.ToLower(getEnv("MQ_BACKEND", MQNone)),
			Channel: getEnv("MQ_CHANNEL", "user-events"),
			RabbitMQ: RabbitMQConfig{
				URL:             getEnv("RABBITMQ_URL", ""),
				QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
				QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
				PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 10),
			},
			PubSub: PubSubConfig{
				ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
				CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
				SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
			},
		},
		Log: LogConfig{
			Level: logLevel,
			Dev:   logDev,
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvFloat("AUTH_RATE_LIMIT_RPS", 5),
			Burst: getEnvInt("AUTH_RATE_LIMIT_BURST", 10),
		},
		Avatar: AvatarConfig{
			Size:      getEnvInt("AVATAR_SIZE", 256),
			MaxBytes:  int64(getEnvInt("AVATAR_MAX_BYTES", 5<<20)),
			MaxPixels: getEnvInt("AVATAR_MAX_PIXELS", 24_000_000),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value float64
		if _, err := fmt.Sscanf(valueStr, "%g", &value); err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(valueStr)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := time.ParseDuration(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}
