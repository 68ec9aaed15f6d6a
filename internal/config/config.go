package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBURL      string

	RunMigrations bool

	JWTSecret string
	JWTTTL    time.Duration

	ImageStore     string
	UploadDir      string
	MaxUploadBytes int64

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	GeocoderAPIKey  string
	GeocoderBaseURL string
	GeocoderTimeout time.Duration
	GeocodeCacheTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTLPEndpoint string

	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// required lists the variables the API refuses to start without.
var required = []string{"DB_USER", "DB_PASSWORD", "DB_NAME", "JWT_PRIVATE_KEY"}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env file", "err", err)
	}

	cfg := Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 5000),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RunMigrations: getEnvBool("RUN_MIGRATIONS", true),

		JWTSecret: os.Getenv("JWT_PRIVATE_KEY"),
		JWTTTL:    getEnvDuration("JWT_TTL", time.Hour),

		ImageStore:     strings.ToLower(getEnv("IMAGE_STORE", "disk")),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads/images"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 500000)),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    os.Getenv("S3_BUCKET_NAME"),
		S3UseSSL:    getEnvBool("S3_USE_SSL", false),

		GeocoderAPIKey:  os.Getenv("GOOGLE_API_KEY"),
		GeocoderBaseURL: getEnv("GEOCODER_BASE_URL", "https://maps.googleapis.com/maps/api/geocode/json"),
		GeocoderTimeout: getEnvDuration("GEOCODER_TIMEOUT", 5*time.Second),
		GeocodeCacheTTL: getEnvDuration("GEOCODE_CACHE_TTL", 24*time.Hour),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		AuthRateLimit:  getEnvInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindow: getEnvDuration("AUTH_RATE_WINDOW", time.Minute),
	}

	cfg.DBURL = cfg.buildDBURL()

	return cfg
}

// Validate reports every missing required variable at once.
func (c Config) Validate() error {
	values := map[string]string{
		"DB_USER":         c.DBUser,
		"DB_PASSWORD":     c.DBPassword,
		"DB_NAME":         c.DBName,
		"JWT_PRIVATE_KEY": c.JWTSecret,
	}

	var missing []string
	for _, key := range required {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if c.ImageStore != "disk" && c.ImageStore != "s3" {
		return fmt.Errorf("IMAGE_STORE must be disk or s3, got %q", c.ImageStore)
	}

	if c.ImageStore == "s3" && (c.S3Endpoint == "" || c.S3Bucket == "") {
		return fmt.Errorf("IMAGE_STORE=s3 requires S3_ENDPOINT and S3_BUCKET_NAME")
	}

	return nil
}

func (c Config) buildDBURL() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean in environment, using default", "key", key, "value", v)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		slog.Warn("invalid duration in environment, using default", "key", key, "value", v)
	}
	return fallback
}
