package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"sinedi/pkg/logger"
)

type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	JWT        JWTConfig
	Cloudinary CloudinaryConfig
	Firebase   FirebaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Wallet     WalletConfig
	Ledger     LedgerConfig
	Audit      AuditConfig
	Admin      AdminConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RateLimit is requests per minute per client IP; 0 disables it.
	RateLimit int
}

// StoreConfig selects the document store backend: firestore, mysql, postgres or memory.
type StoreConfig struct {
	Driver          string
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	// PushEnabled turns on FCM delivery for notifications.
	PushEnabled bool
}

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SessionTTL time.Duration
}

// KafkaConfig leaves Brokers empty to disable event publishing.
type KafkaConfig struct {
	Brokers string
	Topic   string
}

type WalletConfig struct {
	AdminFeePercent       int64
	MinWithdrawal         int64
	StudentOpeningBalance int64
	TutorOpeningBalance   int64
}

type LedgerConfig struct {
	MaxActiveJobs int
	PaymentWindow time.Duration
}

type AuditConfig struct {
	Schedule string
}

type AdminConfig struct {
	Username string
	Password string
	Name     string
}

func (c *Config) IsProduction() bool { return c.Server.Env == "production" }

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Info("[config] no .env file, using environment")
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8099"),
			Env:          getEnv("APP_ENV", "development"),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 10*time.Second),
			RateLimit:    getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
		},
		Store: StoreConfig{
			Driver:          getEnv("STORE_DRIVER", "memory"),
			DSN:             getEnv("STORE_DSN", ""),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", 168*time.Hour),
			Issuer:        getEnv("JWT_ISSUER", "sinedi"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
			APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			PushEnabled:     getEnvAsBool("FCM_ENABLED", false),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			SessionTTL: getEnvAsDuration("SESSION_TTL", 168*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers: getEnv("KAFKA_BROKERS", ""),
			Topic:   getEnv("KAFKA_TOPIC", "sinedi.notifications"),
		},
		Wallet: WalletConfig{
			AdminFeePercent:       int64(getEnvAsInt("WITHDRAW_FEE_PERCENT", 5)),
			MinWithdrawal:         int64(getEnvAsInt("WITHDRAW_MIN_AMOUNT", 50000)),
			StudentOpeningBalance: int64(getEnvAsInt("STUDENT_OPENING_BALANCE", 0)),
			TutorOpeningBalance:   int64(getEnvAsInt("TUTOR_OPENING_BALANCE", 0)),
		},
		Ledger: LedgerConfig{
			MaxActiveJobs: getEnvAsInt("MAX_ACTIVE_JOBS", 3),
			PaymentWindow: getEnvAsDuration("PAYMENT_WINDOW", 15*time.Minute),
		},
		Audit: AuditConfig{
			Schedule: getEnv("AUDIT_SCHEDULE", "@every 1h"),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Password: getEnv("ADMIN_PASSWORD", ""),
			Name:     getEnv("ADMIN_NAME", "Admin Sinedi"),
		},
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvAsDuration accepts Go durations ("15m") or plain seconds.
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
