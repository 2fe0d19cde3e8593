package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Payment  PaymentConfig
	Booking  BookingConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	CORSAllowedOrigins []string
}

type DatabaseConfig struct {
	// DSN empty means the service runs on the seeded in-memory store.
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxLifetime     time.Duration
	AutoMigrate     bool
	SeedData        bool
	FallbackEnabled bool
}

type RedisConfig struct {
	// Addr empty selects the in-process verification lock.
	Addr          string
	VerifyLockTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	TicketsIssued string
	PaymentStatus string
}

type PaymentConfig struct {
	CallbackURL string
	InitDelay   time.Duration
	VerifyDelay time.Duration
}

type BookingConfig struct {
	DiscountCode    string
	DiscountPercent int
	QRSecretKey     string
}

type LogConfig struct {
	Dir   string
	Level string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", ":8080"),
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			IdleTimeout:        60 * time.Second,
			CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:     time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
			SeedData:        getEnvBool("DB_SEED_DATA", false),
			FallbackEnabled: getEnvBool("DB_FALLBACK_ENABLED", true),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", ""),
			VerifyLockTTL: time.Duration(getEnvInt("VERIFY_LOCK_TTL_SECONDS", 30)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				TicketsIssued: getEnv("KAFKA_TOPIC_TICKETS_ISSUED", "tickets.issued"),
				PaymentStatus: getEnv("KAFKA_TOPIC_PAYMENT_STATUS", "payment.status"),
			},
		},
		Payment: PaymentConfig{
			CallbackURL: getEnv("PAYMENT_CALLBACK_URL", "/payment/verify"),
			InitDelay:   getEnvDuration("PAYMENT_INIT_DELAY", time.Second),
			VerifyDelay: getEnvDuration("PAYMENT_VERIFY_DELAY", 500*time.Millisecond),
		},
		Booking: BookingConfig{
			DiscountCode:    getEnv("BOOKING_DISCOUNT_CODE", "SAVE10"),
			DiscountPercent: getEnvInt("BOOKING_DISCOUNT_PERCENT", 10),
			QRSecretKey:     getEnv("QR_SECRET_KEY", "fitness-center-qr-secret"),
		},
		Log: LogConfig{
			Dir:   getEnv("LOG_DIR", ""),
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("750ms") or a bare count of milliseconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil && parsed >= 0 {
		return parsed
	}
	if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
