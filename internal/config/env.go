package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Env struct {
	AppAddr   string
	GinMode   string
	LogLevel  string
	LogFormat string

	DBUser     string
	DBPassword string
	DBHost     string
	DBName     string
	DBParams   string

	RedisURL       string
	IdempotencyTTL time.Duration

	RabbitMQURL  string
	NotifyQueue  string
	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret          string
	AdminKeyHash       string
	CORSAllowedOrigins []string

	ModifyCutoff       time.Duration
	MaxGroupSeats      int
	TombstoneRetention time.Duration

	DispatchWorkers     int
	DispatchQueue       int
	DispatchMaxAttempts int
	DispatchBackoff     time.Duration

	RecalcTiersOnStartup bool
	AutoMigrate          bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ADDR", ":8080")
	v.SetDefault("GIN_MODE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_HOST", "127.0.0.1:3306")
	v.SetDefault("DB_NAME", "seatledger")
	v.SetDefault("DB_PARAMS", "parseTime=true&loc=Local&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("NOTIFY_QUEUE", "booking.notifications")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "booking.events")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ADMIN_KEY_HASH", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("MODIFY_CUTOFF", "2h")
	v.SetDefault("MAX_GROUP_SEATS", 10)
	v.SetDefault("TOMBSTONE_RETENTION", "720h")
	v.SetDefault("DISPATCH_WORKERS", 4)
	v.SetDefault("DISPATCH_QUEUE", 256)
	v.SetDefault("DISPATCH_MAX_ATTEMPTS", 3)
	v.SetDefault("DISPATCH_BACKOFF", "500ms")
	v.SetDefault("RECALC_TIERS_ON_STARTUP", false)
	v.SetDefault("AUTO_MIGRATE", true)
}

// LoadEnv reads an optional .env file then the process environment.
func LoadEnv() Env {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) Env {
	return Env{
		AppAddr:   strings.TrimSpace(v.GetString("APP_ADDR")),
		GinMode:   strings.TrimSpace(v.GetString("GIN_MODE")),
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBHost:     v.GetString("DB_HOST"),
		DBName:     v.GetString("DB_NAME"),
		DBParams:   v.GetString("DB_PARAMS"),

		RedisURL:       strings.TrimSpace(v.GetString("REDIS_URL")),
		IdempotencyTTL: v.GetDuration("IDEMPOTENCY_TTL"),

		RabbitMQURL:  strings.TrimSpace(v.GetString("RABBITMQ_URL")),
		NotifyQueue:  v.GetString("NOTIFY_QUEUE"),
		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("KAFKA_TOPIC"),

		JWTSecret:          v.GetString("JWT_SECRET"),
		AdminKeyHash:       strings.TrimSpace(v.GetString("ADMIN_KEY_HASH")),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		ModifyCutoff:       v.GetDuration("MODIFY_CUTOFF"),
		MaxGroupSeats:      v.GetInt("MAX_GROUP_SEATS"),
		TombstoneRetention: v.GetDuration("TOMBSTONE_RETENTION"),

		DispatchWorkers:     v.GetInt("DISPATCH_WORKERS"),
		DispatchQueue:       v.GetInt("DISPATCH_QUEUE"),
		DispatchMaxAttempts: v.GetInt("DISPATCH_MAX_ATTEMPTS"),
		DispatchBackoff:     v.GetDuration("DISPATCH_BACKOFF"),

		RecalcTiersOnStartup: v.GetBool("RECALC_TIERS_ON_STARTUP"),
		AutoMigrate:          v.GetBool("AUTO_MIGRATE"),
	}
}

// DSN builds the go-sql-driver/mysql data source name.
func (e Env) DSN() string {
	dsn := e.DBUser + ":" + e.DBPassword + "@tcp(" + e.DBHost + ")/" + e.DBName
	if e.DBParams != "" {
		dsn += "?" + e.DBParams
	}
	return dsn
}

func splitList(raw string) []string {
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
