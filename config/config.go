package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yeremiapane/restqr/utils"
)

type Config struct {
	Port    string
	GinMode string

	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MenuCacheTTL  time.Duration

	SessionDuration    time.Duration
	TokenCreateRetries int
	PublicBaseURL      string

	OrderRateLimit float64
	OrderRateBurst int
	CORSOrigins    []string

	KDSBuffer  int
	KDSChannel string

	LogLevel  string
	LogFormat string

	OTLPEndpoint string
	ServiceName  string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "restqr.db")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("MENU_CACHE_TTL", "5m")
	v.SetDefault("SESSION_DURATION", "2h")
	v.SetDefault("TOKEN_CREATE_RETRIES", 5)
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("ORDER_RATE_LIMIT", 5.0)
	v.SetDefault("ORDER_RATE_BURST", 10)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("KDS_BUFFER", 32)
	v.SetDefault("KDS_CHANNEL", "restqr:kds")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("SERVICE_NAME", "restqr")
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Debug("no .env file found, using process environment")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Port:               v.GetString("PORT"),
		GinMode:            v.GetString("GIN_MODE"),
		DBDriver:           strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:              v.GetString("DB_DSN"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		MenuCacheTTL:       v.GetDuration("MENU_CACHE_TTL"),
		SessionDuration:    v.GetDuration("SESSION_DURATION"),
		TokenCreateRetries: v.GetInt("TOKEN_CREATE_RETRIES"),
		PublicBaseURL:      strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		OrderRateLimit:     v.GetFloat64("ORDER_RATE_LIMIT"),
		OrderRateBurst:     v.GetInt("ORDER_RATE_BURST"),
		CORSOrigins:        splitList(v.GetString("CORS_ORIGINS")),
		KDSBuffer:          v.GetInt("KDS_BUFFER"),
		KDSChannel:         v.GetString("KDS_CHANNEL"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
		OTLPEndpoint:       v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:        v.GetString("SERVICE_NAME"),
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
