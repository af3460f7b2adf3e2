package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppCfg struct{ Env, Port, BaseURL string }
type DBCfg struct{ DSN string }
type RedisCfg struct{ Addr string }

type AuthCfg struct {
	JWTSecret  []byte
	TokenTTL   time.Duration
	ResetTTL   time.Duration
	AdminToken string // guards the operator bootstrap endpoint
}

type StorageCfg struct {
	Dir           string
	PublicURL     string
	MaxProofBytes int64
}

type RateCfg struct {
	URL string
	TTL time.Duration
}

type BinanceCfg struct {
	APIKey        string
	SecretKey     string
	BaseURL       string
	WebhookMaxAge time.Duration
}

type SMTPCfg struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

type WorkerCfg struct {
	PollInterval time.Duration
	BatchSize    int
}

type Cfg struct {
	App      AppCfg
	DB       DBCfg
	Redis    RedisCfg
	Auth     AuthCfg
	Storage  StorageCfg
	Rate     RateCfg
	Binance  BinanceCfg
	SMTP     SMTPCfg
	Worker   WorkerCfg
	LogLevel string
}

// IsProduction reports whether the service runs with production settings.
func (c Cfg) IsProduction() bool { return c.App.Env == "production" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("RESET_TTL", "30m")
	v.SetDefault("STORAGE_DIR", "./data/payment-proofs")
	v.SetDefault("MAX_PROOF_BYTES", 5<<20)
	v.SetDefault("RATE_URL", "https://criptoya.com/api/binancep2p/USDT/VES/0.1")
	v.SetDefault("RATE_TTL", "60s")
	v.SetDefault("BINANCE_BASE_URL", "https://bpay.binanceapi.com")
	v.SetDefault("BINANCE_WEBHOOK_MAX_SKEW", "5m")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("WORKER_POLL_INTERVAL", "2s")
	v.SetDefault("WORKER_BATCH_SIZE", 50)
}

// FromViper builds a Cfg from an already populated viper instance.
func FromViper(v *viper.Viper) Cfg {
	baseURL := strings.TrimRight(v.GetString("APP_BASE_URL"), "/")
	publicURL := strings.TrimRight(v.GetString("STORAGE_PUBLIC_URL"), "/")
	if publicURL == "" {
		publicURL = baseURL + "/proofs"
	}

	return Cfg{
		App: AppCfg{
			Env:     v.GetString("APP_ENV"),
			Port:    v.GetString("APP_PORT"),
			BaseURL: baseURL,
		},
		DB:    DBCfg{DSN: v.GetString("DB_DSN")},
		Redis: RedisCfg{Addr: v.GetString("REDIS_ADDR")},
		Auth: AuthCfg{
			JWTSecret:  []byte(v.GetString("JWT_SECRET")),
			TokenTTL:   v.GetDuration("JWT_TTL"),
			ResetTTL:   v.GetDuration("RESET_TTL"),
			AdminToken: strings.TrimSpace(v.GetString("ADMIN_TOKEN")),
		},
		Storage: StorageCfg{
			Dir:           v.GetString("STORAGE_DIR"),
			PublicURL:     publicURL,
			MaxProofBytes: v.GetInt64("MAX_PROOF_BYTES"),
		},
		Rate: RateCfg{
			URL: v.GetString("RATE_URL"),
			TTL: v.GetDuration("RATE_TTL"),
		},
		Binance: BinanceCfg{
			APIKey:        v.GetString("BINANCE_API_KEY"),
			SecretKey:     v.GetString("BINANCE_SECRET_KEY"),
			BaseURL:       strings.TrimRight(v.GetString("BINANCE_BASE_URL"), "/"),
			WebhookMaxAge: v.GetDuration("BINANCE_WEBHOOK_MAX_SKEW"),
		},
		SMTP: SMTPCfg{
			Host: v.GetString("SMTP_HOST"),
			Port: v.GetInt("SMTP_PORT"),
			User: v.GetString("SMTP_USER"),
			Pass: v.GetString("SMTP_PASS"),
			From: v.GetString("SMTP_FROM"),
		},
		Worker: WorkerCfg{
			PollInterval: v.GetDuration("WORKER_POLL_INTERVAL"),
			BatchSize:    v.GetInt("WORKER_BATCH_SIZE"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}
}

func Load() Cfg {
	// .env is optional; real env always wins
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := FromViper(v)

	// Fail fast on required settings
	if cfg.DB.DSN == "" {
		log.Fatal().Msg("DB_DSN is required")
	}
	if len(cfg.Auth.JWTSecret) < 16 {
		log.Fatal().Msg("JWT_SECRET must be at least 16 bytes")
	}
	if cfg.Binance.SecretKey == "" {
		log.Warn().Msg("BINANCE_SECRET_KEY not set: hosted checkout and webhooks are disabled")
	}

	return cfg
}

// SetupLogger configures the global zerolog logger.
func SetupLogger(cfg Cfg) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
