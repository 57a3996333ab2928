package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppCfg struct{ Env, Port string }
type DBCfg struct{ DSN string }
type RedisCfg struct{ Addr string }

type GatewayCfg struct {
	BaseURL      string
	APIKey       string
	WebhookToken string // validates inbound confirmation callbacks
	TimeoutSec   int
}

type SecurityCfg struct {
	AdminToken      string // guards the admin listing API
	RateLimitPerMin int
}

type PendingCfg struct {
	TTL        time.Duration // how long an unconfirmed record stays fresh
	SweepEvery time.Duration
	SweepGrace time.Duration // expired records linger this long before the sweeper removes them
}

type Cfg struct {
	App     AppCfg
	DB      DBCfg
	Redis   RedisCfg
	Gateway GatewayCfg
	Sec     SecurityCfg
	Pending PendingCfg
}

func Load() Cfg {
	// .env is optional; real deployments set process env directly.
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", "sandbox")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("RATE_LIMIT_PER_MIN", 300)
	viper.SetDefault("GATEWAY_TIMEOUT_SEC", 30)
	viper.SetDefault("PENDING_TTL_MIN", 15)
	viper.SetDefault("SWEEP_EVERY_SEC", 60)
	viper.SetDefault("SWEEP_GRACE_MIN", 60)

	cfg := Cfg{
		App: AppCfg{
			Env:  viper.GetString("APP_ENV"),
			Port: viper.GetString("APP_PORT"),
		},
		DB:    DBCfg{DSN: viper.GetString("DB_DSN")},
		Redis: RedisCfg{Addr: viper.GetString("REDIS_ADDR")},
		Gateway: GatewayCfg{
			BaseURL:      viper.GetString("GATEWAY_BASE_URL"),
			APIKey:       viper.GetString("GATEWAY_API_KEY"),
			WebhookToken: strings.TrimSpace(viper.GetString("GATEWAY_WEBHOOK_TOKEN")),
			TimeoutSec:   viper.GetInt("GATEWAY_TIMEOUT_SEC"),
		},
		Sec: SecurityCfg{
			AdminToken:      strings.TrimSpace(viper.GetString("ADMIN_TOKEN")),
			RateLimitPerMin: viper.GetInt("RATE_LIMIT_PER_MIN"),
		},
		Pending: PendingCfg{
			TTL:        time.Duration(viper.GetInt("PENDING_TTL_MIN")) * time.Minute,
			SweepEvery: time.Duration(viper.GetInt("SWEEP_EVERY_SEC")) * time.Second,
			SweepGrace: time.Duration(viper.GetInt("SWEEP_GRACE_MIN")) * time.Minute,
		},
	}

	if cfg.DB.DSN == "" {
		log.Fatal().Msg("DB_DSN is required")
	}
	return cfg
}
