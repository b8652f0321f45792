package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "WHOSENT_"

type (
	Config struct {
		TelegramAPIToken string        `env:"TOKEN,required"`
		DefaultLanguage  string        `env:"LANG,default=ru"`
		LogLevel         int           `env:"LOG_LEVEL,default=4"`
		DotPath          string        `env:"DOT_PATH,default=~/.whosent"`
		DBName           string        `env:"DB_NAME,default=whosent.db"`
		MetricsAddr      string        `env:"METRICS_ADDR,default=:2112"`
		UpdateTimeout    time.Duration `env:"UPDATE_TIMEOUT,default=5m"`
		Bot              Bot
		Moderation       Moderation
	}

	Bot struct {
		Username        string `env:"BOT_USERNAME"`
		SupportUsername string `env:"SUPPORT_USERNAME"`
		RevealPrice     int    `env:"REVEAL_PRICE_STARS,default=25"`
	}

	Moderation struct {
		AdminID         int64  `env:"ADMIN_ID,required"`
		AdminUsername   string `env:"ADMIN_USERNAME"`
		ReportThreshold int    `env:"REPORT_THRESHOLD,default=3"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

// Load reads .env (when present) and the WHOSENT_ prefixed environment once.
func Load() (Config, error) {
	once.Do(func() {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.WithError(err).Warn("cant load .env")
		}
		cfg, err := Parse(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

// Parse builds a Config from an arbitrary lookuper, expanding the dot path.
func Parse(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper(envPrefix, lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, fmt.Errorf("expand dot path: %w", err)
	}
	cfg.DotPath = dotPath
	if cfg.Moderation.ReportThreshold < 1 {
		return nil, fmt.Errorf("report threshold must be positive, got %d", cfg.Moderation.ReportThreshold)
	}
	if cfg.Bot.RevealPrice < 0 {
		return nil, fmt.Errorf("reveal price must not be negative, got %d", cfg.Bot.RevealPrice)
	}
	return cfg, nil
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
