package app

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	redisclient "github.com/yungbote/library-backend/internal/clients/redis"
	"github.com/yungbote/library-backend/internal/data/db"
	"github.com/yungbote/library-backend/internal/jobs/schedule"
	"github.com/yungbote/library-backend/internal/jobs/worker"
	"github.com/yungbote/library-backend/internal/observability"
	"github.com/yungbote/library-backend/internal/platform/envutil"
	"github.com/yungbote/library-backend/internal/platform/sendgrid"
	"github.com/yungbote/library-backend/internal/services"
	"github.com/yungbote/library-backend/internal/temporalx"
)

const configFileEnv = "LIBRARY_CONFIG_FILE"

// Config is read from the optional YAML file named by LIBRARY_CONFIG_FILE,
// then overridden field by field from the environment.
type Config struct {
	Port        string   `yaml:"port"`
	LogMode     string   `yaml:"log_mode"`
	CORSOrigins []string `yaml:"cors_origins"`

	Postgres db.Config                `yaml:"postgres"`
	Ledger   services.LedgerConfig    `yaml:"ledger"`
	Worker   worker.Config            `yaml:"worker"`
	Scan     schedule.Config          `yaml:"overdue_scan"`
	Temporal temporalx.Config         `yaml:"temporal"`
	Otel     observability.OtelConfig `yaml:"otel"`

	Redis    redisclient.Config `yaml:"-"`
	SendGrid sendgrid.Config    `yaml:"-"`
}

func defaultConfig() Config {
	return Config{
		Port:    "8080",
		LogMode: "development",
		Scan:    schedule.Config{Enabled: true},
		Otel:    observability.OtelConfig{ServiceName: "library-backend", SampleRatio: 1},
	}
}

func LoadConfig() (Config, error) {
	cfg := defaultConfig()
	if path := strings.TrimSpace(os.Getenv(configFileEnv)); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", configFileEnv, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	if raw := envutil.String("CORS_ORIGINS", ""); raw != "" {
		cfg.CORSOrigins = strings.Split(raw, ",")
	}

	cfg.Postgres = db.ConfigFromEnv(cfg.Postgres)
	cfg.Ledger.DefaultPeriodDays = envutil.Int("LOAN_DEFAULT_PERIOD_DAYS", cfg.Ledger.DefaultPeriodDays)
	cfg.Ledger.MaxExtensionDays = envutil.Int("LOAN_MAX_EXTENSION_DAYS", cfg.Ledger.MaxExtensionDays)
	cfg.Worker = worker.ConfigFromEnv(cfg.Worker)
	cfg.Scan = schedule.ConfigFromEnv(cfg.Scan)
	cfg.Temporal = temporalx.LoadConfig(cfg.Temporal)
	cfg.Otel = observability.OtelConfigFromEnv(cfg.Otel)

	cfg.Redis = redisclient.ConfigFromEnv()
	cfg.SendGrid = sendgrid.ConfigFromEnv()
	return cfg
}
