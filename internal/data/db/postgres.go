package db

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/library-backend/internal/platform/envutil"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

type Config struct {
	// DSN wins over the discrete fields when set.
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`

	MaxOpenConns  int           `yaml:"max_open_conns"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

// ConfigFromEnv layers POSTGRES_* variables over base and fills defaults.
func ConfigFromEnv(base Config) Config {
	c := base
	c.DSN = envutil.String("POSTGRES_DSN", c.DSN)
	c.Host = envutil.String("POSTGRES_HOST", orDefault(c.Host, "localhost"))
	c.Port = envutil.String("POSTGRES_PORT", orDefault(c.Port, "5432"))
	c.User = envutil.String("POSTGRES_USER", orDefault(c.User, "postgres"))
	c.Password = envutil.String("POSTGRES_PASSWORD", c.Password)
	c.Name = envutil.String("POSTGRES_NAME", orDefault(c.Name, "library"))
	c.SSLMode = envutil.String("POSTGRES_SSLMODE", orDefault(c.SSLMode, "disable"))
	c.MaxOpenConns = envutil.Int("POSTGRES_MAX_OPEN_CONNS", c.MaxOpenConns)
	c.SlowThreshold = envutil.Duration("POSTGRES_SLOW_THRESHOLD", c.SlowThreshold)
	return c
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// ConnString builds a postgres:// URL, escaping credentials.
func (c Config) ConnString() string {
	if dsn := strings.TrimSpace(c.DSN); dsn != "" {
		return dsn
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {orDefault(c.SSLMode, "disable")}}.Encode(),
	}
	return u.String()
}

// PostgresService owns the application's connection pool.
type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(baseLog *logger.Logger, cfg Config) (*PostgresService, error) {
	log := baseLog.With("service", "PostgresService")

	slow := cfg.SlowThreshold
	if slow <= 0 {
		slow = time.Second
	}
	db, err := gorm.Open(postgres.Open(cfg.ConnString()), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
		Logger: gormlogger.New(gormWriter{log}, gormlogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres %s/%s: %w", cfg.Host, cfg.Name, err)
	}
	if cfg.MaxOpenConns > 0 {
		pool, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	log.Info("connected to Postgres", "host", cfg.Host, "database", cfg.Name)
	return &PostgresService{db: db, log: log}, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

func (s *PostgresService) Close() error {
	pool, err := s.db.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// gormWriter sends GORM's slow-query and error lines through the service
// logger.
type gormWriter struct{ log *logger.Logger }

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn("gorm", "detail", strings.TrimSpace(fmt.Sprintf(format, args...)))
}
