package sendgrid

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/library-backend/internal/platform/envutil"
)

const (
	defaultBaseURL  = "https://api.sendgrid.com"
	defaultTimeout  = 30 * time.Second
	defaultFromName = "Library"
)

type Config struct {
	APIKey           string
	BaseURL          string
	DefaultFromEmail string
	DefaultFromName  string
	Timeout          time.Duration
	MaxRetries       int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:           envutil.String("SENDGRID_API_KEY", ""),
		BaseURL:          envutil.String("SENDGRID_BASE_URL", defaultBaseURL),
		DefaultFromEmail: envutil.String("SENDGRID_FROM_EMAIL", ""),
		DefaultFromName:  envutil.String("SENDGRID_FROM_NAME", defaultFromName),
		Timeout:          envutil.Duration("SENDGRID_TIMEOUT", defaultTimeout),
		MaxRetries:       envutil.Int("SENDGRID_MAX_RETRIES", 3),
	}
}

// normalize fills defaults and rejects a config that cannot send anything.
func (c Config) normalize() (Config, error) {
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.APIKey == "" {
		return c, fmt.Errorf("missing SENDGRID_API_KEY")
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	c.DefaultFromEmail = strings.TrimSpace(c.DefaultFromEmail)
	if strings.TrimSpace(c.DefaultFromName) == "" {
		c.DefaultFromName = defaultFromName
	}
	return c, nil
}
