package app

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	redisclient "github.com/yungbote/library-backend/internal/clients/redis"
	"github.com/yungbote/library-backend/internal/platform/logger"
	"github.com/yungbote/library-backend/internal/platform/sendgrid"
	"github.com/yungbote/library-backend/internal/temporalx"
)

type Clients struct {
	Locker   redisclient.Locker
	Mail     sendgrid.Client
	Temporal temporalsdkclient.Client
}

// wireClients connects optional backends. Redis and SendGrid fall back to
// in-process stand-ins when unconfigured; Temporal stays nil.
func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	if cfg.Redis.Addr != "" {
		locker, err := redisclient.NewLocker(log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis locker: %w", err)
		}
		c.Locker = locker
	} else {
		log.Info("REDIS_ADDR not set; using in-process scan lock")
		c.Locker = redisclient.NewLocalLocker()
	}

	if cfg.SendGrid.APIKey != "" {
		mail, err := sendgrid.New(log, cfg.SendGrid)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init sendgrid client: %w", err)
		}
		c.Mail = mail
	} else {
		log.Info("SENDGRID_API_KEY not set; notifications are logged only")
	}

	tc, err := temporalx.NewClient(ctx, log, cfg.Temporal)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}
	c.Temporal = tc
	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Locker != nil {
		_ = c.Locker.Close()
	}
}
