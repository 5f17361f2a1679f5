package temporalx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/library-backend/internal/platform/logger"
)

const namespaceRetention = 7 * 24 * time.Hour

// NewClient dials Temporal, retrying until DialMaxWait while the server comes
// up. It returns (nil, nil) when Temporal is not configured.
func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (client.Client, error) {
	if !cfg.Enabled() {
		log.Info("Temporal disabled (no address)")
		return nil, nil
	}
	opts, err := options(log, cfg)
	if err != nil {
		return nil, err
	}
	opts.Namespace = cfg.Namespace

	var c client.Client
	err = retry(ctx, log, "dial", cfg.DialMaxWait, func(ctx context.Context) error {
		dctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
		var derr error
		c, derr = client.DialContext(dctx, opts)
		return derr
	}, func(error) bool { return true })
	if err != nil {
		return nil, fmt.Errorf("temporal dial %s/%s: %w", cfg.Address, cfg.Namespace, err)
	}

	if cfg.AutoRegisterNamespace {
		if err := EnsureNamespace(ctx, log, cfg); err != nil {
			c.Close()
			return nil, err
		}
	}
	log.Info("Temporal connected", "address", cfg.Address, "namespace", cfg.Namespace)
	return c, nil
}

func options(log *logger.Logger, cfg Config) (client.Options, error) {
	tlsCfg, err := cfg.tlsConfig()
	if err != nil {
		return client.Options{}, err
	}
	opts := client.Options{HostPort: cfg.Address, Logger: log}
	opts.ConnectionOptions.TLS = tlsCfg
	return opts, nil
}

// EnsureNamespace registers cfg.Namespace if the server does not know it.
// Hosted namespaces are provisioned out of band, so this is for local and
// self-hosted servers.
func EnsureNamespace(ctx context.Context, log *logger.Logger, cfg Config) error {
	if !cfg.Enabled() || cfg.Namespace == "" {
		return nil
	}
	// No namespace on the options: the namespace client must work before the
	// namespace exists.
	opts, err := options(log, cfg)
	if err != nil {
		return err
	}
	ns, err := client.NewNamespaceClient(opts)
	if err != nil {
		return fmt.Errorf("temporal namespace client: %w", err)
	}
	defer ns.Close()

	err = retry(ctx, log, "ensure namespace", 10*time.Second, func(ctx context.Context) error {
		_, err := ns.Describe(ctx, cfg.Namespace)
		var notFound *serviceerror.NamespaceNotFound
		if !errors.As(err, &notFound) {
			return err
		}
		err = ns.Register(ctx, &workflowservice.RegisterNamespaceRequest{
			Namespace:                        cfg.Namespace,
			Description:                      "library backend",
			WorkflowExecutionRetentionPeriod: durationpb.New(namespaceRetention),
		})
		var exists *serviceerror.NamespaceAlreadyExists
		if errors.As(err, &exists) {
			return nil
		}
		return err
	}, retryableRPC)
	if err != nil {
		return fmt.Errorf("temporal namespace %s: %w", cfg.Namespace, err)
	}
	return nil
}

// retry runs fn with capped exponential backoff until it succeeds, returns a
// non-retryable error, or maxWait passes.
func retry(ctx context.Context, log *logger.Logger, op string, maxWait time.Duration, fn func(context.Context) error, retryable func(error) bool) error {
	deadline := time.Now().Add(maxWait)
	delay := 250 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) || time.Now().After(deadline) || ctx.Err() != nil {
			return err
		}
		log.Warn("Temporal "+op+" failed, retrying", "attempt", attempt, "in", delay, "error", err)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(err, ctx.Err())
		case <-t.C:
		}
		delay = min(2*delay, 5*time.Second)
	}
}

func retryableRPC(err error) bool {
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
			return true
		}
		return false
	}
	return errors.Is(err, context.DeadlineExceeded)
}
