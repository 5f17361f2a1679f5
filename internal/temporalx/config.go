package temporalx

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/library-backend/internal/platform/envutil"
)

// Config configures the Temporal client and the overdue-scan schedule.
// Temporal is off unless Address is set.
type Config struct {
	Address   string `yaml:"address"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`

	ScanCron   string `yaml:"scan_cron"`
	ScheduleID string `yaml:"schedule_id"`

	AutoRegisterNamespace bool `yaml:"auto_register_namespace"`

	// DialTimeout bounds one dial attempt; DialMaxWait bounds all of them.
	DialTimeout time.Duration `yaml:"dial_timeout"`
	DialMaxWait time.Duration `yaml:"dial_max_wait"`

	ClientCertPath string `yaml:"client_cert_path"`
	ClientKeyPath  string `yaml:"client_key_path"`
	ClientCAPath   string `yaml:"client_ca_path"`
}

func (c Config) Enabled() bool { return c.Address != "" }

// LoadConfig overlays TEMPORAL_* env vars on base and fills defaults.
func LoadConfig(base Config) Config {
	c := base
	c.Address = envutil.String("TEMPORAL_ADDRESS", c.Address)
	c.Namespace = envutil.String("TEMPORAL_NAMESPACE", orDefault(c.Namespace, "library"))
	c.TaskQueue = envutil.String("TEMPORAL_TASK_QUEUE", orDefault(c.TaskQueue, "library"))
	c.ScanCron = envutil.String("OVERDUE_SCAN_CRON", orDefault(c.ScanCron, "0 8 * * *"))
	c.ScheduleID = envutil.String("TEMPORAL_SCAN_SCHEDULE_ID", orDefault(c.ScheduleID, "library-overdue-scan"))
	c.AutoRegisterNamespace = envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", c.AutoRegisterNamespace)
	c.DialTimeout = envutil.Duration("TEMPORAL_DIAL_TIMEOUT", orDefault(c.DialTimeout, 5*time.Second))
	c.DialMaxWait = envutil.Duration("TEMPORAL_DIAL_MAX_WAIT", orDefault(c.DialMaxWait, time.Minute))
	c.ClientCertPath = envutil.String("TEMPORAL_CLIENT_CERT_PATH", c.ClientCertPath)
	c.ClientKeyPath = envutil.String("TEMPORAL_CLIENT_KEY_PATH", c.ClientKeyPath)
	c.ClientCAPath = envutil.String("TEMPORAL_CLIENT_CA_PATH", c.ClientCAPath)
	return c
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// tlsConfig returns nil when no mTLS material is configured.
func (c Config) tlsConfig() (*tls.Config, error) {
	if c.ClientCertPath == "" && c.ClientKeyPath == "" && c.ClientCAPath == "" {
		return nil, nil
	}
	if c.ClientCertPath == "" || c.ClientKeyPath == "" {
		return nil, fmt.Errorf("temporal tls: client cert and key are both required")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCertPath, c.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: load client keypair: %w", err)
	}
	out := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if c.ClientCAPath == "" {
		return out, nil
	}
	pem, err := os.ReadFile(c.ClientCAPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: read CA: %w", err)
	}
	out.RootCAs = x509.NewCertPool()
	if !out.RootCAs.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("temporal tls: no certificates in %s", c.ClientCAPath)
	}
	return out, nil
}
