package temporalx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_DIAL_TIMEOUT", "")
	c := LoadConfig(Config{TaskQueue: "lending"})

	assert.False(t, c.Enabled())
	assert.Equal(t, "library", c.Namespace)
	assert.Equal(t, "lending", c.TaskQueue)
	assert.Equal(t, "0 8 * * *", c.ScanCron)
	assert.Equal(t, 5*time.Second, c.DialTimeout)
	assert.Equal(t, time.Minute, c.DialMaxWait)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "temporal:7233")
	t.Setenv("TEMPORAL_DIAL_TIMEOUT", "2s")
	c := LoadConfig(Config{})

	assert.True(t, c.Enabled())
	assert.Equal(t, 2*time.Second, c.DialTimeout)
}

func TestTLSConfig(t *testing.T) {
	got, err := Config{}.tlsConfig()
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = Config{ClientCertPath: "/tmp/cert.pem"}.tlsConfig()
	require.Error(t, err)

	_, err = Config{ClientCertPath: "/nope/cert.pem", ClientKeyPath: "/nope/key.pem"}.tlsConfig()
	require.Error(t, err)
}
