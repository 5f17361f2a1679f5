package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/yungbote/library-backend/internal/clients/redis"
	"github.com/yungbote/library-backend/internal/data/repos"
	"github.com/yungbote/library-backend/internal/data/repos/testutil"
	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/services"
)

func TestTickOncePerPeriodAcrossReplicas(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	r := repos.New(db, log)
	js := services.NewJobService(db, log, r.JobRun, services.NewJobNotifier(log, services.NewWakeup()))
	shared := redisclient.NewLocalLocker()

	clock := time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	cfg := Config{Enabled: true, Interval: time.Hour}
	a := NewScheduler(log, js, shared, cfg, now)
	b := NewScheduler(log, js, shared, cfg, now)
	ctx := context.Background()

	created, err := a.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = b.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, created, "second replica in the same period")

	// Next period, but the first scan is still queued.
	clock = clock.Add(time.Hour)
	created, err = b.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, created)

	var scans []*types.JobRun
	require.NoError(t, db.Where("job_type = ?", services.JobTypeOverdueScan).Find(&scans).Error)
	require.Len(t, scans, 1)
	assert.Equal(t, types.JobStatusQueued, scans[0].Status)

	require.NoError(t, r.JobRun.UpdateFields(dbctx.Context{Ctx: ctx}, scans[0].ID, map[string]interface{}{"status": types.JobStatusSucceeded}))
	clock = clock.Add(time.Hour)
	created, err = a.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OVERDUE_SCAN_INTERVAL", "2h")
	t.Setenv("OVERDUE_SCAN_ENABLED", "false")
	cfg := ConfigFromEnv(Config{Enabled: true})
	if cfg.Enabled || cfg.Interval != 2*time.Hour {
		t.Fatalf("ConfigFromEnv: want=disabled/2h got=%+v", cfg)
	}
}
