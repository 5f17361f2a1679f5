package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/platform/ctxutil"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
)

func TestEnqueueCarriesTraceData(t *testing.T) {
	h := newHarness(t)
	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{TraceID: "trace-1", RequestID: "req-1"})

	job, err := h.jobs.Enqueue(dbctx.Context{Ctx: ctx}, JobTypeOverdueScan, "", nil, map[string]any{"trigger": "test"})
	require.NoError(t, err)
	assert.True(t, h.drainWake())

	stored, err := h.jobs.GetByID(dbctx.Context{Ctx: ctx}, job.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(stored.Payload, &payload))
	assert.Equal(t, map[string]string{"trigger": "test", "trace_id": "trace-1", "request_id": "req-1"}, payload)
	assert.Equal(t, types.JobStatusQueued, stored.Status)
}

func TestEnqueueInsideTransactionDefersDispatch(t *testing.T) {
	h := newHarness(t)
	var job *types.JobRun
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = h.jobs.Enqueue(dbctx.Context{Ctx: h.ctx, Tx: tx}, JobTypeOverdueReminder, "", nil, nil)
		return err
	})
	require.NoError(t, err)
	assert.False(t, h.drainWake(), "no dispatch before commit")

	h.jobs.Dispatch(job)
	assert.True(t, h.drainWake())
}

func TestEnqueueRejectsEmptyType(t *testing.T) {
	h := newHarness(t)
	_, err := h.jobs.Enqueue(dbctx.Context{Ctx: h.ctx}, "", "", nil, nil)
	assert.Error(t, err)
}

func TestEnqueueOverdueScanIfNeeded(t *testing.T) {
	h := newHarness(t)
	dbc := dbctx.Context{Ctx: h.ctx}

	first, created, err := h.jobs.EnqueueOverdueScanIfNeeded(dbc, "schedule")
	require.NoError(t, err)
	require.True(t, created)
	require.NotNil(t, first)

	_, created, err = h.jobs.EnqueueOverdueScanIfNeeded(dbc, "schedule")
	require.NoError(t, err)
	assert.False(t, created, "a queued scan already exists")

	require.NoError(t, h.repos.JobRun.UpdateFields(dbc, first.ID, map[string]interface{}{"status": types.JobStatusSucceeded}))
	second, created, err := h.jobs.EnqueueOverdueScanIfNeeded(dbc, "schedule")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, h.jobsOfType(t, JobTypeOverdueScan), 2)

	require.NoError(t, h.repos.JobRun.UpdateFields(dbc, second.ID, map[string]interface{}{"status": types.JobStatusRunning}))
	_, created, err = h.jobs.EnqueueOverdueScanIfNeeded(dbc, "manual")
	require.NoError(t, err)
	assert.False(t, created, "a running scan also counts as pending")
	assert.Len(t, h.jobsOfType(t, JobTypeOverdueScan), 2)
}

func TestWakeupCoalesces(t *testing.T) {
	w := NewWakeup()
	w.Notify()
	w.Notify()
	w.Notify()
	<-w.C()
	select {
	case <-w.C():
		t.Fatalf("wakeup: want one signal got two")
	default:
	}
	var nilWake *Wakeup
	nilWake.Notify()
	assert.Nil(t, nilWake.C())
}
