package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yungbote/library-backend/internal/data/repos/testutil"
	types "github.com/yungbote/library-backend/internal/domain"
)

func TestMetricsExposition(t *testing.T) {
	m := newMetrics()
	m.ObserveAPI("POST", "/api/books/:id/loan", "201", 20*time.Millisecond)
	m.IncLedgerOp("borrow", "ok")
	m.IncLedgerOp("borrow", "no_copies_available")
	m.IncLedgerOp("borrow", "ok")
	m.ObserveJob("overdue_reminder", "succeeded", 300*time.Millisecond)
	m.SetOverdueLoans(4)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`library_ledger_operations_total{op="borrow",outcome="ok"} 2`,
		`library_ledger_operations_total{op="borrow",outcome="no_copies_available"} 1`,
		`library_api_requests_total{method="POST",route="/api/books/:id/loan",status="201"} 1`,
		`library_job_duration_seconds_bucket{job_type="overdue_reminder",status="succeeded",le="0.5"} 1`,
		`library_job_duration_seconds_bucket{job_type="overdue_reminder",status="succeeded",le="0.1"} 0`,
		`library_overdue_loans 4`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q\n%s", want, out)
		}
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.IncLedgerOp("borrow", "ok")
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.APIInflightInc()
	m.SetOverdueLoans(1)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString: got=%s", got)
	}
}

func TestSampleQueueDepth(t *testing.T) {
	db := testutil.SQLite(t)
	for _, status := range []string{types.JobStatusQueued, types.JobStatusQueued, types.JobStatusFailed} {
		require.NoError(t, db.Create(&types.JobRun{
			ID:      uuid.New(),
			JobType: "overdue_scan",
			Status:  status,
			Payload: datatypes.JSON(`{}`),
			Result:  datatypes.JSON(`{}`),
		}).Error)
	}

	m := newMetrics()
	require.NoError(t, m.sampleQueueDepth(context.Background(), db))

	var buf bytes.Buffer
	require.NoError(t, m.WritePrometheus(&buf))
	out := buf.String()
	assert.Contains(t, out, `library_job_queue_depth{status="queued"} 2`)
	assert.Contains(t, out, `library_job_queue_depth{status="failed"} 1`)
	assert.Contains(t, out, `library_job_queue_depth{status="running"} 0`)
}

func TestInitIsIdempotent(t *testing.T) {
	first := Init()
	require.NotNil(t, first)
	assert.Same(t, first, Init())
	assert.Same(t, first, Current())
}
