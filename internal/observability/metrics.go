// Package observability exposes Prometheus text metrics and OpenTelemetry
// tracing for the library backend.
package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

type writer interface {
	WritePrometheus(io.Writer) error
}

// Metrics is the process-wide metric set. All methods accept a nil receiver,
// so callers use Current() without checking.
type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	apiInflight   *Gauge
	ledgerOps     *CounterVec
	jobRuns       *CounterVec
	jobDuration   *HistogramVec
	notifications *CounterVec
	overdueLoans  *Gauge
	queueDepth    *GaugeVec

	all []writer
}

var current atomic.Pointer[Metrics]

// Current returns the installed metrics, or nil before Init.
func Current() *Metrics { return current.Load() }

// Init installs the process metrics on first call and returns them.
func Init() *Metrics {
	current.CompareAndSwap(nil, newMetrics())
	return current.Load()
}

var apiLabels = []string{"method", "route", "status"}

func newMetrics() *Metrics {
	m := &Metrics{
		apiRequests: NewCounterVec("library_api_requests_total", "API requests by method, route and status.", apiLabels),
		apiLatency: NewHistogramVec("library_api_request_duration_seconds", "API request latency in seconds.", apiLabels,
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}),
		apiInflight: NewGauge("library_api_inflight_requests", "API requests being served."),
		ledgerOps:   NewCounterVec("library_ledger_operations_total", "Loan ledger operations by op and outcome.", []string{"op", "outcome"}),
		jobRuns:     NewCounterVec("library_job_runs_total", "Finished job attempts by type and status.", []string{"job_type", "status"}),
		jobDuration: NewHistogramVec("library_job_duration_seconds", "Job attempt duration in seconds.", []string{"job_type", "status"},
			[]float64{0.05, 0.1, 0.5, 1, 5, 15, 60}),
		notifications: NewCounterVec("library_notifications_total", "Outbound notifications by kind and status.", []string{"kind", "status"}),
		overdueLoans:  NewGauge("library_overdue_loans", "Overdue loans found by the last scan."),
		queueDepth:    NewGaugeVec("library_job_queue_depth", "job_run rows by status.", []string{"status"}),
	}
	m.all = []writer{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.ledgerOps,
		m.jobRuns, m.jobDuration, m.queueDepth,
		m.notifications, m.overdueLoans,
	}
	return m
}

// WriteHTTP serves the exposition; 503 until Init has run.
func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.all {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func orUnknown(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	labels := []string{orUnknown(method, "UNKNOWN"), orUnknown(route, "unknown"), orUnknown(status, "0")}
	m.apiRequests.Inc(labels...)
	m.apiLatency.Observe(dur.Seconds(), labels...)
}

func (m *Metrics) APIInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) APIInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

// IncLedgerOp counts a borrow, return or extend by outcome: "ok" or the
// error code.
func (m *Metrics) IncLedgerOp(op, outcome string) {
	if m != nil {
		m.ledgerOps.Inc(op, outcome)
	}
}

func (m *Metrics) ObserveJob(jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.Inc(jobType, status)
	m.jobDuration.Observe(dur.Seconds(), jobType, status)
}

func (m *Metrics) IncNotification(kind, status string) {
	if m != nil {
		m.notifications.Inc(kind, status)
	}
}

func (m *Metrics) SetOverdueLoans(n int) {
	if m != nil {
		m.overdueLoans.Set(float64(n))
	}
}

// StartJobQueueCollector samples job_run counts per status every interval
// until ctx ends.
func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			if err := m.sampleQueueDepth(ctx, db); err != nil && ctx.Err() == nil {
				log.Warn("job queue depth sample failed", "error", err)
			}
		}
	}()
}

var queueStatuses = []string{types.JobStatusQueued, types.JobStatusRunning, types.JobStatusSucceeded, types.JobStatusFailed}

func (m *Metrics) sampleQueueDepth(ctx context.Context, db *gorm.DB) error {
	var rows []struct {
		Status string
		N      int64
	}
	err := db.WithContext(ctx).Model(&types.JobRun{}).
		Select("status, count(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	depth := make(map[string]int64, len(queueStatuses))
	for _, s := range queueStatuses {
		depth[s] = 0
	}
	for _, r := range rows {
		depth[orUnknown(strings.TrimSpace(r.Status), "unknown")] += r.N
	}
	for status, n := range depth {
		m.queueDepth.Set(float64(n), status)
	}
	return nil
}

func parseRatio(raw string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fallback
	}
	return f
}
