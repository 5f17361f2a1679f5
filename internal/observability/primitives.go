package observability

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// family is a named set of float series keyed by their rendered label set.
// Counters and gauges share it; only the exposition type differs.
type family struct {
	name   string
	help   string
	kind   string
	labels []string

	mu     sync.RWMutex
	series map[string]float64
}

func newFamily(name, help, kind string, labels []string) *family {
	return &family{name: name, help: help, kind: kind, labels: labels, series: make(map[string]float64)}
}

func (f *family) update(values []string, fn func(float64) float64) {
	key := labelString(f.labels, values)
	f.mu.Lock()
	f.series[key] = fn(f.series[key])
	f.mu.Unlock()
}

func (f *family) get(values []string) float64 {
	key := labelString(f.labels, values)
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.series[key]
}

func (f *family) write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	writeHeader(bw, f.name, f.help, f.kind)

	f.mu.RLock()
	keys := make([]string, 0, len(f.series))
	for k := range f.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		bw.WriteString(f.name + k + " " + formatFloat(f.series[k]) + "\n")
	}
	f.mu.RUnlock()

	return bw.Flush()
}

// CounterVec is a monotonically increasing series per label set.
type CounterVec struct{ f *family }

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{f: newFamily(name, help, "counter", labels)}
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

func (c *CounterVec) Add(delta float64, values ...string) {
	if c == nil || delta < 0 {
		return
	}
	c.f.update(values, func(v float64) float64 { return v + delta })
}

func (c *CounterVec) Value(values ...string) float64 {
	if c == nil {
		return 0
	}
	return c.f.get(values)
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	return c.f.write(w)
}

type GaugeVec struct{ f *family }

func NewGaugeVec(name, help string, labels []string) *GaugeVec {
	return &GaugeVec{f: newFamily(name, help, "gauge", labels)}
}

func (g *GaugeVec) Set(v float64, values ...string) {
	if g == nil {
		return
	}
	g.f.update(values, func(float64) float64 { return v })
}

func (g *GaugeVec) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.f.write(w)
}

// Gauge is an unlabelled GaugeVec.
type Gauge struct{ vec *GaugeVec }

func NewGauge(name, help string) *Gauge {
	g := &Gauge{vec: NewGaugeVec(name, help, nil)}
	g.vec.Set(0)
	return g
}

func (g *Gauge) Set(v float64) {
	if g == nil {
		return
	}
	g.vec.Set(v)
}

func (g *Gauge) Inc() { g.shift(1) }
func (g *Gauge) Dec() { g.shift(-1) }

func (g *Gauge) shift(d float64) {
	if g == nil {
		return
	}
	g.vec.f.update(nil, func(v float64) float64 { return v + d })
}

func (g *Gauge) Value() float64 {
	if g == nil {
		return 0
	}
	return g.vec.f.get(nil)
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.vec.WritePrometheus(w)
}

var defaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

type HistogramVec struct {
	name    string
	help    string
	labels  []string
	buckets []float64

	mu    sync.Mutex
	cells map[string]*histCell
}

// histCell keeps per-bucket (non-cumulative) hits; write accumulates them.
type histCell struct {
	hits  []uint64
	sum   float64
	count uint64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	return &HistogramVec{name: name, help: help, labels: labels, buckets: sorted, cells: make(map[string]*histCell)}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	key := labelString(h.labels, values)
	idx := sort.SearchFloat64s(h.buckets, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	cell := h.cells[key]
	if cell == nil {
		cell = &histCell{hits: make([]uint64, len(h.buckets)+1)}
		h.cells[key] = cell
	}
	cell.hits[idx]++
	cell.sum += v
	cell.count++
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	bw := bufio.NewWriter(w)
	writeHeader(bw, h.name, h.help, "histogram")

	h.mu.Lock()
	keys := make([]string, 0, len(h.cells))
	for k := range h.cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cell := h.cells[k]
		var running uint64
		for i, upper := range h.buckets {
			running += cell.hits[i]
			bw.WriteString(h.name + "_bucket" + withLe(k, formatFloat(upper)) + " " + strconv.FormatUint(running, 10) + "\n")
		}
		bw.WriteString(h.name + "_bucket" + withLe(k, "+Inf") + " " + strconv.FormatUint(cell.count, 10) + "\n")
		bw.WriteString(h.name + "_sum" + k + " " + formatFloat(cell.sum) + "\n")
		bw.WriteString(h.name + "_count" + k + " " + strconv.FormatUint(cell.count, 10) + "\n")
	}
	h.mu.Unlock()

	return bw.Flush()
}

func writeHeader(w *bufio.Writer, name, help, kind string) {
	w.WriteString("# HELP " + name + " " + help + "\n")
	w.WriteString("# TYPE " + name + " " + kind + "\n")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// labelString renders `{a="x",b="y"}`. Missing or empty values become
// "unknown" so every series carries the full label set.
func labelString(names, values []string) string {
	if len(names) == 0 {
		return ""
	}
	pairs := make([]string, len(names))
	for i, name := range names {
		val := "unknown"
		if i < len(values) && values[i] != "" {
			val = values[i]
		}
		pairs[i] = name + `="` + labelEscaper.Replace(val) + `"`
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func withLe(labels, le string) string {
	pair := `le="` + labelEscaper.Replace(le) + `"`
	if labels == "" {
		return "{" + pair + "}"
	}
	return labels[:len(labels)-1] + "," + pair + "}"
}
