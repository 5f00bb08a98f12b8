// Package metrics keeps the proxy's counters, gauges, and latency histograms
// and serves them in the Prometheus text exposition format.
//
// Metrics are grouped in families. A family has a fixed set of label names;
// each distinct set of label values is a series, created on first use.
package metrics

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LatencyBuckets cover upstream and request latencies in seconds, up to the
// longest upstream timeout worth configuring.
var LatencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30}

type kind string

const (
	kindCounter   kind = "counter"
	kindGauge     kind = "gauge"
	kindHistogram kind = "histogram"
)

// Counter only goes up.
type Counter struct{ val atomic.Int64 }

func (c *Counter) Inc()         { c.val.Add(1) }
func (c *Counter) Value() int64 { return c.val.Load() }

// Gauge holds a value that can go up and down.
type Gauge struct{ val atomic.Int64 }

func (g *Gauge) Set(n int64)  { g.val.Store(n) }
func (g *Gauge) Inc()         { g.val.Add(1) }
func (g *Gauge) Dec()         { g.val.Add(-1) }
func (g *Gauge) Value() int64 { return g.val.Load() }

// Histogram counts observations into cumulative upper-bound buckets.
type Histogram struct {
	mu     sync.Mutex
	bounds []float64
	counts []uint64 // counts[i] holds observations <= bounds[i] and > bounds[i-1]
	sum    float64
	total  uint64
}

// Observe records v.
func (h *Histogram) Observe(v float64) {
	i := sort.SearchFloat64s(h.bounds, v)
	h.mu.Lock()
	if i < len(h.counts) {
		h.counts[i]++
	}
	h.sum += v
	h.total++
	h.mu.Unlock()
}

// Since observes the seconds elapsed since start.
func (h *Histogram) Since(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

type series struct {
	values  []string
	counter *Counter
	gauge   *Gauge
	hist    *Histogram
}

type family struct {
	name    string
	help    string
	kind    kind
	labels  []string
	buckets []float64

	mu     sync.Mutex
	series map[string]*series
}

func (f *family) with(values []string) *series {
	if len(values) != len(f.labels) {
		panic(fmt.Sprintf("metrics: %s wants %d label values, got %d", f.name, len(f.labels), len(values)))
	}
	key := strings.Join(values, "\xff")

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.series[key]; ok {
		return s
	}
	s := &series{values: append([]string(nil), values...)}
	switch f.kind {
	case kindCounter:
		s.counter = &Counter{}
	case kindGauge:
		s.gauge = &Gauge{}
	case kindHistogram:
		s.hist = &Histogram{bounds: f.buckets, counts: make([]uint64, len(f.buckets))}
	}
	f.series[key] = s
	return s
}

// CounterVec is a counter family partitioned by labels.
type CounterVec struct{ f *family }

// With returns the counter for the given label values, in label order.
func (v *CounterVec) With(values ...string) *Counter { return v.f.with(values).counter }

// HistogramVec is a histogram family partitioned by labels.
type HistogramVec struct{ f *family }

// With returns the histogram for the given label values, in label order.
func (v *HistogramVec) With(values ...string) *Histogram { return v.f.with(values).hist }

// Registry holds metric families by name.
type Registry struct {
	mu       sync.Mutex
	families map[string]*family
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{families: make(map[string]*family)}
}

// register returns the family called name, creating it on first use. Asking
// for an existing name with another kind or label set panics.
func (r *Registry) register(name, help string, k kind, buckets []float64, labels []string) *family {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.families[name]; ok {
		if f.kind != k || strings.Join(f.labels, ",") != strings.Join(labels, ",") {
			panic(fmt.Sprintf("metrics: %s already registered as %s%v", name, f.kind, f.labels))
		}
		return f
	}
	if buckets != nil {
		buckets = append([]float64(nil), buckets...)
		sort.Float64s(buckets)
	}
	f := &family{
		name:    name,
		help:    help,
		kind:    k,
		labels:  append([]string(nil), labels...),
		buckets: buckets,
		series:  make(map[string]*series),
	}
	r.families[name] = f
	return f
}

// Counter returns the unlabeled counter called name.
func (r *Registry) Counter(name, help string) *Counter {
	return r.register(name, help, kindCounter, nil, nil).with(nil).counter
}

// CounterVec returns the counter family called name, partitioned by labels.
func (r *Registry) CounterVec(name, help string, labels ...string) *CounterVec {
	return &CounterVec{r.register(name, help, kindCounter, nil, labels)}
}

// Gauge returns the unlabeled gauge called name.
func (r *Registry) Gauge(name, help string) *Gauge {
	return r.register(name, help, kindGauge, nil, nil).with(nil).gauge
}

// HistogramVec returns the histogram family called name. Nil buckets mean
// LatencyBuckets.
func (r *Registry) HistogramVec(name, help string, buckets []float64, labels ...string) *HistogramVec {
	if buckets == nil {
		buckets = LatencyBuckets
	}
	return &HistogramVec{r.register(name, help, kindHistogram, buckets, labels)}
}

// Histogram returns the unlabeled histogram called name.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	return r.HistogramVec(name, help, buckets).With()
}

// WriteText writes every family in the text exposition format, families and
// series sorted by name and label values.
func (r *Registry) WriteText(w io.Writer) error {
	r.mu.Lock()
	fams := make([]*family, 0, len(r.families))
	for _, f := range r.families {
		fams = append(fams, f)
	}
	r.mu.Unlock()
	sort.Slice(fams, func(i, j int) bool { return fams[i].name < fams[j].name })

	bw := bufio.NewWriter(w)
	for _, f := range fams {
		f.write(bw)
	}
	return bw.Flush()
}

func (f *family) write(w *bufio.Writer) {
	f.mu.Lock()
	all := make([]*series, 0, len(f.series))
	for _, s := range f.series {
		all = append(all, s)
	}
	f.mu.Unlock()
	sort.Slice(all, func(i, j int) bool {
		return strings.Join(all[i].values, "\xff") < strings.Join(all[j].values, "\xff")
	})

	if f.help != "" {
		fmt.Fprintf(w, "# HELP %s %s\n", f.name, f.help)
	}
	fmt.Fprintf(w, "# TYPE %s %s\n", f.name, f.kind)

	for _, s := range all {
		labels := labelPairs(f.labels, s.values)
		switch f.kind {
		case kindCounter:
			fmt.Fprintf(w, "%s%s %d\n", f.name, braces(labels), s.counter.Value())
		case kindGauge:
			fmt.Fprintf(w, "%s%s %d\n", f.name, braces(labels), s.gauge.Value())
		case kindHistogram:
			s.hist.mu.Lock()
			var cum uint64
			for i, b := range s.hist.bounds {
				cum += s.hist.counts[i]
				fmt.Fprintf(w, "%s_bucket%s %d\n", f.name, braces(append(labels, fmt.Sprintf(`le="%g"`, b))), cum)
			}
			fmt.Fprintf(w, "%s_bucket%s %d\n", f.name, braces(append(labels, `le="+Inf"`)), s.hist.total)
			fmt.Fprintf(w, "%s_sum%s %g\n", f.name, braces(labels), s.hist.sum)
			fmt.Fprintf(w, "%s_count%s %d\n", f.name, braces(labels), s.hist.total)
			s.hist.mu.Unlock()
		}
	}
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func labelPairs(names, values []string) []string {
	pairs := make([]string, len(names), len(names)+1)
	for i, n := range names {
		pairs[i] = n + `="` + labelEscaper.Replace(values[i]) + `"`
	}
	return pairs
}

func braces(pairs []string) string {
	if len(pairs) == 0 {
		return ""
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

// Handler serves the registry for Prometheus scrapes.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		r.WriteText(w)
	})
}
