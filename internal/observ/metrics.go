package observ

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type registry struct {
	mu       sync.Mutex
	counters map[string]map[string]int64   // name -> labelsKey -> count
	gauges   map[string]map[string]float64 // name -> labelsKey -> value
	hist     map[string]map[string][]float64
}

var reg = &registry{
	counters: map[string]map[string]int64{},
	gauges:   map[string]map[string]float64{},
	hist:     map[string]map[string][]float64{},
}

// canonicalize label map so key order is stable
func canonLabels(lbl map[string]string) string {
	if len(lbl) == 0 {
		return ""
	}
	keys := make([]string, 0, len(lbl))
	for k := range lbl {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(lbl[k])
	}
	return b.String()
}

func IncCounter(name string, labels map[string]string) {
	IncCounterBy(name, labels, 1.0)
}

func IncCounterBy(name string, labels map[string]string, value float64) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.counters[name]
	if !ok {
		m = map[string]int64{}
		reg.counters[name] = m
	}
	k := canonLabels(labels)
	m[k] += int64(value)
}

func SetGauge(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.gauges[name]
	if !ok {
		m = map[string]float64{}
		reg.gauges[name] = m
	}
	k := canonLabels(labels)
	m[k] = value
}

func Observe(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.hist[name]
	if !ok {
		m = map[string][]float64{}
		reg.hist[name] = m
	}
	k := canonLabels(labels)
	m[k] = append(m[k], value)
}

// RecordDuration records a duration observation in milliseconds.
func RecordDuration(name string, duration time.Duration, labels map[string]string) {
	Observe(name+"_ms", float64(duration.Milliseconds()), labels)
}

// CounterTotal sums a counter across all label sets.
func CounterTotal(name string) int64 {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	var total int64
	for _, count := range reg.counters[name] {
		total += count
	}
	return total
}

// Basic text/JSON dump for quick checks (not Prometheus format on purpose)
func Handler() http.Handler {
	type dump struct {
		Counters map[string]map[string]int64     `json:"counters"`
		Gauges   map[string]map[string]float64   `json:"gauges"`
		Hist     map[string]map[string][]float64 `json:"histograms"`
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dump{Counters: reg.counters, Gauges: reg.gauges, Hist: reg.hist})
	})
}

// HealthStatus summarizes the data layer for the status endpoint.
type HealthStatus struct {
	Status    string        `json:"status"` // "healthy", "degraded", "failed"
	Timestamp string        `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Version   string        `json:"version"`
	Metrics   HealthMetrics `json:"metrics"`
}

// HealthMetrics holds the key data-layer indicators.
type HealthMetrics struct {
	CacheHitRate        float64 `json:"cache_hit_rate"`
	StaleReads          int64   `json:"stale_reads"`
	CoalescedRequests   int64   `json:"coalesced_requests"`
	UpstreamErrorRate   float64 `json:"upstream_error_rate"`
	UpstreamLatencyP95  int64   `json:"upstream_latency_p95_ms"`
	RateLimitRejections int64   `json:"rate_limit_rejections"`
}

var (
	startTime = time.Now()
	version   = "dev" // Set via build flags
)

// SetVersion sets the version string for health reports.
func SetVersion(v string) {
	version = v
}

// Snapshot builds the current health report.
func Snapshot() HealthStatus {
	metrics := computeHealthMetrics()
	return HealthStatus{
		Status:    healthStatusFor(metrics),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Version:   version,
		Metrics:   metrics,
	}
}

// HealthHandler reports aggregate data-layer health. Degraded means stale
// data is being served or upstream errors exceed 10%; failed means upstream
// errors exceed 50% over a meaningful sample.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := Snapshot()

		statusCode := http.StatusOK
		if health.Status == "failed" {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(health)
	})
}

func computeHealthMetrics() HealthMetrics {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	metrics := HealthMetrics{}

	var hits, misses int64
	for _, count := range reg.counters["cache_hits_total"] {
		hits += count
	}
	for _, count := range reg.counters["cache_misses_total"] {
		misses += count
	}
	if hits+misses > 0 {
		metrics.CacheHitRate = float64(hits) / float64(hits+misses)
	}

	for _, count := range reg.counters["cache_stale_reads_total"] {
		metrics.StaleReads += count
	}
	for _, count := range reg.counters["coalesced_requests_total"] {
		metrics.CoalescedRequests += count
	}
	for _, count := range reg.counters["rate_limit_denied_total"] {
		metrics.RateLimitRejections += count
	}

	var requests, errors int64
	for _, count := range reg.counters["upstream_requests_total"] {
		requests += count
	}
	for _, count := range reg.counters["upstream_errors_total"] {
		errors += count
	}
	if requests > 0 {
		metrics.UpstreamErrorRate = float64(errors) / float64(requests)
	}

	metrics.UpstreamLatencyP95 = histP95Locked("upstream_latency_ms")

	return metrics
}

// histP95Locked pools every label set of a histogram and returns the P95.
// Caller must hold reg.mu.
func histP95Locked(name string) int64 {
	var samples []float64
	for _, s := range reg.hist[name] {
		samples = append(samples, s...)
	}
	if len(samples) == 0 {
		return 0
	}
	sort.Float64s(samples)
	idx := int(float64(len(samples)) * 0.95)
	if idx >= len(samples) {
		idx = len(samples) - 1
	}
	return int64(samples[idx])
}

func healthStatusFor(m HealthMetrics) string {
	total := CounterTotal("upstream_requests_total")
	if total > 20 && m.UpstreamErrorRate > 0.5 {
		return "failed"
	}
	if m.StaleReads > 0 || (total > 20 && m.UpstreamErrorRate > 0.1) {
		return "degraded"
	}
	return "healthy"
}

// Health is a minimal liveness handler.
func Health() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// ResetForTest clears all recorded telemetry between test cases.
func ResetForTest() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.counters = map[string]map[string]int64{}
	reg.gauges = map[string]map[string]float64{}
	reg.hist = map[string]map[string][]float64{}
}
