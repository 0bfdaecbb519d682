package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/forum-weaver/internal/storage"
	"github.com/alvmarrod/forum-weaver/internal/thread"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Tracker holds and manages extraction metrics. It observes both the forum
// source (pages) and the reconstructor (messages, interactions).
type Tracker struct {
	mu               sync.Mutex
	data             storage.Metrics
	totalFetchTimeMs int64
	fetchCount       int

	registry     *prometheus.Registry
	pages        *prometheus.CounterVec
	messages     *prometheus.CounterVec
	interactions prometheus.Counter
	fetchSeconds prometheus.Histogram
}

// NewTracker creates a new metrics tracker with its own registry
func NewTracker() *Tracker {
	t := &Tracker{
		data: storage.Metrics{
			StartTime: time.Now(),
		},
		registry: prometheus.NewRegistry(),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forum_weaver_pages_total",
			Help: "Thread pages fetched, by result",
		}, []string{"result"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forum_weaver_messages_total",
			Help: "Messages seen by the reconstructor, by outcome",
		}, []string{"outcome"}),
		interactions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forum_weaver_interactions_total",
			Help: "Reply interactions recorded",
		}),
		fetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "forum_weaver_page_fetch_seconds",
			Help:    "Page fetch duration seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
	t.registry.MustRegister(t.pages, t.messages, t.interactions, t.fetchSeconds)
	return t
}

// PageFetched records a successful page fetch and its duration
func (t *Tracker) PageFetched(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFetched++
	t.totalFetchTimeMs += d.Milliseconds()
	t.fetchCount++
	t.pages.WithLabelValues("ok").Inc()
	t.fetchSeconds.Observe(d.Seconds())
}

// PageFailed increments the failed fetch counter
func (t *Tracker) PageFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFailed++
	t.pages.WithLabelValues("failed").Inc()
}

// MessageRecorded increments the recorded messages counter
func (t *Tracker) MessageRecorded(thread.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.MessagesRecorded++
	t.messages.WithLabelValues("recorded").Inc()
}

// MessageSkipped increments the skipped messages counter
func (t *Tracker) MessageSkipped(thread.RawMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.MessagesSkipped++
	t.messages.WithLabelValues("skipped").Inc()
}

// InteractionRecorded increments the interactions counter
func (t *Tracker) InteractionRecorded(thread.Interaction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.InteractionsCreated++
	t.interactions.Inc()
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs

	// Calculate average fetch time
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	return snapshot
}

// Finish stamps the end time and termination reason, returning the final metrics
func (t *Tracker) Finish(reason string) storage.Metrics {
	t.mu.Lock()
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	t.mu.Unlock()

	return t.GetSnapshot()
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	jsonData, err := json.MarshalIndent(t.Finish(reason), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats current metrics for console output
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Pages: %d fetched, %d failed | Messages: %d recorded, %d skipped | Interactions: %d",
		t.data.PagesFetched,
		t.data.PagesFailed,
		t.data.MessagesRecorded,
		t.data.MessagesSkipped,
		t.data.InteractionsCreated,
	)
}

// Handler exposes the tracker's registry in the Prometheus text format
func (t *Tracker) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics and /health on addr (e.g. ":9090") until the
// returned server is shut down. An empty addr disables the server.
func (t *Tracker) StartServer(addr string) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", t.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Warnf("Metrics server stopped: %v", err)
		}
	}()
	logrus.Infof("Serving metrics on %s", addr)
	return srv
}
