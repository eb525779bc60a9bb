// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	AnalysesStarted    prometheus.Counter
	AnalysesSucceeded  prometheus.Counter
	AnalysesFailed     prometheus.Counter
	MessagesIngested   prometheus.Counter
	HighlightsDetected prometheus.Counter

	// Histograms (seconds)
	AnalysisDuration prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		AnalysesStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "vod_analyses_started_total", Help: "Number of video analyses started"})
		AnalysesSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "vod_analyses_succeeded_total", Help: "Number of video analyses that returned a result"})
		AnalysesFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "vod_analyses_failed_total", Help: "Number of video analyses that failed"})
		MessagesIngested = promauto.NewCounter(prometheus.CounterOpts{Name: "vod_chat_messages_ingested_total", Help: "Number of chat messages ingested across all analyses"})
		HighlightsDetected = promauto.NewCounter(prometheus.CounterOpts{Name: "vod_highlights_detected_total", Help: "Number of highlight moments detected across all analyses"})
		AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vod_analysis_duration_seconds",
			Help:    "Wall-clock duration of a single video analysis",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 180, 300},
		})
	})
}

// IncAnalysesStarted records that an analysis run began.
func IncAnalysesStarted() { Init(); AnalysesStarted.Inc() }

// IncAnalysesSucceeded records that an analysis run returned a result.
func IncAnalysesSucceeded() { Init(); AnalysesSucceeded.Inc() }

// IncAnalysesFailed records that an analysis run failed.
func IncAnalysesFailed() { Init(); AnalysesFailed.Inc() }

// AddMessagesIngested records n chat messages ingested by a single run.
func AddMessagesIngested(n int) { Init(); MessagesIngested.Add(float64(n)) }

// AddHighlightsDetected records n highlight moments selected by a single run.
func AddHighlightsDetected(n int) { Init(); HighlightsDetected.Add(float64(n)) }

// ObserveAnalysisDuration records the wall-clock duration of a single run.
func ObserveAnalysisDuration(d time.Duration) { Init(); AnalysisDuration.Observe(d.Seconds()) }

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context carrying the given correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context { return context.WithValue(ctx, corrKey, id) }

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
