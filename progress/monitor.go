// Package progress tracks run-wide counters. Workers bump atomics as
// tasks finish; a separate reporting loop samples them at any cadence
// without coordinating with the workers. The fields are independent
// metrics, not jointly-constrained state, so a snapshot is a plain
// read of current values.
package progress

import (
	"context"
	"sync/atomic"
	"time"

	"agoda-scraper/models"
	"agoda-scraper/utils"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors on a dedicated registry so the
// scrape can be watched from outside the process.
type Metrics struct {
	Registry       *prometheus.Registry
	HotelsDone     prometheus.Counter
	RoomsExtracted prometheus.Counter
	ErrorsTotal    *prometheus.CounterVec
	FailedHotels   prometheus.Counter
	TaskDuration   prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	hotels := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_hotels_done_total",
		Help: "Hotels fully processed across all dates.",
	})
	rooms := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_rooms_extracted_total",
		Help: "Room rows extracted and written.",
	})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_task_errors_total",
		Help: "Task-level errors by reason code.",
	}, []string{"reason"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_failed_hotels_total",
		Help: "Hotels classified as retryable failures.",
	})
	taskDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scraper_task_duration_seconds",
		Help:    "Wall time per (hotel, date) task.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	registry.MustRegister(hotels, rooms, errs, failed, taskDuration)

	return &Metrics{
		Registry:       registry,
		HotelsDone:     hotels,
		RoomsExtracted: rooms,
		ErrorsTotal:    errs,
		FailedHotels:   failed,
		TaskDuration:   taskDuration,
	}
}

// Monitor holds the shared counters. All increments are atomic;
// workers never block each other here.
type Monitor struct {
	start       time.Time
	hotelsTotal int64

	hotelsDone   atomic.Int64
	rooms        atomic.Int64
	errors       atomic.Int64
	failedHotels atomic.Int64

	metrics *Metrics
}

func NewMonitor(hotelsTotal int, metrics *Metrics) *Monitor {
	return &Monitor{
		start:       time.Now(),
		hotelsTotal: int64(hotelsTotal),
		metrics:     metrics,
	}
}

func (m *Monitor) HotelDone() {
	m.hotelsDone.Add(1)
	if m.metrics != nil {
		m.metrics.HotelsDone.Inc()
	}
}

func (m *Monitor) RoomsExtracted(n int) {
	if n <= 0 {
		return
	}
	m.rooms.Add(int64(n))
	if m.metrics != nil {
		m.metrics.RoomsExtracted.Add(float64(n))
	}
}

func (m *Monitor) TaskError(reason models.ReasonCode) {
	m.errors.Add(1)
	if m.metrics != nil {
		m.metrics.ErrorsTotal.WithLabelValues(string(reason)).Inc()
	}
}

func (m *Monitor) HotelFailed() {
	m.failedHotels.Add(1)
	if m.metrics != nil {
		m.metrics.FailedHotels.Inc()
	}
}

func (m *Monitor) ObserveTask(d time.Duration) {
	if m.metrics != nil {
		m.metrics.TaskDuration.Observe(d.Seconds())
	}
}

// Snapshot derives the current progress view. The throughput rate is
// recomputed from scratch each call, not smoothed, so the ETA reacts
// to slowdowns.
func (m *Monitor) Snapshot() models.ProgressSnapshot {
	done := m.hotelsDone.Load()
	elapsed := time.Since(m.start)

	var perHour float64
	if elapsed > 0 {
		perHour = float64(done) / elapsed.Hours()
	}

	var eta time.Duration
	if perHour > 0 {
		remaining := m.hotelsTotal - done
		if remaining > 0 {
			eta = time.Duration(float64(remaining) / perHour * float64(time.Hour))
		}
	}

	return models.ProgressSnapshot{
		HotelsDone:     done,
		HotelsTotal:    m.hotelsTotal,
		RoomsExtracted: m.rooms.Load(),
		Errors:         m.errors.Load(),
		FailedHotels:   m.failedHotels.Load(),
		Elapsed:        elapsed,
		HotelsPerHour:  perHour,
		ETA:            eta,
	}
}

// Report logs a snapshot every interval until ctx is cancelled.
func (m *Monitor) Report(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := m.Snapshot()
			utils.Info("Progress | hotels %d/%d | rooms %d | errors %d | failed %d | %.0f/hr | ETA %s",
				s.HotelsDone, s.HotelsTotal, s.RoomsExtracted, s.Errors, s.FailedHotels,
				s.HotelsPerHour, s.ETA.Round(time.Minute))
		}
	}
}
