package chunkstore

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    putCounter   prometheus.Counter
//	    getHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordPut(bytes int, duration time.Duration, err error) {
//	    p.putCounter.Inc()
//	}
type MetricsCollector interface {
	// RecordPut is called after each put. bytes is the chunk size.
	RecordPut(bytes int, duration time.Duration, err error)

	// RecordGet is called after each get. cacheHit reports whether the bytes
	// were served without touching the logical files.
	RecordGet(bytes int, cacheHit bool, duration time.Duration, err error)

	// RecordCleanup is called after each cache reset.
	RecordCleanup(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordPut(int, time.Duration, error)       {}
func (NoopMetricsCollector) RecordGet(int, bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordCleanup(time.Duration, error)        {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	PutCount      atomic.Int64
	PutErrors     atomic.Int64
	PutBytes      atomic.Int64
	PutTotalNanos atomic.Int64
	GetCount      atomic.Int64
	GetErrors     atomic.Int64
	GetHits       atomic.Int64
	GetBytes      atomic.Int64
	GetTotalNanos atomic.Int64
	CleanupCount  atomic.Int64
	CleanupErrors atomic.Int64
}

// RecordPut implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPut(bytes int, duration time.Duration, err error) {
	b.PutCount.Add(1)
	b.PutTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PutErrors.Add(1)
		return
	}
	b.PutBytes.Add(int64(bytes))
}

// RecordGet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGet(bytes int, cacheHit bool, duration time.Duration, err error) {
	b.GetCount.Add(1)
	b.GetTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.GetErrors.Add(1)
		return
	}
	if cacheHit {
		b.GetHits.Add(1)
	}
	b.GetBytes.Add(int64(bytes))
}

// RecordCleanup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCleanup(_ time.Duration, err error) {
	b.CleanupCount.Add(1)
	if err != nil {
		b.CleanupErrors.Add(1)
	}
}

// Stats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) Stats() BasicMetricsStats {
	return BasicMetricsStats{
		PutCount:      b.PutCount.Load(),
		PutErrors:     b.PutErrors.Load(),
		PutBytes:      b.PutBytes.Load(),
		PutAvgNanos:   avg(b.PutTotalNanos.Load(), b.PutCount.Load()),
		GetCount:      b.GetCount.Load(),
		GetErrors:     b.GetErrors.Load(),
		GetHits:       b.GetHits.Load(),
		GetBytes:      b.GetBytes.Load(),
		GetAvgNanos:   avg(b.GetTotalNanos.Load(), b.GetCount.Load()),
		CleanupCount:  b.CleanupCount.Load(),
		CleanupErrors: b.CleanupErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	PutCount      int64
	PutErrors     int64
	PutBytes      int64
	PutAvgNanos   int64
	GetCount      int64
	GetErrors     int64
	GetHits       int64
	GetBytes      int64
	GetAvgNanos   int64
	CleanupCount  int64
	CleanupErrors int64
}
