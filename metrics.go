package toyfat

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordCreate is called after each CreateDirectory and CreateFile.
	RecordCreate(duration time.Duration, err error)

	// RecordOpen is called after each OpenFile that did not find the file
	// already open.
	RecordOpen(duration time.Duration, err error)

	// RecordRead is called after each ReadFile with the bytes produced.
	RecordRead(bytes int, duration time.Duration, err error)

	// RecordWrite is called after each WriteFile with the bytes requested.
	RecordWrite(bytes int, duration time.Duration, err error)

	// RecordDelete is called after each DeleteEntry.
	RecordDelete(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCreate(time.Duration, error)     {}
func (NoopMetricsCollector) RecordOpen(time.Duration, error)       {}
func (NoopMetricsCollector) RecordRead(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordWrite(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	CreateCount     atomic.Int64
	CreateErrors    atomic.Int64
	OpenCount       atomic.Int64
	OpenErrors      atomic.Int64
	ReadCount       atomic.Int64
	ReadErrors      atomic.Int64
	ReadBytes       atomic.Int64
	ReadTotalNanos  atomic.Int64
	WriteCount      atomic.Int64
	WriteErrors     atomic.Int64
	WriteBytes      atomic.Int64
	WriteTotalNanos atomic.Int64
	DeleteCount     atomic.Int64
	DeleteErrors    atomic.Int64
}

// RecordCreate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCreate(duration time.Duration, err error) {
	b.CreateCount.Add(1)
	if err != nil {
		b.CreateErrors.Add(1)
	}
}

// RecordOpen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOpen(duration time.Duration, err error) {
	b.OpenCount.Add(1)
	if err != nil {
		b.OpenErrors.Add(1)
	}
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(bytes int, duration time.Duration, err error) {
	b.ReadCount.Add(1)
	b.ReadBytes.Add(int64(bytes))
	b.ReadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ReadErrors.Add(1)
	}
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(bytes int, duration time.Duration, err error) {
	b.WriteCount.Add(1)
	b.WriteTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.WriteErrors.Add(1)
		return
	}
	b.WriteBytes.Add(int64(bytes))
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CreateCount:   b.CreateCount.Load(),
		CreateErrors:  b.CreateErrors.Load(),
		OpenCount:     b.OpenCount.Load(),
		OpenErrors:    b.OpenErrors.Load(),
		ReadCount:     b.ReadCount.Load(),
		ReadErrors:    b.ReadErrors.Load(),
		ReadBytes:     b.ReadBytes.Load(),
		ReadAvgNanos:  avg(b.ReadTotalNanos.Load(), b.ReadCount.Load()),
		WriteCount:    b.WriteCount.Load(),
		WriteErrors:   b.WriteErrors.Load(),
		WriteBytes:    b.WriteBytes.Load(),
		WriteAvgNanos: avg(b.WriteTotalNanos.Load(), b.WriteCount.Load()),
		DeleteCount:   b.DeleteCount.Load(),
		DeleteErrors:  b.DeleteErrors.Load(),
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
	CreateCount   int64
	CreateErrors  int64
	OpenCount     int64
	OpenErrors    int64
	ReadCount     int64
	ReadErrors    int64
	ReadBytes     int64
	ReadAvgNanos  int64
	WriteCount    int64
	WriteErrors   int64
	WriteBytes    int64
	WriteAvgNanos int64
	DeleteCount   int64
	DeleteErrors  int64
}
