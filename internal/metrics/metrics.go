// Package metrics tracks transfer counters for a single session and
// aggregate counters across a server's lifetime, adapted from the
// teacher's TransferMetrics/ServerMetrics (internal/metrics): the
// sparkline/connection-history fields that fed its Fyne dashboard are
// dropped (no GUI exists in this repo, see DESIGN.md), but the atomic
// counter core — the part a headless CLI server can actually use for
// structured log fields — is kept.
package metrics

import (
	"sync/atomic"
	"time"
)

// TransferMetrics accumulates counters for one upload or download.
type TransferMetrics struct {
	BytesSent        uint64
	BytesReceived    uint64
	SegmentsSent     uint64
	SegmentsReceived uint64
	Retransmissions  uint64
	Timeouts         uint64
	NacksReceived    uint64

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	AverageSpeed float64 // bytes/second, useful direction only
	Efficiency   float64 // (segments / (segments + retransmissions)) * 100
}

// NewTransferMetrics starts the clock for a new session.
func NewTransferMetrics() *TransferMetrics {
	return &TransferMetrics{StartTime: time.Now()}
}

func (m *TransferMetrics) AddBytesSent(n uint64)        { atomic.AddUint64(&m.BytesSent, n) }
func (m *TransferMetrics) AddBytesReceived(n uint64)    { atomic.AddUint64(&m.BytesReceived, n) }
func (m *TransferMetrics) AddSegmentsSent(n uint64)     { atomic.AddUint64(&m.SegmentsSent, n) }
func (m *TransferMetrics) AddSegmentsReceived(n uint64) { atomic.AddUint64(&m.SegmentsReceived, n) }
func (m *TransferMetrics) AddRetransmission()           { atomic.AddUint64(&m.Retransmissions, 1) }
func (m *TransferMetrics) AddTimeout()                  { atomic.AddUint64(&m.Timeouts, 1) }
func (m *TransferMetrics) AddNack()                     { atomic.AddUint64(&m.NacksReceived, 1) }

// Finish stops the clock and derives the summary fields.
func (m *TransferMetrics) Finish() {
	m.EndTime = time.Now()
	m.Duration = m.EndTime.Sub(m.StartTime)

	moved := atomic.LoadUint64(&m.BytesSent) + atomic.LoadUint64(&m.BytesReceived)
	if m.Duration > 0 {
		m.AverageSpeed = float64(moved) / m.Duration.Seconds()
	}

	sent := atomic.LoadUint64(&m.SegmentsSent) + atomic.LoadUint64(&m.SegmentsReceived)
	retried := atomic.LoadUint64(&m.Retransmissions)
	if sent+retried > 0 {
		m.Efficiency = (float64(sent) / float64(sent+retried)) * 100
	} else {
		m.Efficiency = 100
	}
}

// Snapshot returns a value copy safe to log or serialize.
func (m *TransferMetrics) Snapshot() TransferMetrics {
	return TransferMetrics{
		BytesSent:        atomic.LoadUint64(&m.BytesSent),
		BytesReceived:    atomic.LoadUint64(&m.BytesReceived),
		SegmentsSent:     atomic.LoadUint64(&m.SegmentsSent),
		SegmentsReceived: atomic.LoadUint64(&m.SegmentsReceived),
		Retransmissions:  atomic.LoadUint64(&m.Retransmissions),
		Timeouts:         atomic.LoadUint64(&m.Timeouts),
		NacksReceived:    atomic.LoadUint64(&m.NacksReceived),
		StartTime:        m.StartTime,
		EndTime:          m.EndTime,
		Duration:         m.Duration,
		AverageSpeed:     m.AverageSpeed,
		Efficiency:       m.Efficiency,
	}
}

// ServerMetrics aggregates counters across every session a server has
// handled since it started.
type ServerMetrics struct {
	TotalSessions        uint64
	ActiveSessions       int64
	TotalBytesSent       uint64
	TotalBytesReceived   uint64
	TotalErrors          uint64
	TotalTimeouts        uint64
	TotalRetransmissions uint64

	StartTime time.Time
}

// NewServerMetrics starts the server's uptime clock.
func NewServerMetrics() *ServerMetrics {
	return &ServerMetrics{StartTime: time.Now()}
}

// AddSession records a newly admitted session.
func (m *ServerMetrics) AddSession() {
	atomic.AddUint64(&m.TotalSessions, 1)
	atomic.AddInt64(&m.ActiveSessions, 1)
}

// RemoveSession records a session's completion, merging its final
// counters into the server-wide totals.
func (m *ServerMetrics) RemoveSession(session TransferMetrics) {
	active := atomic.AddInt64(&m.ActiveSessions, -1)
	if active < 0 {
		atomic.StoreInt64(&m.ActiveSessions, 0)
	}
	atomic.AddUint64(&m.TotalBytesSent, session.BytesSent)
	atomic.AddUint64(&m.TotalBytesReceived, session.BytesReceived)
	atomic.AddUint64(&m.TotalTimeouts, session.Timeouts)
	atomic.AddUint64(&m.TotalRetransmissions, session.Retransmissions)
}

func (m *ServerMetrics) AddError() { atomic.AddUint64(&m.TotalErrors, 1) }

// Snapshot returns a value copy of the current aggregate counters.
func (m *ServerMetrics) Snapshot() ServerMetrics {
	return ServerMetrics{
		TotalSessions:        atomic.LoadUint64(&m.TotalSessions),
		ActiveSessions:       atomic.LoadInt64(&m.ActiveSessions),
		TotalBytesSent:       atomic.LoadUint64(&m.TotalBytesSent),
		TotalBytesReceived:   atomic.LoadUint64(&m.TotalBytesReceived),
		TotalErrors:          atomic.LoadUint64(&m.TotalErrors),
		TotalTimeouts:        atomic.LoadUint64(&m.TotalTimeouts),
		TotalRetransmissions: atomic.LoadUint64(&m.TotalRetransmissions),
		StartTime:            m.StartTime,
	}
}
