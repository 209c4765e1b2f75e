package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransferMetricsFinishComputesEfficiency(t *testing.T) {
	m := NewTransferMetrics()
	m.AddSegmentsSent(10)
	m.AddBytesSent(1000)
	m.AddRetransmission()
	m.AddRetransmission()
	time.Sleep(time.Millisecond)
	m.Finish()

	assert.Equal(t, uint64(2), m.Retransmissions)
	assert.InDelta(t, 83.3, m.Efficiency, 0.5) // 10/(10+2)*100
	assert.Greater(t, m.AverageSpeed, 0.0)
}

func TestTransferMetricsFinishNoActivityIsFullyEfficient(t *testing.T) {
	m := NewTransferMetrics()
	m.Finish()
	assert.Equal(t, 100.0, m.Efficiency)
}

func TestServerMetricsTracksActiveSessions(t *testing.T) {
	sm := NewServerMetrics()
	sm.AddSession()
	sm.AddSession()
	assert.EqualValues(t, 2, sm.Snapshot().ActiveSessions)

	done := NewTransferMetrics()
	done.AddBytesSent(500)
	done.AddRetransmission()
	sm.RemoveSession(*done)

	snap := sm.Snapshot()
	assert.EqualValues(t, 1, snap.ActiveSessions)
	assert.EqualValues(t, 500, snap.TotalBytesSent)
	assert.EqualValues(t, 1, snap.TotalRetransmissions)
}

func TestServerMetricsActiveSessionsNeverGoesNegative(t *testing.T) {
	sm := NewServerMetrics()
	sm.RemoveSession(TransferMetrics{})
	assert.EqualValues(t, 0, sm.Snapshot().ActiveSessions)
}
