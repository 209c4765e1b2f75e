package arq

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arqftp/internal/config"
	"arqftp/internal/metrics"
)

func TestReceiverStopAndWaitHappyPath(t *testing.T) {
	ch := &fakeChannel{}
	ch.queue(data(0, []byte("hel")), data(1, []byte("lo")), fin())
	var sink bytes.Buffer

	r := NewReceiver(ch, config.StopAndWait, nil)
	require.NoError(t, r.ReceiveAll(&sink))

	assert.Equal(t, "hello", sink.String())
	require.Len(t, ch.outbox, 3)
	assert.Equal(t, "ACK", ch.outbox[0].Kind.String())
	assert.Equal(t, "ACK", ch.outbox[1].Kind.String())
	assert.Equal(t, "ACK", ch.outbox[2].Kind.String())
}

func TestReceiverReAcksDuplicate(t *testing.T) {
	ch := &fakeChannel{}
	ch.queue(data(0, []byte("hi")), data(0, []byte("hi")), data(1, []byte("!")), fin())
	var sink bytes.Buffer

	r := NewReceiver(ch, config.StopAndWait, nil)
	require.NoError(t, r.ReceiveAll(&sink))
	assert.Equal(t, "hi!", sink.String())
	require.Len(t, ch.outbox, 4)
}

func TestReceiverNaksOnTimeout(t *testing.T) {
	ch := &fakeChannel{}
	ch.queue(timeoutEvent(), data(0, []byte("x")), fin())
	var sink bytes.Buffer

	r := NewReceiver(ch, config.StopAndWait, nil)
	require.NoError(t, r.ReceiveAll(&sink))
	require.Len(t, ch.outbox, 3)
	assert.Equal(t, "NAK", ch.outbox[0].Kind.String())
	assert.Equal(t, uint32(0), ch.outbox[0].Sequence)
}

func TestReceiverNaksOnBadChecksum(t *testing.T) {
	ch := &fakeChannel{}
	ch.queue(badChecksum(0), data(0, []byte("ok")), fin())
	var sink bytes.Buffer

	r := NewReceiver(ch, config.StopAndWait, nil)
	require.NoError(t, r.ReceiveAll(&sink))
	assert.Equal(t, "ok", sink.String())
	assert.Equal(t, "NAK", ch.outbox[0].Kind.String())
}

func TestReceiverMaxRetriesExceeded(t *testing.T) {
	ch := &fakeChannel{}
	for i := 0; i < config.MaxTries+1; i++ {
		ch.queue(timeoutEvent())
	}
	var sink bytes.Buffer

	r := NewReceiver(ch, config.StopAndWait, nil)
	err := r.ReceiveAll(&sink)
	require.Error(t, err)
	var maxErr *MaxRetriesExceededError
	require.True(t, errors.As(err, &maxErr))
}

func TestReceiverSelectiveRepeatBuffersOutOfOrder(t *testing.T) {
	ch := &fakeChannel{}
	// 2 arrives before 1 and 0; should be buffered and drained in order.
	ch.queue(
		data(2, []byte("C")),
		data(0, []byte("A")),
		data(1, []byte("B")),
		fin(),
	)
	var sink bytes.Buffer

	r := NewReceiver(ch, config.SelectiveRepeat, nil)
	require.NoError(t, r.ReceiveAll(&sink))
	assert.Equal(t, "ABC", sink.String())
	assert.Empty(t, r.bufferedSequences())
}

func TestReceiverSelectiveRepeatDuplicateAfterAdvance(t *testing.T) {
	ch := &fakeChannel{}
	ch.queue(
		data(0, []byte("A")),
		data(0, []byte("A")), // stale duplicate, re-ack, discard
		data(1, []byte("B")),
		fin(),
	)
	var sink bytes.Buffer

	r := NewReceiver(ch, config.SelectiveRepeat, nil)
	require.NoError(t, r.ReceiveAll(&sink))
	assert.Equal(t, "AB", sink.String())
}

// flushingSink exercises the Flusher path invoked on FIN.
type flushingSink struct {
	bytes.Buffer
	flushed bool
}

func (f *flushingSink) Flush() error {
	f.flushed = true
	return nil
}

func TestReceiverFlushesSinkOnFin(t *testing.T) {
	ch := &fakeChannel{}
	ch.queue(data(0, []byte("z")), fin())
	sink := &flushingSink{}

	r := NewReceiver(ch, config.StopAndWait, nil)
	require.NoError(t, r.ReceiveAll(sink))
	assert.True(t, sink.flushed)
}

func TestReceiverMetricsCountSegmentsAndNacks(t *testing.T) {
	ch := &fakeChannel{}
	ch.queue(timeoutEvent(), data(0, []byte("hel")), data(1, []byte("lo")), fin())
	var sink bytes.Buffer

	r := NewReceiver(ch, config.StopAndWait, nil)
	m := metrics.NewTransferMetrics()
	r.SetMetrics(m)
	require.NoError(t, r.ReceiveAll(&sink))

	assert.EqualValues(t, 2, m.SegmentsReceived)
	assert.EqualValues(t, 5, m.BytesReceived)
	assert.EqualValues(t, 1, m.NacksReceived)
	assert.EqualValues(t, 1, m.Timeouts)
}
