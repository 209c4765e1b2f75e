package arq

import (
	"errors"
	"log/slog"
	"sort"

	"arqftp/internal/config"
	"arqftp/internal/endpoint"
	"arqftp/internal/metrics"
	"arqftp/internal/wire"
)

// Receiver consumes DATA packets from a remote sender, acknowledges them
// per the ARQ strategy, and writes bytes to a Sink strictly in ascending
// sequence order (spec.md §4.4). Under Stop-and-Wait the window is 1 so
// ordering is automatic; Selective Repeat buffers out-of-order arrivals.
type Receiver struct {
	channel Channel
	mode    config.Mode
	log     *slog.Logger

	expected uint32
	tries    int
	buffered map[uint32][]byte

	metrics *metrics.TransferMetrics
}

// SetMetrics attaches a counters sink; nil (the default) disables it.
func (r *Receiver) SetMetrics(m *metrics.TransferMetrics) {
	r.metrics = m
}

// NewReceiver creates a Receiver for mode over channel, expecting
// sequence 0 first.
func NewReceiver(channel Channel, mode config.Mode, log *slog.Logger) *Receiver {
	if log == nil {
		log = slog.Default()
	}
	return &Receiver{
		channel:  channel,
		mode:     mode,
		log:      log,
		buffered: make(map[uint32][]byte),
	}
}

// ReceiveAll runs the main loop of spec.md §4.4 until a FIN is received
// (success) or the retry budget is exhausted (failure).
func (r *Receiver) ReceiveAll(sink Sink) error {
	for {
		if err := r.channel.SetTimeout(config.AckTimeout); err != nil {
			return err
		}
		pkt, err := r.channel.Recv()

		switch {
		case errors.Is(err, endpoint.ErrTimeout):
			if r.metrics != nil {
				r.metrics.AddTimeout()
			}
			if done, ferr := r.onLossy(); ferr != nil || done {
				return ferr
			}
			continue

		case err != nil:
			var bad *wire.BadChecksumError
			var malformed *wire.MalformedPacketError
			if errors.As(err, &bad) || errors.As(err, &malformed) {
				if done, ferr := r.onLossy(); ferr != nil || done {
					return ferr
				}
				continue
			}
			return err

		case pkt.Kind == wire.KindFin:
			if f, ok := sink.(Flusher); ok {
				if ferr := f.Flush(); ferr != nil {
					return ferr
				}
			}
			return r.channel.Send(wire.Packet{Kind: wire.KindAck, Sequence: 0, Valid: true})

		case pkt.Kind == wire.KindData:
			if err := r.handleData(pkt, sink); err != nil {
				return err
			}

		default:
			r.log.Debug("receiver: unexpected packet kind during transfer, discarding", "kind", pkt.Kind.String())
		}
	}
}

// onLossy handles a Timeout/BadChecksum/MalformedPacket event: NAK the
// currently expected sequence and track the retry budget.
func (r *Receiver) onLossy() (done bool, err error) {
	if sendErr := r.channel.Send(wire.Packet{Kind: wire.KindNak, Sequence: r.expected}); sendErr != nil {
		return true, sendErr
	}
	if r.metrics != nil {
		r.metrics.AddNack()
	}
	r.tries++
	if r.tries >= config.MaxTries {
		return true, &MaxRetriesExceededError{Sequence: r.expected, Tries: r.tries}
	}
	return false, nil
}

func (r *Receiver) handleData(pkt wire.Packet, sink Sink) error {
	switch compare(r.mode, pkt.Sequence, r.expected) {
	case cmpExpected:
		if _, err := sink.Write(pkt.Payload); err != nil {
			return err
		}
		if err := r.channel.Send(wire.Packet{Kind: wire.KindAck, Sequence: pkt.Sequence, Valid: true}); err != nil {
			return err
		}
		if r.metrics != nil {
			r.metrics.AddSegmentsReceived(1)
			r.metrics.AddBytesReceived(uint64(len(pkt.Payload)))
		}
		r.expected = Successor(r.mode, r.expected)
		r.tries = 0
		return r.drainBuffered(sink)

	case cmpDuplicate:
		// Already delivered: re-send the identical ACK, discard the payload.
		return r.channel.Send(wire.Packet{Kind: wire.KindAck, Sequence: pkt.Sequence, Valid: true})

	default: // cmpFuture — only reachable under Selective Repeat (window > 1)
		r.buffered[pkt.Sequence] = pkt.Payload
		return r.channel.Send(wire.Packet{Kind: wire.KindAck, Sequence: pkt.Sequence, Valid: true})
	}
}

// drainBuffered flushes any out-of-order packets that have become
// deliverable now that expected has advanced.
func (r *Receiver) drainBuffered(sink Sink) error {
	for {
		payload, ok := r.buffered[r.expected]
		if !ok {
			return nil
		}
		if _, err := sink.Write(payload); err != nil {
			return err
		}
		if r.metrics != nil {
			r.metrics.AddSegmentsReceived(1)
			r.metrics.AddBytesReceived(uint64(len(payload)))
		}
		delete(r.buffered, r.expected)
		r.expected = Successor(r.mode, r.expected)
	}
}

// bufferedSequences is a test/debug helper returning the buffered
// out-of-order sequence numbers in ascending order.
func (r *Receiver) bufferedSequences() []uint32 {
	out := make([]uint32, 0, len(r.buffered))
	for seq := range r.buffered {
		out = append(out, seq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
