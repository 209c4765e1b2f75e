package arq

import (
	"errors"
	"log/slog"

	"arqftp/internal/config"
	"arqftp/internal/endpoint"
	"arqftp/internal/metrics"
	"arqftp/internal/wire"
)

// Sender drives the chosen ARQ strategy to deliver a Source's bytes
// reliably to a remote receiver. It implements spec.md §4.3 verbatim:
// Stop-and-Wait and Selective Repeat share this single engine,
// parameterised only by window size and the successor function (see
// DESIGN NOTES §9 — "retain this: parameterise ... rather than
// duplicating code").
type Sender struct {
	channel Channel
	mode    config.Mode
	log     *slog.Logger

	window     *Window
	base       uint32
	nextToSend uint32
	tries      int

	metrics *metrics.TransferMetrics
}

// SetMetrics attaches a counters sink that Send/retransmit events report
// to. Passing nil (the default) makes metrics collection a no-op, so
// existing callers that never call SetMetrics pay nothing for it.
func (s *Sender) SetMetrics(m *metrics.TransferMetrics) {
	s.metrics = m
}

// NewSender creates a Sender for mode over channel, starting at sequence 0.
func NewSender(channel Channel, mode config.Mode, log *slog.Logger) *Sender {
	if log == nil {
		log = slog.Default()
	}
	return &Sender{
		channel: channel,
		mode:    mode,
		log:     log,
		window:  NewWindow(mode.Window()),
	}
}

// SendAll drives src to completion: spec.md §4.3's three-step main loop.
func (s *Sender) SendAll(src Source) error {
	for {
		for !s.window.Full() {
			chunk, ok, err := src.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			pkt := wire.Packet{Kind: wire.KindData, Sequence: s.nextToSend, Payload: chunk}
			if err := s.channel.Send(pkt); err != nil {
				return err
			}
			if s.metrics != nil {
				s.metrics.AddSegmentsSent(1)
				s.metrics.AddBytesSent(uint64(len(chunk)))
			}
			s.window.Push(WindowItem{
				Sequence:         s.nextToSend,
				Payload:          chunk,
				RetriesRemaining: config.ItemRetries,
			})
			s.nextToSend = Successor(s.mode, s.nextToSend)
		}

		if s.window.Len() == 0 {
			return nil
		}

		if err := s.receiveAck(); err != nil {
			return err
		}
	}
}

// receiveAck implements spec.md §4.3's receive_ack: on timeout or NAK,
// retransmit the relevant packet; on ACK, mark progress and slide.
func (s *Sender) receiveAck() error {
	if err := s.channel.SetTimeout(config.AckTimeout); err != nil {
		return err
	}

	for {
		pkt, err := s.channel.Recv()
		switch {
		case errors.Is(err, endpoint.ErrTimeout):
			if s.metrics != nil {
				s.metrics.AddTimeout()
			}
			return s.retransmitHead()

		case err != nil:
			var bad *wire.BadChecksumError
			var malformed *wire.MalformedPacketError
			if errors.As(err, &bad) || errors.As(err, &malformed) {
				s.log.Debug("sender: discarding malformed packet while awaiting ack", "err", err)
				continue
			}
			return err

		case pkt.Kind == wire.KindNak:
			if s.metrics != nil {
				s.metrics.AddNack()
			}
			return s.retransmit(pkt.Sequence)

		case pkt.Kind == wire.KindAck:
			return s.handleAck(pkt.Sequence)

		default:
			s.log.Debug("sender: unexpected packet kind while awaiting ack", "kind", pkt.Kind.String())
			continue
		}
	}
}

func (s *Sender) handleAck(seq uint32) error {
	item := s.window.Find(seq)
	if item == nil {
		s.log.Debug("sender: ack for out-of-window sequence, discarding", "sequence", seq)
		return nil
	}
	item.Acked = true
	if seq == s.base {
		removed := s.window.SlideAcked()
		for i := 0; i < removed; i++ {
			s.base = Successor(s.mode, s.base)
		}
	}
	s.tries = 0
	return nil
}

// retransmitHead resends the window head after a receive_ack timeout.
func (s *Sender) retransmitHead() error {
	head := s.window.Head()
	if head == nil {
		return nil
	}
	return s.retransmitItem(head)
}

// retransmit resends the item named by a NAK, per spec.md §4.3: "treat
// as an immediate timeout event for the sequence number named in the
// NAK — retransmit that specific packet."
func (s *Sender) retransmit(seq uint32) error {
	item := s.window.Find(seq)
	if item == nil {
		s.log.Debug("sender: nak for out-of-window sequence, discarding", "sequence", seq)
		return nil
	}
	return s.retransmitItem(item)
}

func (s *Sender) retransmitItem(item *WindowItem) error {
	s.tries++
	if s.tries >= config.MaxTries {
		return &MaxRetriesExceededError{Sequence: item.Sequence, Tries: s.tries}
	}
	item.RetriesRemaining--
	if item.RetriesRemaining <= 0 {
		return &MaxRetriesExceededError{Sequence: item.Sequence, Tries: config.ItemRetries}
	}
	if s.metrics != nil {
		s.metrics.AddRetransmission()
	}
	return s.channel.Send(wire.Packet{Kind: wire.KindData, Sequence: item.Sequence, Payload: item.Payload})
}
