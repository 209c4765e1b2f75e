package arq

import (
	"time"

	"arqftp/internal/endpoint"
	"arqftp/internal/wire"
)

// fakeChannel is an in-memory Channel for unit-testing Sender/Receiver
// without a real UDP socket. inbox holds scripted responses/events that
// Recv consumes in order; outbox records everything Send wrote. An event
// with timeout set, or a Recv past the end of inbox, means "time out".
type fakeChannel struct {
	inbox  []fakeEvent
	pos    int
	outbox []wire.Packet
}

type fakeEvent struct {
	pkt     wire.Packet
	timeout bool
	err     error
}

func (f *fakeChannel) Send(p wire.Packet) error {
	f.outbox = append(f.outbox, p)
	return nil
}

func (f *fakeChannel) Recv() (wire.Packet, error) {
	if f.pos >= len(f.inbox) {
		return wire.Packet{}, endpoint.ErrTimeout
	}
	ev := f.inbox[f.pos]
	f.pos++
	if ev.timeout {
		return wire.Packet{}, endpoint.ErrTimeout
	}
	if ev.err != nil {
		return wire.Packet{}, ev.err
	}
	return ev.pkt, nil
}

func (f *fakeChannel) SetTimeout(d time.Duration) error { return nil }

func (f *fakeChannel) queue(events ...fakeEvent) {
	f.inbox = append(f.inbox, events...)
}

func ack(seq uint32) fakeEvent  { return fakeEvent{pkt: wire.Packet{Kind: wire.KindAck, Sequence: seq, Valid: true}} }
func nak(seq uint32) fakeEvent  { return fakeEvent{pkt: wire.Packet{Kind: wire.KindNak, Sequence: seq}} }
func data(seq uint32, payload []byte) fakeEvent {
	return fakeEvent{pkt: wire.Packet{Kind: wire.KindData, Sequence: seq, Payload: payload, Checksum: wire.Checksum(payload)}}
}
func fin() fakeEvent { return fakeEvent{pkt: wire.Packet{Kind: wire.KindFin}} }
func timeoutEvent() fakeEvent { return fakeEvent{timeout: true} }
func badChecksum(seq uint32) fakeEvent {
	return fakeEvent{err: &wire.BadChecksumError{Sequence: seq}}
}
