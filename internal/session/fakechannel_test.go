package session

import (
	"time"

	"arqftp/internal/endpoint"
	"arqftp/internal/wire"
)

// fakeChannel is an in-memory arq.Channel for exercising Client and
// ServerSession without a real socket. Unlike the arq package's own
// fake, events can be supplied lazily via a responder function so a
// test can react to what was just sent (e.g. reply ACK to whatever
// sequence the other side sent).
type fakeChannel struct {
	inbox   []fakeEvent
	pos     int
	outbox  []wire.Packet
	respond func(sent wire.Packet) *fakeEvent
}

type fakeEvent struct {
	pkt     wire.Packet
	timeout bool
	err     error
}

func (f *fakeChannel) Send(p wire.Packet) error {
	f.outbox = append(f.outbox, p)
	if f.respond != nil {
		if ev := f.respond(p); ev != nil {
			f.inbox = append(f.inbox, *ev)
		}
	}
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

func ackEvent(seq uint32) fakeEvent {
	return fakeEvent{pkt: wire.Packet{Kind: wire.KindAck, Sequence: seq, Valid: true}}
}
func finEvent() fakeEvent { return fakeEvent{pkt: wire.Packet{Kind: wire.KindFin}} }
func dataEvent(seq uint32, payload []byte) fakeEvent {
	return fakeEvent{pkt: wire.Packet{Kind: wire.KindData, Sequence: seq, Payload: payload, Checksum: wire.Checksum(payload)}}
}
func timeoutFakeEvent() fakeEvent { return fakeEvent{timeout: true} }
