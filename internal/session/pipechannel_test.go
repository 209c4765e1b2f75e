package session

import (
	"time"

	"arqftp/internal/endpoint"
	"arqftp/internal/wire"
)

// pipeChannel is a concurrency-safe, in-memory arq.Channel backed by Go
// channels, letting a test run a Client and a ServerSession against each
// other on separate goroutines without any UDP socket.
type pipeChannel struct {
	out     chan<- wire.Packet
	in      <-chan wire.Packet
	timeout time.Duration
}

// newPipe returns a connected pair of Channels: writes to a's out are
// b's in, and vice versa.
func newPipe() (a, b *pipeChannel) {
	ab := make(chan wire.Packet, 64)
	ba := make(chan wire.Packet, 64)
	a = &pipeChannel{out: ab, in: ba, timeout: 2 * time.Second}
	b = &pipeChannel{out: ba, in: ab, timeout: 2 * time.Second}
	return a, b
}

func (p *pipeChannel) Send(pkt wire.Packet) error {
	p.out <- pkt
	return nil
}

func (p *pipeChannel) Recv() (wire.Packet, error) {
	select {
	case pkt := <-p.in:
		return pkt, nil
	case <-time.After(p.timeout):
		return wire.Packet{}, endpoint.ErrTimeout
	}
}

func (p *pipeChannel) SetTimeout(d time.Duration) error {
	p.timeout = d
	return nil
}
