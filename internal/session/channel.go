// Package session implements the handshake and role sequences that sit
// above the arq Sender/Receiver engine: INIT negotiation, FIN teardown,
// and the two Channel adapters that let the same engine run unmodified
// against a client's dedicated endpoint or a server's shared one.
package session

import (
	"net"
	"sync"
	"time"

	"arqftp/internal/config"
	"arqftp/internal/endpoint"
	"arqftp/internal/wire"
)

// DirectChannel adapts a client's own endpoint.Endpoint, which only ever
// talks to a single fixed peer, into an arq.Channel.
type DirectChannel struct {
	ep   *endpoint.Endpoint
	peer net.Addr
}

// NewDirectChannel wraps ep for exchanges with peer.
func NewDirectChannel(ep *endpoint.Endpoint, peer net.Addr) *DirectChannel {
	return &DirectChannel{ep: ep, peer: peer}
}

func (c *DirectChannel) Send(p wire.Packet) error {
	return c.ep.Send(p, c.peer)
}

func (c *DirectChannel) Recv() (wire.Packet, error) {
	pkt, _, err := c.ep.Recv(config.BufSize)
	return pkt, err
}

func (c *DirectChannel) SetTimeout(d time.Duration) error {
	return c.ep.SetTimeout(d)
}

// SessionChannel is the server-side Channel adapter: many sessions share
// one bound endpoint, so a dispatcher demultiplexes inbound packets by
// peer address into each session's inbox, while every session's outbound
// Send is serialized through the same mutex-guarded socket.
type SessionChannel struct {
	shared  *endpoint.Endpoint
	peer    net.Addr
	sendMu  *sync.Mutex
	inbox   chan wire.Packet
	errs    chan error
	timeout time.Duration
}

// NewSessionChannel constructs a demultiplexed Channel. sendMu is shared
// across every session attached to the same endpoint; inbox/errs are
// this session's private delivery queues, fed by the dispatcher's
// central receive loop (see internal/dispatch).
func NewSessionChannel(shared *endpoint.Endpoint, peer net.Addr, sendMu *sync.Mutex) *SessionChannel {
	return &SessionChannel{
		shared:  shared,
		peer:    peer,
		sendMu:  sendMu,
		inbox:   make(chan wire.Packet, 32),
		errs:    make(chan error, 1),
		timeout: config.AckTimeout,
	}
}

func (c *SessionChannel) Send(p wire.Packet) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.shared.Send(p, c.peer)
}

func (c *SessionChannel) Recv() (wire.Packet, error) {
	select {
	case pkt := <-c.inbox:
		return pkt, nil
	case err := <-c.errs:
		return wire.Packet{}, err
	case <-time.After(c.timeout):
		return wire.Packet{}, endpoint.ErrTimeout
	}
}

func (c *SessionChannel) SetTimeout(d time.Duration) error {
	c.timeout = d
	return nil
}

// Deliver hands an inbound packet addressed to this session's peer to
// its Recv loop. Called only by the dispatcher's receive goroutine.
func (c *SessionChannel) Deliver(p wire.Packet) {
	select {
	case c.inbox <- p:
	default:
		// Inbox full: the session is wedged or slow. Drop rather than
		// block the shared dispatcher loop; the sender's own retry
		// budget recovers the lost delivery.
	}
}

// Fail delivers a terminal transport error (e.g. the shared endpoint
// closed) to this session's Recv loop.
func (c *SessionChannel) Fail(err error) {
	select {
	case c.errs <- err:
	default:
	}
}
