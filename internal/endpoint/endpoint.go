// Package endpoint wraps a UDP socket behind the send/recv/timeout
// interface spec.md §4.2 requires of the core's only transport
// collaborator. It is the sole place net.UDPConn is touched; everything
// above this package speaks in wire.Packet and net.Addr.
package endpoint

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"arqftp/internal/config"
	"arqftp/internal/wire"
)

// ErrTimeout is returned by Recv when the armed read deadline elapses.
var ErrTimeout = errors.New("endpoint: timeout")

// IOError wraps a socket-level failure (bind, send, or receive).
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("endpoint: %s: %v", e.Op, e.Err) }
func (e *IOError) Unwrap() error  { return e.Err }

// Endpoint is a bound or connected UDP socket that speaks wire.Packet.
type Endpoint struct {
	conn net.PacketConn
}

// Bind opens a UDP socket listening on host:port. Used by the server
// (port fixed) and by clients that want a specific local ephemeral port.
func Bind(host string, port int) (*Endpoint, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, &IOError{Op: "resolve", Err: err}
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, &IOError{Op: "bind", Err: err}
	}
	_ = conn.SetReadBuffer(config.DefaultReadBuffer)
	_ = conn.SetWriteBuffer(config.DefaultWriteBuffer)
	return &Endpoint{conn: conn}, nil
}

// New wraps an already-constructed net.PacketConn (used by
// internal/testutil to wrap a decorated conn obtained through Conn).
func New(conn net.PacketConn) *Endpoint {
	return &Endpoint{conn: conn}
}

// Send serializes and transmits a packet to addr.
func (e *Endpoint) Send(p wire.Packet, addr net.Addr) error {
	raw, err := wire.Encode(p)
	if err != nil {
		return err
	}
	if _, err := e.conn.WriteTo(raw, addr); err != nil {
		return &IOError{Op: "send", Err: err}
	}
	return nil
}

// Recv blocks for one datagram (bounded by the last SetTimeout call),
// decodes it, and returns the packet with its sender's address.
//
// On a decode failure the returned error is wire.MalformedPacketError or
// wire.BadChecksumError (never wrapped further) so callers can
// type-switch per spec.md §4.2's edge-case policy; the packet value may
// still carry a usable Sequence for BadChecksumError.
func (e *Endpoint) Recv(bufsize int) (wire.Packet, net.Addr, error) {
	buf := make([]byte, bufsize)
	n, addr, err := e.conn.ReadFrom(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return wire.Packet{}, nil, ErrTimeout
		}
		return wire.Packet{}, nil, &IOError{Op: "recv", Err: err}
	}
	p, decErr := wire.Decode(buf[:n])
	return p, addr, decErr
}

// SetTimeout arms a read deadline applying to the next Recv call.
func (e *Endpoint) SetTimeout(d time.Duration) error {
	if err := e.conn.SetReadDeadline(time.Now().Add(d)); err != nil {
		return &IOError{Op: "set-timeout", Err: err}
	}
	return nil
}

// LocalAddr reports the endpoint's bound local address.
func (e *Endpoint) LocalAddr() net.Addr { return e.conn.LocalAddr() }

// Conn exposes the underlying net.PacketConn so a caller (such as
// internal/testutil's corruption harness) can wrap it with an
// instrumented decorator and hand the result back through New, without
// this package needing to know about any particular decorator.
func (e *Endpoint) Conn() net.PacketConn { return e.conn }

// Close releases the underlying socket; any in-flight Recv unblocks with
// an IOError.
func (e *Endpoint) Close() error {
	if err := e.conn.Close(); err != nil {
		return &IOError{Op: "close", Err: err}
	}
	return nil
}
