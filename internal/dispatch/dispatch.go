// Package dispatch runs the server's single receive loop over one bound
// endpoint.Endpoint and fans inbound datagrams out to per-peer sessions,
// generalizing the teacher's baseDir/activeTransfers/packetLoop trio
// (internal/serverudp) from a map of in-flight file entries into a map
// of live session.ServerSession Channels.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"arqftp/internal/config"
	"arqftp/internal/endpoint"
	"arqftp/internal/metrics"
	"arqftp/internal/session"
	"arqftp/internal/wire"
)

// ErrShuttingDown is delivered to every live session when the
// dispatcher's Run loop exits cleanly (context cancellation), so their
// blocked Recv calls return instead of hanging past shutdown.
var ErrShuttingDown = errors.New("dispatch: server shutting down")

// Dispatcher owns the server's single UDP endpoint and the set of
// sessions currently attached to it, one per peer address. New peers are
// admitted only via an INIT packet; anything else from an unknown peer
// is logged and discarded, per spec.md §4.6/§7.
type Dispatcher struct {
	ep      *endpoint.Endpoint
	storage string
	log     *slog.Logger

	sendMu sync.Mutex

	mu       sync.Mutex
	sessions map[string]*session.SessionChannel

	group *errgroup.Group

	// Metrics aggregates counters across every session this dispatcher
	// has ever admitted; safe for concurrent read via Metrics.Snapshot.
	Metrics *metrics.ServerMetrics
}

// New builds a Dispatcher bound to ep, serving files under storage. Each
// admitted session's ARQ strategy comes from that peer's own INIT packet
// (wire.Packet.Mode), so one Dispatcher serves Stop-and-Wait and
// Selective Repeat clients concurrently.
func New(ep *endpoint.Endpoint, storage string, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		ep:       ep,
		storage:  storage,
		log:      log,
		sessions: make(map[string]*session.SessionChannel),
		Metrics:  metrics.NewServerMetrics(),
	}
}

// Run drives the receive loop until ctx is cancelled (Run then returns
// nil) or the endpoint hits a socket error; read timeouts and datagrams
// that fail to decode do not stop it. Each admitted session runs on its
// own supervised goroutine; Run returns once every session goroutine has
// exited.
func (d *Dispatcher) Run(ctx context.Context) error {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, _ := errgroup.WithContext(context.Background())
	d.group = group

	group.Go(func() error {
		<-cctx.Done()
		return d.ep.Close()
	})

	var loopErr error
	for {
		if err := d.ep.SetTimeout(config.AckTimeout); err != nil {
			loopErr = err
			break
		}
		pkt, addr, err := d.ep.Recv(config.BufSize)
		if err != nil {
			if errors.Is(err, endpoint.ErrTimeout) {
				select {
				case <-cctx.Done():
					loopErr = nil
				default:
					continue
				}
				break
			}

			var bad *wire.BadChecksumError
			var malformed *wire.MalformedPacketError
			if errors.As(err, &bad) || errors.As(err, &malformed) {
				// A single corrupted or truncated datagram from one peer
				// must not bring down every other session (spec.md §4.6).
				// The owning session's own Receiver recovers via its
				// per-session retry/timeout once it stops hearing from
				// its peer; there is nothing reliable to route here since
				// the packet never fully decoded.
				d.log.Debug("dispatch: discarding undecodable datagram", "peer", addr.String(), "err", err)
				continue
			}

			loopErr = err
			break
		}
		select {
		case <-cctx.Done():
			loopErr = nil
		default:
			d.route(pkt, addr)
			continue
		}
		break
	}
	if ctx.Err() != nil {
		// Cancellation closes the endpoint, so the loop above sees an
		// IOError from the closed socket; that is a clean shutdown.
		loopErr = nil
	}

	shutdownErr := loopErr
	if shutdownErr == nil {
		shutdownErr = ErrShuttingDown
	}
	d.failAll(shutdownErr)
	cancel()
	if err := group.Wait(); err != nil && loopErr == nil {
		loopErr = err
	}
	return loopErr
}

// route delivers pkt to its peer's existing session, or — for an INIT
// from an unknown peer — spawns a new one.
func (d *Dispatcher) route(pkt wire.Packet, addr net.Addr) {
	key := addr.String()

	d.mu.Lock()
	ch, ok := d.sessions[key]
	d.mu.Unlock()

	if ok {
		ch.Deliver(pkt)
		return
	}

	if pkt.Kind != wire.KindInit {
		d.log.Debug("dispatch: packet from unknown peer discarded", "peer", key, "kind", pkt.Kind.String())
		return
	}

	ch = session.NewSessionChannel(d.ep, addr, &d.sendMu)
	d.mu.Lock()
	d.sessions[key] = ch
	d.mu.Unlock()

	d.log.Info("dispatch: session started", "peer", key, "operation", string(pkt.Operation), "mode", pkt.Mode.String())
	d.Metrics.AddSession()
	d.group.Go(func() error {
		defer d.remove(key)
		srv := session.NewServerSession(ch, d.storage, pkt.Mode, d.log)
		err := srv.Run(pkt)
		d.Metrics.RemoveSession(*srv.Metrics)
		if err != nil {
			d.Metrics.AddError()
			d.log.Warn("dispatch: session ended with error", "peer", key, "err", err)
			return nil // a single failed peer must not bring down the dispatcher
		}
		d.log.Info("dispatch: session completed", "peer", key,
			"bytes_sent", srv.Metrics.BytesSent, "bytes_received", srv.Metrics.BytesReceived,
			"retransmissions", srv.Metrics.Retransmissions)
		return nil
	})
}

func (d *Dispatcher) remove(key string) {
	d.mu.Lock()
	delete(d.sessions, key)
	d.mu.Unlock()
}

// failAll propagates a terminal transport error (the shared endpoint
// closing) to every live session so their Recv calls unblock.
func (d *Dispatcher) failAll(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.sessions {
		ch.Fail(err)
	}
}
