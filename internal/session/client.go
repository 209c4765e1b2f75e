package session

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"arqftp/internal/arq"
	"arqftp/internal/config"
	"arqftp/internal/endpoint"
	"arqftp/internal/metrics"
	"arqftp/internal/wire"
)

// Client drives the handshake and role sequence for one upload or
// download against a fixed remote peer, over an arq.Channel — normally
// a DirectChannel, or a fake in tests.
type Client struct {
	channel arq.Channel
	mode    config.Mode
	log     *slog.Logger

	// Metrics accumulates this transfer's counters, available to the
	// caller once Upload/Download returns.
	Metrics *metrics.TransferMetrics
}

// NewClient builds a Client for a single transfer.
func NewClient(ch arq.Channel, mode config.Mode, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{channel: ch, mode: mode, log: log, Metrics: metrics.NewTransferMetrics()}
}

// splitName divides a filename into the stem/extension pair the INIT
// packet carries, per spec.md §3's Packet table.
func splitName(name string) (stem, ext string) {
	ext = filepath.Ext(name)
	stem = strings.TrimSuffix(name, ext)
	return stem, strings.TrimPrefix(ext, ".")
}

// handshake sends INIT and retries under the shared MaxTries budget
// until the peer answers with ACK (proceed) or FIN (abort — used by
// Download to signal "file not found"). Any other reply is discarded
// and the wait continues.
func (c *Client) handshake(op wire.Operation, name string) (wire.Packet, error) {
	stem, ext := splitName(name)
	init := wire.Packet{Kind: wire.KindInit, Operation: op, FileStem: stem, FileExtension: ext, Mode: c.mode}

	for tries := 0; tries < config.MaxTries; tries++ {
		if err := c.channel.Send(init); err != nil {
			return wire.Packet{}, err
		}
		if err := c.channel.SetTimeout(config.AckTimeout); err != nil {
			return wire.Packet{}, err
		}
		reply, err := c.channel.Recv()
		switch {
		case errors.Is(err, endpoint.ErrTimeout):
			continue
		case err != nil:
			var bad *wire.BadChecksumError
			var malformed *wire.MalformedPacketError
			if errors.As(err, &bad) || errors.As(err, &malformed) {
				continue
			}
			return wire.Packet{}, err
		case reply.Kind == wire.KindAck, reply.Kind == wire.KindFin:
			return reply, nil
		default:
			c.log.Debug("client: unexpected reply during handshake, ignoring", "kind", reply.Kind.String())
		}
	}
	return wire.Packet{}, &HandshakeError{Tries: config.MaxTries}
}

// Upload sends the bytes read from src to the server under name,
// per spec.md §4.5's client upload sequence: INIT, then the arq Sender
// loop, then FIN.
func (c *Client) Upload(name string, src io.Reader) error {
	defer c.Metrics.Finish()

	reply, err := c.handshake(wire.Upload, name)
	if err != nil {
		return err
	}
	if reply.Kind == wire.KindFin {
		return &UploadRejectedError{Name: name}
	}

	sender := arq.NewSender(c.channel, c.mode, c.log)
	sender.SetMetrics(c.Metrics)
	if err := sender.SendAll(arq.NewChunkReader(src)); err != nil {
		return err
	}
	return c.sendFin()
}

// Download requests name from the server and writes the received bytes
// to dst, per spec.md §4.5's client download sequence: INIT; if the
// server replies FIN the file doesn't exist; otherwise an ACK(0) primes
// the server's sender before the arq Receiver loop runs to completion.
func (c *Client) Download(name string, dst arq.Sink) error {
	defer c.Metrics.Finish()

	reply, err := c.handshake(wire.Download, name)
	if err != nil {
		return err
	}
	if reply.Kind == wire.KindFin {
		return &RemoteFileNotFoundError{Name: name}
	}

	// Prime the server's sender: it will not begin transmitting DATA
	// until it sees the window-opening ACK(0).
	if err := c.channel.Send(wire.Packet{Kind: wire.KindAck, Sequence: 0, Valid: true}); err != nil {
		return err
	}

	receiver := arq.NewReceiver(c.channel, c.mode, c.log)
	receiver.SetMetrics(c.Metrics)
	return receiver.ReceiveAll(dst)
}

func (c *Client) sendFin() error {
	for tries := 0; tries < config.MaxTries; tries++ {
		if err := c.channel.Send(wire.Packet{Kind: wire.KindFin}); err != nil {
			return err
		}
		if err := c.channel.SetTimeout(config.AckTimeout); err != nil {
			return err
		}
		reply, err := c.channel.Recv()
		switch {
		case errors.Is(err, endpoint.ErrTimeout):
			continue
		case err != nil:
			continue
		case reply.Kind == wire.KindAck:
			return nil
		default:
			continue
		}
	}
	return &HandshakeError{Tries: config.MaxTries}
}
