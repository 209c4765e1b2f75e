package session

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"arqftp/internal/arq"
	"arqftp/internal/config"
	"arqftp/internal/endpoint"
	"arqftp/internal/metrics"
	"arqftp/internal/wire"
)

// ServerSession runs one peer's full request lifecycle: the INIT that
// spawned it, the upload or download role, and the terminating FIN —
// per spec.md §4.5's server-side sequence. One ServerSession exists per
// concurrently-connected peer; internal/dispatch owns the map keying
// them by address and the goroutine each one runs on.
type ServerSession struct {
	channel arq.Channel
	storage string
	mode    config.Mode
	log     *slog.Logger

	// Metrics accumulates this session's transfer counters. It is
	// always non-nil so callers (internal/dispatch) can read it after
	// Run returns without a nil check.
	Metrics *metrics.TransferMetrics
}

// NewServerSession builds a session bound to storage (the server's file
// root) and the ARQ mode the peer's INIT requested.
func NewServerSession(ch arq.Channel, storage string, mode config.Mode, log *slog.Logger) *ServerSession {
	if log == nil {
		log = slog.Default()
	}
	return &ServerSession{channel: ch, storage: storage, mode: mode, log: log, Metrics: metrics.NewTransferMetrics()}
}

// Run executes the session to completion given the INIT packet that
// spawned it. It returns nil on a clean FIN-terminated transfer,
// *RemoteFileNotFoundError for a download naming a missing file, or any
// transport/IO error the engines surfaced. An upload the server declines
// to accept (e.g. its destination path can't be created) is not reported
// as an error here: the session answers with FIN per spec.md §4.5 and
// returns nil, leaving it to the peer's Client.Upload to surface
// *UploadRejectedError.
func (s *ServerSession) Run(init wire.Packet) error {
	name := joinName(init.FileStem, init.FileExtension)
	path := filepath.Join(s.storage, name)

	defer s.Metrics.Finish()

	switch init.Operation {
	case wire.Upload:
		return s.runUpload(path)
	case wire.Download:
		return s.runDownload(name, path)
	default:
		return &arq.ProtocolViolationError{Kind: string(init.Operation)}
	}
}

func joinName(stem, ext string) string {
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}

func (s *ServerSession) runUpload(path string) error {
	f, err := os.Create(path)
	if err != nil {
		s.log.Error("server session: cannot create upload destination", "path", path, "err", err)
		return s.channel.Send(wire.Packet{Kind: wire.KindFin})
	}
	defer f.Close()

	if err := s.channel.Send(wire.Packet{Kind: wire.KindAck, Sequence: 0, Valid: true}); err != nil {
		return err
	}

	receiver := arq.NewReceiver(s.channel, s.mode, s.log)
	receiver.SetMetrics(s.Metrics)
	return receiver.ReceiveAll(f)
}

func (s *ServerSession) runDownload(name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if err := s.channel.Send(wire.Packet{Kind: wire.KindFin}); err != nil {
			return err
		}
		return &RemoteFileNotFoundError{Name: name}
	}
	defer f.Close()

	if err := s.channel.Send(wire.Packet{Kind: wire.KindAck, Sequence: 0, Valid: true}); err != nil {
		return err
	}
	if err := s.awaitPrimingAck(); err != nil {
		return err
	}

	sender := arq.NewSender(s.channel, s.mode, s.log)
	sender.SetMetrics(s.Metrics)
	if err := sender.SendAll(arq.NewChunkReader(f)); err != nil {
		return err
	}
	return s.sendFin()
}

// awaitPrimingAck blocks for the client's window-opening ACK(0), which
// tells the server it is ready to receive DATA (spec.md §4.5). Any other
// packet kind is discarded and the wait continues.
func (s *ServerSession) awaitPrimingAck() error {
	for tries := 0; tries < config.MaxTries; tries++ {
		if err := s.channel.SetTimeout(config.AckTimeout); err != nil {
			return err
		}
		pkt, err := s.channel.Recv()
		switch {
		case errors.Is(err, endpoint.ErrTimeout):
			continue
		case err != nil:
			var bad *wire.BadChecksumError
			var malformed *wire.MalformedPacketError
			if errors.As(err, &bad) || errors.As(err, &malformed) {
				continue
			}
			return err
		case pkt.Kind == wire.KindAck:
			return nil
		default:
			s.log.Debug("server session: unexpected packet awaiting priming ack", "kind", pkt.Kind.String())
		}
	}
	return &HandshakeError{Tries: config.MaxTries}
}

func (s *ServerSession) sendFin() error {
	for tries := 0; tries < config.MaxTries; tries++ {
		if err := s.channel.Send(wire.Packet{Kind: wire.KindFin}); err != nil {
			return err
		}
		if err := s.channel.SetTimeout(config.AckTimeout); err != nil {
			return err
		}
		reply, err := s.channel.Recv()
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
