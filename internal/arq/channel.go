package arq

import (
	"time"

	"arqftp/internal/wire"
)

// Channel is the narrow transport interface the sender/receiver engines
// need: send one packet to this session's fixed peer, receive the next
// one addressed to this session, and arm a read deadline. It is
// implemented by the client's adapter over a dedicated endpoint.Endpoint,
// and by the server's per-session adapter that demultiplexes a shared
// endpoint (DirectChannel and SessionChannel in internal/session).
type Channel interface {
	Send(p wire.Packet) error
	Recv() (wire.Packet, error)
	SetTimeout(d time.Duration) error
}
