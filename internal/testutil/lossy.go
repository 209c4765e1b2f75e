// Package testutil provides a deterministic packet-loss/corruption
// harness for exercising the ARQ retry machinery end to end. LossyChannel
// (packet drop) is adapted from the teacher's clientudp.DropPolicy
// (internal/clientudp): a pseudo-random, single-shot-per-sequence
// decision so a retransmission of the same sequence is never dropped
// twice. LossyEndpoint applies the same single-shot guarantee to
// post-encode byte corruption, wrapping the raw socket instead of the
// arq.Channel, since a channel-level decorator can never observe true
// corruption — wire.Encode always recomputes the checksum from whatever
// Payload it's handed.
package testutil

import (
	"math/rand"
	"net"
	"strconv"
	"time"

	"arqftp/internal/arq"
	"arqftp/internal/config"
	"arqftp/internal/endpoint"
	"arqftp/internal/wire"
)

// DropPolicy decides, for a given outgoing DATA sequence, whether this
// specific send attempt should be discarded. Each sequence is eligible
// for at most one drop — its retransmission always gets through — so a
// bounded retry budget is still guaranteed to drain the backlog
// eventually.
type DropPolicy struct {
	rate    float64
	rnd     *rand.Rand
	already map[uint32]struct{}
}

// NewDropPolicy builds a policy with the given drop probability (0
// disables it) and PRNG seed.
func NewDropPolicy(rate float64, seed int64) *DropPolicy {
	if rate <= 0 {
		return nil
	}
	return &DropPolicy{rate: rate, rnd: rand.New(rand.NewSource(seed)), already: make(map[uint32]struct{})}
}

func (d *DropPolicy) roll(seq uint32) bool {
	if d == nil || d.rate <= 0 {
		return false
	}
	if _, done := d.already[seq]; done {
		return false
	}
	if d.rnd.Float64() < d.rate {
		d.already[seq] = struct{}{}
		return true
	}
	return false
}

// LossyChannel wraps an arq.Channel, silently discarding a chosen
// fraction of outgoing DATA packets per DropPolicy — simulating a lost
// datagram before it ever reaches the wire. INIT/ACK/NAK/FIN always pass
// through untouched, matching the teacher's policy, which only ever
// drops DATA segments.
type LossyChannel struct {
	inner arq.Channel
	drop  *DropPolicy
}

// NewLossyChannel wraps inner, applying policy to outgoing DATA sends.
// A nil policy makes this a transparent passthrough.
func NewLossyChannel(inner arq.Channel, policy *DropPolicy) *LossyChannel {
	return &LossyChannel{inner: inner, drop: policy}
}

func (c *LossyChannel) Send(p wire.Packet) error {
	if p.Kind == wire.KindData && c.drop.roll(p.Sequence) {
		return nil // simulate a lost datagram: pretend it was sent
	}
	return c.inner.Send(p)
}

func (c *LossyChannel) Recv() (wire.Packet, error) {
	return c.inner.Recv()
}

func (c *LossyChannel) SetTimeout(d time.Duration) error {
	return c.inner.SetTimeout(d)
}

// CorruptPolicy decides, for a raw outgoing DATA datagram's sequence,
// whether this send attempt should have a payload byte flipped before it
// reaches the wire. Same single-shot-per-sequence guarantee as
// DropPolicy, so a retransmission is never corrupted twice.
type CorruptPolicy struct {
	rate    float64
	rnd     *rand.Rand
	already map[uint32]struct{}
}

// NewCorruptPolicy builds a policy with the given corruption probability
// (0 disables it) and PRNG seed.
func NewCorruptPolicy(rate float64, seed int64) *CorruptPolicy {
	if rate <= 0 {
		return nil
	}
	return &CorruptPolicy{rate: rate, rnd: rand.New(rand.NewSource(seed)), already: make(map[uint32]struct{})}
}

func (c *CorruptPolicy) roll(seq uint32) bool {
	if c == nil || c.rate <= 0 {
		return false
	}
	if _, done := c.already[seq]; done {
		return false
	}
	if c.rnd.Float64() < c.rate {
		c.already[seq] = struct{}{}
		return true
	}
	return false
}

// dataSequence extracts the sequence field from a raw "1|seq|checksum|payload"
// datagram without a full wire.Decode, since a pre-corrupted buffer may not
// decode cleanly by the time this runs.
func dataSequence(raw []byte) (uint32, bool) {
	sep := byte(config.Separator)
	idx := -1
	for i := 2; i < len(raw); i++ {
		if raw[i] == sep {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, false
	}
	seq, err := strconv.ParseUint(string(raw[2:idx]), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(seq), true
}

// corruptPayload flips one random byte within raw's payload section
// in place, leaving the "1|seq|checksum|" header untouched: the
// corruption must land after the checksum wire.Encode already computed,
// or it would just be a different, still-internally-consistent packet.
func corruptPayload(raw []byte, rnd *rand.Rand) {
	sep := byte(config.Separator)
	seen, headerEnd := 0, -1
	for i := 2; i < len(raw); i++ {
		if raw[i] == sep {
			seen++
			if seen == 2 {
				headerEnd = i + 1
				break
			}
		}
	}
	if headerEnd < 0 || headerEnd >= len(raw) {
		return
	}
	pos := headerEnd + rnd.Intn(len(raw)-headerEnd)
	raw[pos] ^= 0xFF
}

// lossyConn wraps a net.PacketConn, corrupting CorruptPolicy-selected
// outgoing DATA datagrams' payload bytes after wire.Encode has already run
// — the only point corruption is observable, since Encode recomputes the
// checksum from the live Payload field and would otherwise heal any
// corruption applied earlier in the pipeline.
type lossyConn struct {
	net.PacketConn
	corrupt *CorruptPolicy
	rnd     *rand.Rand
}

func (c *lossyConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	if len(b) > 0 && wire.Kind(b[0]) == wire.KindData {
		if seq, ok := dataSequence(b); ok && c.corrupt.roll(seq) {
			corrupted := append([]byte(nil), b...)
			corruptPayload(corrupted, c.rnd)
			return c.PacketConn.WriteTo(corrupted, addr)
		}
	}
	return c.PacketConn.WriteTo(b, addr)
}

// NewLossyEndpoint wraps ep so a CorruptPolicy-selected fraction of
// outgoing DATA datagrams arrive with one flipped payload byte,
// simulating spec.md §8's "Corruption survives" scenario: the peer's
// wire.Decode call observes a genuine wire.BadChecksumError rather than a
// value mutated before its checksum was computed.
func NewLossyEndpoint(ep *endpoint.Endpoint, policy *CorruptPolicy, seed int64) *endpoint.Endpoint {
	return endpoint.New(&lossyConn{PacketConn: ep.Conn(), corrupt: policy, rnd: rand.New(rand.NewSource(seed))})
}
