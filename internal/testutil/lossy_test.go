package testutil

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"arqftp/internal/config"
	"arqftp/internal/wire"
)

func TestDropPolicyDropsEachSequenceAtMostOnce(t *testing.T) {
	p := NewDropPolicy(1.0, 1) // rate 1.0: always drops on first sight
	assert.True(t, p.roll(5))
	assert.False(t, p.roll(5)) // same sequence: already dropped once, never again
	assert.True(t, p.roll(6))
}

func TestDropPolicyNilDisabled(t *testing.T) {
	var p *DropPolicy
	assert.False(t, p.roll(1))
}

func TestNewDropPolicyZeroRateReturnsNil(t *testing.T) {
	assert.Nil(t, NewDropPolicy(0, 1))
}

func TestCorruptPolicyCorruptsEachSequenceAtMostOnce(t *testing.T) {
	p := NewCorruptPolicy(1.0, 1)
	assert.True(t, p.roll(5))
	assert.False(t, p.roll(5))
	assert.True(t, p.roll(6))
}

func TestNewCorruptPolicyZeroRateReturnsNil(t *testing.T) {
	assert.Nil(t, NewCorruptPolicy(0, 1))
}

func TestDataSequenceParsesHeaderOnly(t *testing.T) {
	raw, err := wire.Encode(wire.Packet{Kind: wire.KindData, Sequence: 42, Payload: []byte("hello")})
	assert.NoError(t, err)
	seq, ok := dataSequence(raw)
	assert.True(t, ok)
	assert.Equal(t, uint32(42), seq)
}

func TestDataSequenceRejectsNonData(t *testing.T) {
	_, ok := dataSequence([]byte{'0', byte(config.Separator)})
	assert.False(t, ok)
}

func TestCorruptPayloadFlipsOnlyPastHeader(t *testing.T) {
	raw, err := wire.Encode(wire.Packet{Kind: wire.KindData, Sequence: 1, Payload: []byte("ABCDEFGHIJ")})
	assert.NoError(t, err)
	orig := append([]byte(nil), raw...)

	corruptPayload(raw, rand.New(rand.NewSource(3)))

	assert.NotEqual(t, orig, raw, "a byte must have changed")
	_, decErr := wire.Decode(raw)
	var bad *wire.BadChecksumError
	assert.ErrorAs(t, decErr, &bad)
	assert.Equal(t, uint32(1), bad.Sequence)
}
