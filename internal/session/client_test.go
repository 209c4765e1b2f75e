package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"arqftp/internal/config"
	"arqftp/internal/wire"
)

func TestSplitName(t *testing.T) {
	stem, ext := splitName("report.csv")
	assert.Equal(t, "report", stem)
	assert.Equal(t, "csv", ext)
}

func TestSplitNameNoExtension(t *testing.T) {
	stem, ext := splitName("README")
	assert.Equal(t, "README", stem)
	assert.Equal(t, "", ext)
}

func TestJoinName(t *testing.T) {
	assert.Equal(t, "report.csv", joinName("report", "csv"))
	assert.Equal(t, "README", joinName("README", ""))
}

func TestClientHandshakeRetriesOnTimeout(t *testing.T) {
	ch := &fakeChannel{}
	ch.queue(timeoutFakeEvent(), ackEvent(0))

	c := NewClient(ch, config.StopAndWait, nil)
	reply, err := c.handshake(wire.Upload, "x.bin")
	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal(wire.KindAck, reply.Kind)
	assert.Len(ch.outbox, 2)
	assert.Equal(wire.KindInit, ch.outbox[0].Kind)
}

func TestClientUploadRejected(t *testing.T) {
	ch := &fakeChannel{}
	ch.queue(finEvent())

	c := NewClient(ch, config.StopAndWait, nil)
	err := c.Upload("missing.bin", nil)
	var rejected *UploadRejectedError
	assert := assert.New(t)
	assert.ErrorAs(err, &rejected)
}
