package arq

import (
	"io"

	"arqftp/internal/config"
)

// Source yields contiguous byte chunks of at most config.MaxPayload
// bytes, per spec.md §4.3. Next returns ok=false once the source is
// exhausted.
type Source interface {
	Next() (chunk []byte, ok bool, err error)
}

// ChunkReader adapts an io.Reader into a Source, reading MAX_PAYLOAD-sized
// chunks — the byte-producing collaborator spec.md §1 keeps external to
// the core (the filesystem itself is never touched by this package).
type ChunkReader struct {
	r         io.Reader
	chunkSize int
}

// NewChunkReader wraps r, reading config.MaxPayload-sized chunks.
func NewChunkReader(r io.Reader) *ChunkReader {
	return &ChunkReader{r: r, chunkSize: config.MaxPayload}
}

func (c *ChunkReader) Next() ([]byte, bool, error) {
	buf := make([]byte, c.chunkSize)
	n, err := io.ReadFull(c.r, buf)
	switch {
	case err == nil:
		return buf, true, nil
	case err == io.ErrUnexpectedEOF:
		return buf[:n], n > 0, nil
	case err == io.EOF:
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// Sink is the byte-consuming collaborator a Receiver writes to.
// Anything implementing io.Writer satisfies it; Flush is called, if
// present, once a FIN closes the transfer.
type Sink interface {
	io.Writer
}

// Flusher is optionally implemented by a Sink that buffers writes.
type Flusher interface {
	Flush() error
}
