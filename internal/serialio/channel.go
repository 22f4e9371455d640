package serialio

import (
	"fmt"
	"time"
)

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

// DefaultPollTimeout is how long a single Poll waits for bytes on ports that
// support read timeouts. The reply framer loops over Poll, so this bounds the
// latency of noticing a deadline, not the total wait for a reply.
const DefaultPollTimeout = 50 * time.Millisecond

// Channel wraps a serial port with the half-duplex transport contract the
// bridge relies on: Send a complete command, Poll for whatever reply bytes
// have arrived, and flush residual data in either direction. It has no
// knowledge of message framing.
type Channel struct {
	port Porter
}

// NewChannel creates a Channel over the given port. If the port supports read
// timeouts, reads are configured to return empty rather than block forever.
func NewChannel(port Porter) (*Channel, error) {
	if tp, ok := port.(TimeoutPorter); ok {
		if err := tp.SetReadTimeout(DefaultPollTimeout); err != nil {
			return nil, fmt.Errorf("set read timeout: %w", err)
		}
	}
	return &Channel{port: port}, nil
}

// Send writes the full buffer to the port. A short write is reported as
// ErrWriteFailed: the interpreter cannot act on a truncated command.
func (c *Channel) Send(p []byte) (int, error) {
	n, err := c.port.Write(p)
	if err != nil {
		return n, err
	}
	if n != len(p) {
		return n, ErrWriteFailed
	}
	return n, nil
}

// Poll reads whatever bytes are currently available into buf. A return of
// (0, nil) means nothing has arrived yet; callers are expected to poll again.
func (c *Channel) Poll(buf []byte) (int, error) {
	return c.port.Read(buf)
}

// FlushInput discards any buffered but unread bytes on the port. Used to
// drop stray bytes arriving after a ready prompt, e.g. due to link noise.
func (c *Channel) FlushInput() error {
	if f, ok := c.port.(Flusher); ok {
		return f.ResetInputBuffer()
	}
	return nil
}

// FlushOutput discards any bytes queued for transmission but not yet sent.
func (c *Channel) FlushOutput() error {
	if f, ok := c.port.(Flusher); ok {
		return f.ResetOutputBuffer()
	}
	return nil
}

// Close closes the underlying port.
func (c *Channel) Close() error {
	return c.port.Close()
}
