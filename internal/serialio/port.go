// Package serialio provides the byte-oriented serial transport used to talk
// to the ELM327-style interpreter: a minimal port abstraction, connection
// options, and a Channel with the send/poll/flush contract the reply framer
// builds on.
package serialio

import (
	"io"
	"time"
)

// Porter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// Flusher is an optional interface for ports that can discard buffered
// input or output. go.bug.st/serial ports implement it.
type Flusher interface {
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// TimeoutPorter extends Porter with read timeout capabilities.
// Ports that implement it are polled non-destructively: a Read that hits
// the timeout returns zero bytes instead of blocking forever.
type TimeoutPorter interface {
	Porter
	SetReadTimeout(timeout time.Duration) error
}
