package serialio

import (
	"bytes"
	"errors"
	"strings"
	"sync"
)

// InterpreterPort emulates an ELM327-style interpreter for dev mode and
// tests. Each carriage-return terminated command written to the port is
// echoed back, followed by a scripted answer and the ready prompt, matching
// the interpreter's half-duplex conventions. Commands without a script entry
// receive the interpreter's standard "?" answer.
type InterpreterPort struct {
	mu      sync.Mutex
	scripts map[string]string
	pending bytes.Buffer
	written bytes.Buffer
	partial bytes.Buffer

	closed   bool
	writeErr error
	readErr  error
}

// NewInterpreterPort creates an emulated interpreter that answers commands
// from the given script table. Keys are commands without the trailing
// carriage return; values are the answer payload (empty for commands the
// interpreter acknowledges with a bare prompt).
func NewInterpreterPort(scripts map[string]string) *InterpreterPort {
	return &InterpreterPort{scripts: scripts}
}

// DefaultScripts returns a plausible script table for a warmed-up
// interpreter attached to a vehicle, used by dev mode.
func DefaultScripts() map[string]string {
	return map[string]string{
		"ATZ":   "",
		"ATI":   "ELM327 v1.5",
		"ATRV":  "12.6V",
		"ATDP":  "AUTO, ISO 15765-4 (CAN 11/500)",
		"01 00": "41 00 BE 3E B8 11",
		"01 01": "41 01 00 07 E5 00",
		"01 05": "41 05 5A",
		"01 0C": "41 0C 0F A0",
		"01 0D": "41 0D 37",
		"03":    "43 01 33 00 00 00 00",
		"09 00": "49 00 55 40 00 00",
		"09 02": "49 02 01 31 47 31 4A 43 35 34 34 34",
		"09 0A": "49 0A 45 43 4D",
	}
}

// Read returns queued reply bytes, or (0, nil) when the interpreter has
// nothing to say yet. This mirrors the poll semantics of a real port with a
// read timeout configured.
func (p *InterpreterPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return 0, p.readErr
	}
	if p.closed {
		return 0, errors.New("serial port closed")
	}
	if p.pending.Len() == 0 {
		return 0, nil
	}
	return p.pending.Read(buf)
}

// Write accepts command bytes. Once a carriage return arrives the accumulated
// command is answered: echo, answer payload if scripted, then the prompt.
func (p *InterpreterPort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	if p.closed {
		return 0, errors.New("serial port closed")
	}
	p.written.Write(buf)

	for _, b := range buf {
		if b != '\r' {
			p.partial.WriteByte(b)
			continue
		}
		command := strings.TrimRight(p.partial.String(), "\x00")
		p.partial.Reset()

		answer, ok := p.scripts[command]
		if !ok {
			answer = "?"
		}

		// Echo first, then the answer on its own line, then the prompt.
		p.pending.WriteString(command)
		p.pending.WriteByte('\r')
		if answer != "" {
			p.pending.WriteString(answer)
			p.pending.WriteByte('\r')
		}
		p.pending.WriteString("\r>")
	}
	return len(buf), nil
}

// Close marks the port as closed.
func (p *InterpreterPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// ResetInputBuffer discards any reply bytes not yet read.
func (p *InterpreterPort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending.Reset()
	return nil
}

// ResetOutputBuffer is a no-op: writes are consumed immediately.
func (p *InterpreterPort) ResetOutputBuffer() error {
	return nil
}

// Inject queues raw bytes as if the interpreter had emitted them
// unprompted, e.g. to simulate link noise in tests.
func (p *InterpreterPort) Inject(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending.Write(data)
}

// SetWriteError arranges for subsequent writes to fail.
func (p *InterpreterPort) SetWriteError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// SetReadError arranges for subsequent reads to fail.
func (p *InterpreterPort) SetReadError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

// WrittenData returns everything written to the port so far.
func (p *InterpreterPort) WrittenData() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}
