package serialio

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// fakePort implements Porter, Flusher and TimeoutPorter with configurable
// behaviour for exercising the Channel.
type fakePort struct {
	readData     []byte
	written      bytes.Buffer
	writeErr     error
	shortWrite   bool
	closed       bool
	inputFlushes int
	outputFlush  int
	readTimeout  time.Duration
}

func (p *fakePort) Read(buf []byte) (int, error) {
	if len(p.readData) == 0 {
		return 0, nil
	}
	n := copy(buf, p.readData)
	p.readData = p.readData[n:]
	return n, nil
}

func (p *fakePort) Write(buf []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	if p.shortWrite && len(buf) > 1 {
		p.written.Write(buf[:1])
		return 1, nil
	}
	return p.written.Write(buf)
}

func (p *fakePort) Close() error                                 { p.closed = true; return nil }
func (p *fakePort) ResetInputBuffer() error                      { p.inputFlushes++; return nil }
func (p *fakePort) ResetOutputBuffer() error                     { p.outputFlush++; return nil }
func (p *fakePort) SetReadTimeout(timeout time.Duration) error   { p.readTimeout = timeout; return nil }

func TestNewChannel_SetsReadTimeout(t *testing.T) {
	port := &fakePort{}
	if _, err := NewChannel(port); err != nil {
		t.Fatalf("NewChannel returned error: %v", err)
	}
	if port.readTimeout != DefaultPollTimeout {
		t.Errorf("Expected read timeout %v, got %v", DefaultPollTimeout, port.readTimeout)
	}
}

func TestChannel_Send(t *testing.T) {
	port := &fakePort{}
	c, err := NewChannel(port)
	if err != nil {
		t.Fatalf("NewChannel returned error: %v", err)
	}

	n, err := c.Send([]byte("ATZ\r"))
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 bytes sent, got %d", n)
	}
	if port.written.String() != "ATZ\r" {
		t.Errorf("Expected %q on the wire, got %q", "ATZ\r", port.written.String())
	}
}

func TestChannel_SendShortWrite(t *testing.T) {
	port := &fakePort{shortWrite: true}
	c, _ := NewChannel(port)

	_, err := c.Send([]byte("ATZ\r"))
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("Expected ErrWriteFailed, got %v", err)
	}
}

func TestChannel_SendWriteError(t *testing.T) {
	wantErr := errors.New("port unplugged")
	port := &fakePort{writeErr: wantErr}
	c, _ := NewChannel(port)

	_, err := c.Send([]byte("ATZ\r"))
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected write error, got %v", err)
	}
}

func TestChannel_Poll(t *testing.T) {
	port := &fakePort{readData: []byte("41 0C>")}
	c, _ := NewChannel(port)

	buf := make([]byte, 4)
	n, err := c.Poll(buf)
	if err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if string(buf[:n]) != "41 0" {
		t.Errorf("Expected %q, got %q", "41 0", string(buf[:n]))
	}

	// Drain the rest, then confirm the empty-port contract.
	n, _ = c.Poll(buf)
	if string(buf[:n]) != "C>" {
		t.Errorf("Expected %q, got %q", "C>", string(buf[:n]))
	}
	n, err = c.Poll(buf)
	if n != 0 || err != nil {
		t.Errorf("Expected (0, nil) on empty port, got (%d, %v)", n, err)
	}
}

func TestChannel_Flush(t *testing.T) {
	port := &fakePort{}
	c, _ := NewChannel(port)

	if err := c.FlushInput(); err != nil {
		t.Fatalf("FlushInput returned error: %v", err)
	}
	if err := c.FlushOutput(); err != nil {
		t.Fatalf("FlushOutput returned error: %v", err)
	}
	if port.inputFlushes != 1 || port.outputFlush != 1 {
		t.Errorf("Expected one flush each way, got in=%d out=%d", port.inputFlushes, port.outputFlush)
	}
}

func TestChannel_Close(t *testing.T) {
	port := &fakePort{}
	c, _ := NewChannel(port)
	if err := c.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !port.closed {
		t.Error("Expected underlying port to be closed")
	}
}

func TestChannel_FlushIsNoOpWithoutFlusher(t *testing.T) {
	// A port without flush support still satisfies the Channel contract.
	type bare struct {
		Porter
	}
	port := &fakePort{}
	c, err := NewChannel(bare{port})
	if err != nil {
		t.Fatalf("NewChannel returned error: %v", err)
	}
	if err := c.FlushInput(); err != nil {
		t.Fatalf("FlushInput on bare port returned error: %v", err)
	}
	if err := c.FlushOutput(); err != nil {
		t.Fatalf("FlushOutput on bare port returned error: %v", err)
	}
	if port.inputFlushes != 0 {
		t.Error("Flush should not reach a port hidden behind the bare Porter interface")
	}
}
