// Package bridge relays diagnostic requests between a UDP client and the
// serial-attached interpreter. The bridge owns both sockets and advances
// them in lockstep: each inbound datagram opens exactly one query/reply
// cycle on the serial link before the next datagram is read.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/obd.bridge/internal/elm"
	"github.com/banshee-data/obd.bridge/internal/serialio"
	"github.com/banshee-data/obd.bridge/internal/tracelog"
)

// Store records the protocol transcript. Failures to record are logged but
// never fail a cycle; the transcript is an observer, not a participant.
type Store interface {
	RecordCommand(cycleID, command string) error
	RecordReply(cycleID, category, framed, relayed string) error
}

// CycleEvent describes one completed query/reply cycle, published to
// subscribers (the admin tail) after the reply has been handled.
type CycleEvent struct {
	ID       string `json:"id"`
	Command  string `json:"command"`
	Category string `json:"category"`
	Framed   string `json:"framed"`
	Relayed  string `json:"relayed"`
}

// Bridge relays commands from the UDP socket to the serial channel and
// reshaped replies back, one cycle at a time.
type Bridge struct {
	conn    *net.UDPConn
	channel *serialio.Channel
	framer  *elm.Framer
	store   Store
	trace   *tracelog.Logger

	maxCommandLen int

	subscriberMu sync.Mutex
	subscribers  map[string]chan CycleEvent
}

// New creates a Bridge over an already-bound UDP socket and an open serial
// channel. maxCommandLen bounds commands accepted from the client.
func New(conn *net.UDPConn, channel *serialio.Channel, framer *elm.Framer, store Store, trace *tracelog.Logger, maxCommandLen int) *Bridge {
	if maxCommandLen <= 0 {
		maxCommandLen = elm.DefaultMaxCommandLen
	}
	return &Bridge{
		conn:          conn,
		channel:       channel,
		framer:        framer,
		store:         store,
		trace:         trace,
		maxCommandLen: maxCommandLen,
		subscribers:   make(map[string]chan CycleEvent),
	}
}

// Subscribe creates a channel receiving cycle events. The returned ID
// identifies the channel when unsubscribing. Events are delivered
// best-effort: a slow subscriber misses events rather than stalling cycles.
func (b *Bridge) Subscribe() (string, chan CycleEvent) {
	id := uuid.NewString()
	ch := make(chan CycleEvent, 16)
	b.subscriberMu.Lock()
	defer b.subscriberMu.Unlock()
	b.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bridge) Unsubscribe(id string) {
	b.subscriberMu.Lock()
	defer b.subscriberMu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

func (b *Bridge) publish(ev CycleEvent) {
	b.subscriberMu.Lock()
	defer b.subscriberMu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Run serves cycles until the context is cancelled or a transport failure
// occurs. Transport failures (UDP receive/send, serial read/write) are
// unrecoverable for a single-purpose bridge and are returned to the caller;
// protocol-local failures are logged and the next cycle served.
func (b *Bridge) Run(ctx context.Context) error {
	// ReadFromUDP has no context support; closing the socket unblocks it.
	stop := context.AfterFunc(ctx, func() { b.conn.Close() })
	defer stop()

	// One extra byte so an oversized datagram is distinguishable from one
	// that exactly fills the bound.
	buf := make([]byte, b.maxCommandLen+1)

	for {
		n, client, err := b.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("udp receive: %w", err)
		}
		if err := b.cycle(ctx, string(buf[:n]), client); err != nil {
			return err
		}
	}
}

// cycle runs one full query/reply cycle. A nil return means the bridge can
// serve the next datagram; a non-nil return is transport-fatal.
func (b *Bridge) cycle(ctx context.Context, command string, client *net.UDPAddr) error {
	id := uuid.NewString()

	// Clients that build C-style strings pad the datagram with trailing
	// NULs; they are transport padding, not part of the command.
	command = strings.TrimRight(command, "\x00")

	if err := elm.ValidateCommand(command, b.maxCommandLen); err != nil {
		log.Printf("rejected command from %s: %v", client, err)
		b.trace.Entry("REJ [%s]: %v", id, err)
		return nil
	}

	// Drop any bytes still buffered from an earlier abandoned cycle; the
	// reply framed below must answer this cycle's command only.
	if err := b.channel.FlushInput(); err != nil {
		return fmt.Errorf("flush stale input: %w", err)
	}

	if _, err := b.channel.Send([]byte(command)); err != nil {
		return fmt.Errorf("serial send: %w", err)
	}
	if err := b.channel.FlushOutput(); err != nil {
		log.Printf("flush serial output: %v", err)
	}
	b.trace.Entry("TXD [%s]: %s", id, command)
	if err := b.store.RecordCommand(id, command); err != nil {
		log.Printf("record command: %v", err)
	}

	framed, err := b.framer.Frame(ctx)
	if err != nil {
		switch {
		case errors.Is(err, elm.ErrReplyTimeout), errors.Is(err, elm.ErrReplyTooLong):
			log.Printf("cycle %s abandoned: %v", id, err)
			b.trace.Entry("ERR [%s]: %v", id, err)
			// The abandoned reply stays buffered on the port; discard it
			// so it cannot answer the next cycle's command.
			if ferr := b.channel.FlushInput(); ferr != nil {
				return fmt.Errorf("flush abandoned reply: %w", ferr)
			}
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			return fmt.Errorf("serial receive: %w", err)
		}
	}

	category := elm.Classify(framed)
	var relayed string
	relay := false
	switch category {
	case elm.InterpreterStatus:
		relayed, relay = elm.StatusText(framed), true
	case elm.EcuData:
		relayed, relay = elm.DataPayload(framed)
		if !relay {
			log.Printf("cycle %s: ecu reply missing data segment: %q", id, framed)
			b.trace.Entry("ERR [%s]: reply missing data segment: %s", id, framed)
		}
	default:
		log.Printf("cycle %s: unrecognized reply: %q", id, framed)
		b.trace.Entry("ERR [%s]: unrecognized reply: %s", id, framed)
	}

	if relay {
		b.trace.Entry("RXD [%s]: %s", id, relayed)
		if _, err := b.conn.WriteToUDP([]byte(relayed), client); err != nil {
			return fmt.Errorf("udp send: %w", err)
		}
	}

	if err := b.store.RecordReply(id, category.String(), framed, relayed); err != nil {
		log.Printf("record reply: %v", err)
	}

	b.publish(CycleEvent{
		ID:       id,
		Command:  command,
		Category: category.String(),
		Framed:   framed,
		Relayed:  relayed,
	})
	return nil
}

// Close closes all subscriber channels. The UDP socket and serial channel
// are owned by the caller and closed there.
func (b *Bridge) Close() {
	b.subscriberMu.Lock()
	defer b.subscriberMu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
