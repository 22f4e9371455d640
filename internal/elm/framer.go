// Package elm implements the message-level conventions of ELM327-style
// interpreters: framing the raw serial byte stream into discrete replies,
// classifying replies by their leading character, and reshaping them for
// relay to the diagnostic client.
package elm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// ReadyPrompt is emitted by the interpreter when it can accept the next
	// command. It is the only termination condition for a reply.
	ReadyPrompt = '>'

	// SentinelDelimiter replaces the carriage-return message delimiter in a
	// framed reply, separating the echoed command from the answer segments.
	SentinelDelimiter = '!'

	carriageReturn = '\r'
)

const (
	// DefaultMaxReplyLen bounds the accumulated reply for one cycle.
	DefaultMaxReplyLen = 4096

	// DefaultReplyDeadline bounds how long one Frame call waits for the
	// ready prompt before giving up on the cycle.
	DefaultReplyDeadline = 5 * time.Second

	defaultPollInterval = 2 * time.Millisecond
	pollChunkLen        = 256
)

var (
	// ErrReplyTooLong reports a reply exceeding the configured capacity. The
	// cycle is abandoned rather than truncated.
	ErrReplyTooLong = errors.New("reply exceeds buffer capacity")

	// ErrReplyTimeout reports that the ready prompt never arrived before the
	// deadline. A zero-byte poll is never an error on its own; only deadline
	// expiry fails the cycle.
	ErrReplyTimeout = errors.New("ready prompt not received before deadline")
)

// Poller is the serial-side surface the framer consumes: poll for available
// bytes and discard residual input once a reply is complete.
type Poller interface {
	Poll(buf []byte) (int, error)
	FlushInput() error
}

// FramerOptions tune a Framer. Zero values select the defaults above.
type FramerOptions struct {
	MaxReplyLen  int
	Deadline     time.Duration
	PollInterval time.Duration
}

// Framer assembles polled byte chunks into exactly one framed reply per
// Frame call. The interpreter multiplexes framing metadata and payload on
// the same stream with no length prefix or checksum, so framing is a
// byte-by-byte translation: carriage returns become the sentinel delimiter,
// other control bytes are dropped, and the ready prompt terminates.
type Framer struct {
	poller       Poller
	out          []byte
	chunk        []byte
	maxReplyLen  int
	deadline     time.Duration
	pollInterval time.Duration
}

// NewFramer creates a Framer reading from the given poller.
func NewFramer(poller Poller, opts FramerOptions) *Framer {
	if opts.MaxReplyLen <= 0 {
		opts.MaxReplyLen = DefaultMaxReplyLen
	}
	if opts.Deadline <= 0 {
		opts.Deadline = DefaultReplyDeadline
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Framer{
		poller:       poller,
		out:          make([]byte, 0, opts.MaxReplyLen),
		chunk:        make([]byte, pollChunkLen),
		maxReplyLen:  opts.MaxReplyLen,
		deadline:     opts.Deadline,
		pollInterval: opts.PollInterval,
	}
}

// Frame polls the serial side until a complete reply terminated by the ready
// prompt has been assembled, then flushes any residual input and returns the
// reply. Partial data is never returned: on deadline expiry or overflow the
// accumulated bytes are discarded along with the cycle.
func (f *Framer) Frame(ctx context.Context) (string, error) {
	f.out = f.out[:0]
	expiry := time.Now().Add(f.deadline)

	ready := false
	for !ready {
		if time.Now().After(expiry) {
			return "", ErrReplyTimeout
		}

		n, err := f.poller.Poll(f.chunk)
		if err != nil {
			return "", fmt.Errorf("poll serial: %w", err)
		}
		if n == 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(f.pollInterval):
			}
			continue
		}

		for _, b := range f.chunk[:n] {
			switch {
			case b == carriageReturn:
				if err := f.append(SentinelDelimiter); err != nil {
					return "", err
				}
			case b < 32:
				// Unreadable control codes carry no payload.
			case b == ReadyPrompt:
				if err := f.append(b); err != nil {
					return "", err
				}
				ready = true
			default:
				if err := f.append(b); err != nil {
					return "", err
				}
			}
			if ready {
				// Anything after the prompt in this chunk is link noise.
				break
			}
		}
	}

	if err := f.poller.FlushInput(); err != nil {
		return "", fmt.Errorf("flush residual input: %w", err)
	}
	return string(f.out), nil
}

func (f *Framer) append(b byte) error {
	if len(f.out) >= f.maxReplyLen {
		return ErrReplyTooLong
	}
	f.out = append(f.out, b)
	return nil
}
