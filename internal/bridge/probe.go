package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/banshee-data/obd.bridge/internal/elm"
)

// probeCommands is the interface identification sequence run at startup:
// reset the interpreter, read its identity and the bus protocol, then walk
// the standard vehicle identification and fault queries.
var probeCommands = []string{
	"ATZ\r",   // reset the interpreter
	"ATRV\r",  // battery voltage at the OBD port
	"ATDP\r",  // bus protocol in use
	"ATI\r",   // interpreter version ID
	"09 02\r", // vehicle identification number
	"09 0A\r", // ECU name
	"01 01\r", // DTC count and MIL status
	"01 00\r", // supported PIDs 1-32, mode 01
	"09 00\r", // supported PIDs 1-32, mode 09
	"03\r",    // stored trouble codes
}

// Probe checks the interpreter link before serving clients. Each probe reply
// is logged and recorded in the transcript. A reply timeout fails the probe:
// an interpreter that cannot answer ATZ will not answer clients either.
func (b *Bridge) Probe(ctx context.Context) error {
	for _, command := range probeCommands {
		id := uuid.NewString()

		// Drop anything buffered before the command goes out, e.g. an
		// interpreter boot banner.
		if err := b.channel.FlushInput(); err != nil {
			return fmt.Errorf("probe flush before %q: %w", command, err)
		}

		if _, err := b.channel.Send([]byte(command)); err != nil {
			return fmt.Errorf("probe send %q: %w", command, err)
		}
		b.trace.Entry("TXD [%s]: %s", id, command)
		if err := b.store.RecordCommand(id, command); err != nil {
			log.Printf("record probe command: %v", err)
		}

		framed, err := b.framer.Frame(ctx)
		if err != nil {
			if errors.Is(err, elm.ErrReplyTimeout) {
				return fmt.Errorf("probe %q: interpreter did not answer: %w", command, err)
			}
			return fmt.Errorf("probe %q: %w", command, err)
		}

		category := elm.Classify(framed)
		log.Printf("probe %q -> %s: %s", command, category, framed)
		b.trace.Entry("RXD [%s]: %s", id, framed)
		if err := b.store.RecordReply(id, category.String(), framed, ""); err != nil {
			log.Printf("record probe reply: %v", err)
		}
	}
	return nil
}
