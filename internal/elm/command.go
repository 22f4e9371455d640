package elm

import (
	"errors"
	"fmt"
)

// DefaultMaxCommandLen bounds a single command accepted from the client.
const DefaultMaxCommandLen = 256

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrCommandTooLong = errors.New("command exceeds maximum length")
)

// ValidateCommand checks that a command is safe to put on the serial link:
// non-empty, within the configured length bound, and free of NUL bytes
// (which the interpreter would treat as line termination garbage). No
// protocol-level validation is performed; the interpreter answers bad
// commands itself.
func ValidateCommand(command string, maxLen int) error {
	if maxLen <= 0 {
		maxLen = DefaultMaxCommandLen
	}
	if len(command) == 0 {
		return ErrEmptyCommand
	}
	if len(command) > maxLen {
		return fmt.Errorf("%w: %d > %d", ErrCommandTooLong, len(command), maxLen)
	}
	for i := 0; i < len(command); i++ {
		if command[i] == 0 {
			return fmt.Errorf("command contains NUL byte at offset %d", i)
		}
	}
	return nil
}
