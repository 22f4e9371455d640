package serialio

import (
	"go.bug.st/serial"
)

// OpenPort opens a real serial port at the given path using the provided
// connection options.
func OpenPort(path string, opts PortOptions) (Porter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return port, nil
}
