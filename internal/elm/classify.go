package elm

// Category describes how a framed reply must be reshaped before relay.
type Category int

const (
	// Unrecognized replies are logged and never relayed.
	Unrecognized Category = iota

	// InterpreterStatus replies come from the interpreter itself (AT
	// command answers). They are relayed whole with delimiters softened
	// to spaces.
	InterpreterStatus

	// EcuData replies carry an answer from the vehicle ECU prefixed by the
	// echoed request. Only the portion after the echo is relayed.
	EcuData
)

func (c Category) String() string {
	switch c {
	case InterpreterStatus:
		return "interpreter_status"
	case EcuData:
		return "ecu_data"
	default:
		return "unrecognized"
	}
}

// Classify tags a framed reply by its leading character: the interpreter
// echoes AT commands back (so status replies start with 'A' or 'a') and OBD
// requests are hex mode bytes (so data replies start with a digit). The
// first character is the only discriminator the protocol offers; trailing
// bytes never change the category.
func Classify(reply string) Category {
	if reply == "" {
		return Unrecognized
	}
	switch c := reply[0]; {
	case c == 'A' || c == 'a':
		return InterpreterStatus
	case c >= '0' && c <= '9':
		return EcuData
	default:
		return Unrecognized
	}
}
