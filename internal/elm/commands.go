package elm

// KnownCommand describes an interpreter AT command or OBD-II request the
// bridge documents on its admin surface. The bridge forwards any command the
// client sends; this table exists for the startup probe and for operators
// exploring the protocol, not for enforcement.
type KnownCommand struct {
	Code    string `json:"code"`
	Summary string `json:"summary"`
}

var KnownCommands = []KnownCommand{
	// Interpreter control (AT commands)
	{"ATZ", "Reset the interpreter"},
	{"ATI", "Read interpreter version ID"},
	{"ATE0", "Disable command echo"},
	{"ATE1", "Enable command echo"},
	{"ATL0", "Disable linefeeds after carriage return"},
	{"ATL1", "Enable linefeeds after carriage return"},
	{"ATH0", "Disable display of message headers"},
	{"ATH1", "Enable display of message headers"},
	{"ATS0", "Disable spaces in hex output"},
	{"ATS1", "Enable spaces in hex output"},
	{"ATRV", "Read battery voltage at the OBD port"},
	{"ATDP", "Describe the current bus protocol"},
	{"ATDPN", "Describe the current bus protocol as a number"},
	{"ATSP0", "Set protocol to automatic detection"},
	{"ATPC", "Close the current protocol (stop the bus)"},
	{"ATWS", "Warm start (reset without power cycle)"},

	// Mode 01: current powertrain data
	{"01 00", "Supported PIDs 01-20"},
	{"01 01", "DTC count and MIL status"},
	{"01 03", "Fuel system status"},
	{"01 04", "Calculated engine load"},
	{"01 05", "Engine coolant temperature"},
	{"01 0A", "Fuel pressure"},
	{"01 0B", "Intake manifold absolute pressure"},
	{"01 0C", "Engine RPM"},
	{"01 0D", "Vehicle speed"},
	{"01 0E", "Timing advance"},
	{"01 0F", "Intake air temperature"},
	{"01 10", "MAF air flow rate"},
	{"01 11", "Throttle position"},
	{"01 1C", "OBD standard the vehicle conforms to"},
	{"01 20", "Supported PIDs 21-40"},

	// Mode 03/04/07: fault codes
	{"03", "Read stored diagnostic trouble codes"},
	{"04", "Clear trouble codes and reset the MIL"},
	{"07", "Read pending diagnostic trouble codes"},

	// Mode 09: vehicle information
	{"09 00", "Supported PIDs for mode 09"},
	{"09 02", "Vehicle identification number"},
	{"09 04", "Calibration ID"},
	{"09 0A", "ECU name"},
}
