// Package oob implements out-of-band protocol support for MUD clients.
// It supports GMCP (Generic MUD Communication Protocol), MSDP (MUD Server
// Data Protocol) and MSSP (MUD Server Status Protocol) for sending
// structured data alongside normal text output.
package oob

// Capabilities tracks which OOB protocols a connection has negotiated.
type Capabilities struct {
	GMCP bool // GMCP (telopt 201) negotiated
	MSDP bool // MSDP (telopt 69) negotiated
	MSSP bool // MSSP (telopt 70) negotiated
}

// NewCapabilities returns a zero-value Capabilities (nothing negotiated).
func NewCapabilities() *Capabilities {
	return &Capabilities{}
}

// HasAny returns true if any OOB protocol is negotiated.
func (c *Capabilities) HasAny() bool {
	return c != nil && (c.GMCP || c.MSDP || c.MSSP)
}

// Telnet bytes used during negotiation and subnegotiation.
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WILL byte = 251
	SB   byte = 250
	SE   byte = 240

	TeloptGMCP byte = 201
	TeloptMSDP byte = 69
	TeloptMSSP byte = 70
)

// MSDP and MSSP share the variable/value markers.
const (
	MSDPVar byte = 1
	MSDPVal byte = 2
)
