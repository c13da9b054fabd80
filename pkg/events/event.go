package events

import "strings"

// EventType classifies events for transport-specific encoding.
type EventType int

const (
	EvText       EventType = iota // Room output addressed to one player
	EvShout                       // Server-wide broadcast
	EvMove                        // Player changed room
	EvConnect                     // Player connected
	EvDisconnect                  // Player disconnected
	EvWho                         // WHO listing
	EvItem                        // Item changed location
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EvText:
		return "text"
	case EvShout:
		return "shout"
	case EvMove:
		return "move"
	case EvConnect:
		return "connect"
	case EvDisconnect:
		return "disconnect"
	case EvWho:
		return "who"
	case EvItem:
		return "item"
	default:
		return "unknown"
	}
}

// Event is a structured maze event that flows through the event bus.
// The TCP front end writes Lines; WebSocket clients also get Data.
type Event struct {
	Type   EventType
	Player string         // Recipient session ID ("" for server-wide)
	Source string         // Display name of whoever caused the event
	Room   int            // Room context
	Lines  []string       // Pre-formatted output lines
	Data   map[string]any // Structured data for JSON clients
}

// Text joins the event lines with newlines.
func (e Event) Text() string {
	return strings.Join(e.Lines, "\n")
}
