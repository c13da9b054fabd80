package oob

import (
	"bytes"
	"encoding/json"

	"github.com/crystal-mush/gomaze/pkg/events"
)

// GMCPPackage maps event types to GMCP package names.
func GMCPPackage(evType events.EventType) string {
	switch evType {
	case events.EvShout:
		return "Comm.Shout"
	case events.EvMove:
		return "Room.Info"
	case events.EvItem:
		return "Char.Items.Update"
	case events.EvConnect:
		return "Char.Login"
	case events.EvDisconnect:
		return "Char.Logout"
	case events.EvWho:
		return "Char.Group"
	default:
		return ""
	}
}

// EncodeGMCP encodes an event as IAC SB 201 <package> <json> IAC SE.
// Events without a package or without structured data encode to nil.
func EncodeGMCP(ev events.Event) []byte {
	pkg := GMCPPackage(ev.Type)
	if pkg == "" || ev.Data == nil {
		return nil
	}
	return EncodeGMCPMessage(pkg, ev.Data)
}

// EncodeGMCPMessage frames a single GMCP message. A nil data sends the bare
// package name, as Core.Ping does.
func EncodeGMCPMessage(pkg string, data any) []byte {
	buf := []byte{IAC, SB, TeloptGMCP}
	buf = append(buf, pkg...)
	if data != nil {
		js, err := json.Marshal(data)
		if err != nil {
			return nil
		}
		buf = append(buf, ' ')
		buf = append(buf, js...)
	}
	return append(buf, IAC, SE)
}

// RoomInfo is the Room.Info payload shared by GMCP and WebSocket clients.
func RoomInfo(num int, area string, exits []string) map[string]any {
	return map[string]any{
		"num":   num,
		"area":  area,
		"exits": exits,
	}
}

// ParseGMCPMessage splits a client GMCP body (the bytes between SB 201 and
// IAC SE) into its package name and JSON data.
func ParseGMCPMessage(data []byte) (pkg string, jsonData []byte) {
	name, js, found := bytes.Cut(data, []byte{' '})
	if !found {
		return string(data), nil
	}
	return string(name), js
}

// ExtractSubnegotiations removes every complete IAC SB ... IAC SE sequence
// from s. Each returned body starts with the option byte.
func ExtractSubnegotiations(s string) (string, [][]byte) {
	var bodies [][]byte
	var out []byte
	for i := 0; i < len(s); {
		if i+1 < len(s) && s[i] == IAC && s[i+1] == SB {
			if end := bytes.Index([]byte(s[i+2:]), []byte{IAC, SE}); end >= 0 {
				bodies = append(bodies, []byte(s[i+2:i+2+end]))
				i += 2 + end + 2
				continue
			}
		}
		out = append(out, s[i])
		i++
	}
	if bodies == nil {
		return s, nil
	}
	return string(out), bodies
}
