package oob

import (
	"strconv"
	"strings"

	"github.com/crystal-mush/gomaze/pkg/events"
)

// EncodeMSDP encodes variables as an MSDP subnegotiation.
func EncodeMSDP(pairs map[string]string) []byte {
	return encodeVars(TeloptMSDP, pairs)
}

// EncodeMSDPEvent converts an event to MSDP key-value pairs and encodes them.
// Returns nil if no MSDP mapping exists for this event type.
func EncodeMSDPEvent(ev events.Event) []byte {
	pairs := make(map[string]string)

	switch ev.Type {
	case events.EvMove:
		pairs["ROOM"] = strconv.Itoa(ev.Room)
		if exits, ok := ev.Data["exits"].([]string); ok {
			pairs["ROOM_EXITS"] = strings.Join(exits, " ")
		}
		if area, ok := ev.Data["area"].(string); ok {
			pairs["AREA_NAME"] = area
		}
	case events.EvConnect:
		if ev.Source != "" {
			pairs["CHARACTER_NAME"] = ev.Source
		}
	default:
		return nil
	}

	if len(pairs) == 0 {
		return nil
	}
	return EncodeMSDP(pairs)
}

// ParseMSDP reads the flat VAR/VAL pairs of an MSDP subnegotiation body,
// the bytes between SB 69 and IAC SE. Tables and arrays are not expanded.
func ParseMSDP(data []byte) map[string]string {
	result := make(map[string]string)
	var key, val strings.Builder
	var cur *strings.Builder
	flush := func() {
		if cur == &val && key.Len() > 0 {
			result[key.String()] = val.String()
		}
		key.Reset()
		val.Reset()
	}
	for _, b := range data {
		switch b {
		case MSDPVar:
			flush()
			cur = &key
		case MSDPVal:
			cur = &val
		default:
			if cur != nil {
				cur.WriteByte(b)
			}
		}
	}
	flush()
	return result
}
