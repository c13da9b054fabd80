package oob

import "sort"

// EncodeMSSP builds the MSSP status block sent to MUD crawlers.
func EncodeMSSP(status map[string]string) []byte {
	return encodeVars(TeloptMSSP, status)
}

// encodeVars writes IAC SB opt, then VAR key VAL value for each pair in key
// order, then IAC SE.
func encodeVars(opt byte, pairs map[string]string) []byte {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte{IAC, SB, opt}
	for _, k := range keys {
		buf = append(buf, MSDPVar)
		buf = append(buf, k...)
		buf = append(buf, MSDPVal)
		buf = append(buf, pairs[k]...)
	}
	return append(buf, IAC, SE)
}
