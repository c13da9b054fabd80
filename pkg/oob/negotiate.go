package oob

import (
	"errors"
	"io"
	"log"
	"net"
	"time"
)

var offered = []byte{TeloptGMCP, TeloptMSDP, TeloptMSSP}

// Negotiate offers GMCP, MSDP and MSSP to a telnet client and collects its
// answers until every offer is answered or timeout passes. Bytes that are
// not part of an answer (a client typing ahead) are returned as rest so the
// caller can feed them to its line reader.
func Negotiate(conn net.Conn, timeout time.Duration) (caps *Capabilities, rest []byte) {
	caps = NewCapabilities()

	offer := make([]byte, 0, 3*len(offered))
	for _, opt := range offered {
		offer = append(offer, IAC, WILL, opt)
	}
	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write(offer); err != nil {
		conn.SetWriteDeadline(time.Time{})
		return caps, nil
	}

	answered := make(map[byte]bool, len(offered))
	conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, 256)
	var pending []byte
	for len(answered) < len(offered) {
		n, err := conn.Read(buf)
		pending = append(pending, buf[:n]...)
		pending, rest = scanReplies(caps, answered, pending, rest)
		if err != nil {
			var netErr net.Error
			if !(errors.As(err, &netErr) && netErr.Timeout()) && err != io.EOF {
				log.Printf("oob: negotiate read error: %v", err)
			}
			break
		}
	}
	rest = append(rest, pending...)

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})
	return caps, rest
}

// scanReplies consumes complete DO/DONT answers from data. Anything else is
// appended to rest. A trailing partial IAC sequence is returned as pending.
func scanReplies(caps *Capabilities, answered map[byte]bool, data, rest []byte) (pending, out []byte) {
	i := 0
	for i < len(data) {
		if data[i] != IAC {
			rest = append(rest, data[i])
			i++
			continue
		}
		if len(data)-i < 3 {
			break
		}
		cmd, opt := data[i+1], data[i+2]
		if cmd == DO || cmd == DONT {
			answered[opt] = true
			caps.set(opt, cmd == DO)
		}
		i += 3
	}
	return append([]byte(nil), data[i:]...), rest
}

func (c *Capabilities) set(opt byte, on bool) {
	var name string
	switch opt {
	case TeloptGMCP:
		c.GMCP, name = on, "GMCP"
	case TeloptMSDP:
		c.MSDP, name = on, "MSDP"
	case TeloptMSSP:
		c.MSSP, name = on, "MSSP"
	default:
		return
	}
	if on {
		log.Printf("oob: client accepted %s", name)
	} else {
		log.Printf("oob: client declined %s", name)
	}
}
