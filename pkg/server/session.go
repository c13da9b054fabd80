package server

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/crystal-mush/gomaze/pkg/events"
	"github.com/crystal-mush/gomaze/pkg/oob"
	"github.com/crystal-mush/gomaze/pkg/room"
	"github.com/google/uuid"
)

// TransportType identifies the kind of transport a Session uses.
type TransportType int

const (
	TransportTCP       TransportType = iota // Line-oriented TCP
	TransportWebSocket                      // WebSocket (JSON events)
)

func (t TransportType) String() string {
	if t == TransportWebSocket {
		return "websocket"
	}
	return "tcp"
}

// Session represents a single client connection.
// It implements events.Subscriber so it can receive events from the bus.
type Session struct {
	ID        string // uuid, doubles as the room.Player ID
	Seq       int    // short number for log lines
	Conn      net.Conn
	Reader    *bufio.Reader
	Player    *room.Player // nil until the player has joined the maze
	Addr      string
	ConnTime  time.Time
	BytesSent int
	Transport TransportType
	OOB       *oob.Capabilities // telnet out-of-band protocols the client accepted

	// SendFunc overrides the default Send behavior (used by WebSocket transport).
	SendFunc func(msg string)
	// ReceiveFunc overrides the default event→text→Send path.
	ReceiveFunc func(ev events.Event)

	mu      sync.Mutex // guards writes, closed, lastCmd and BytesSent
	closed  bool
	lastCmd time.Time
}

// NewSession wraps a net.Conn into a Session.
func NewSession(seq int, conn net.Conn) *Session {
	now := time.Now()
	return &Session{
		ID:       newSessionID(),
		Seq:      seq,
		Conn:     conn,
		Reader:   bufio.NewReaderSize(conn, 4096),
		Addr:     conn.RemoteAddr().String(),
		ConnTime: now,
		lastCmd:  now,
	}
}

// Send writes a string to the client connection.
func (s *Session) Send(msg string) {
	if s.SendFunc != nil {
		s.SendFunc(msg)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.Conn == nil {
		return
	}
	msg = strings.ReplaceAll(msg, "\n", "\r\n")
	if !strings.HasSuffix(msg, "\n") {
		msg += "\r\n"
	}
	s.Conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	n, _ := s.Conn.Write([]byte(msg))
	s.BytesSent += n
}

// SendRaw writes bytes to the connection untouched. Used for telnet
// subnegotiations, which must not get line endings.
func (s *Session) SendRaw(b []byte) {
	if len(b) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.Conn == nil {
		return
	}
	s.Conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	n, _ := s.Conn.Write(b)
	s.BytesSent += n
}

// Close shuts down the connection.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		if s.Conn != nil {
			s.Conn.Close()
		}
	}
}

// IsClosed returns whether the connection has been closed.
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Touch records that the client just sent a command.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastCmd = time.Now()
	s.mu.Unlock()
}

// Idle is the time since the last command, or since connecting.
func (s *Session) Idle() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastCmd)
}

// Name returns the player name, or the address before login.
func (s *Session) Name() string {
	if s.Player != nil {
		return s.Player.Name
	}
	return s.Addr
}

// Receive implements events.Subscriber.
func (s *Session) Receive(ev events.Event) {
	if s.ReceiveFunc != nil {
		s.ReceiveFunc(ev)
		return
	}
	if s.OOB != nil {
		if s.OOB.GMCP {
			s.SendRaw(oob.EncodeGMCP(ev))
		} else if s.OOB.MSDP {
			s.SendRaw(oob.EncodeMSDPEvent(ev))
		}
	}
	for _, line := range ev.Lines {
		s.Send(line)
	}
}

// Closed implements events.Subscriber.
func (s *Session) Closed() bool {
	return s.IsClosed()
}

// Compile-time check that Session implements events.Subscriber.
var _ events.Subscriber = (*Session)(nil)

// FormatIdleTime formats a duration as a human-readable idle time.
func FormatIdleTime(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	if secs < 3600 {
		return fmt.Sprintf("%dm", secs/60)
	}
	if secs < 86400 {
		return fmt.Sprintf("%dh", secs/3600)
	}
	return fmt.Sprintf("%dd", secs/86400)
}

// FormatConnTime formats a duration as connection time.
func FormatConnTime(d time.Duration) string {
	secs := int(d.Seconds())
	hours := secs / 3600
	mins := (secs % 3600) / 60
	return fmt.Sprintf("%02d:%02d", hours, mins)
}

func newSessionID() string { return uuid.NewString() }
