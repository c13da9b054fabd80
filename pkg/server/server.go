package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/crystal-mush/gomaze/pkg/oob"
)

// Config holds the TCP front end configuration.
type Config struct {
	Name        string
	Host        string
	Port        int
	IdleTimeout time.Duration
	OOBTimeout  time.Duration // 0 skips GMCP/MSDP/MSSP negotiation
	WelcomeText string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name:        "gomaze",
		Port:        6250,
		IdleTimeout: 3600 * time.Second,
		OOBTimeout:  time.Second,
		WelcomeText: WelcomeText,
	}
}

// maxLineLength bounds one client command on every transport.
const maxLineLength = 8192

// WelcomeText is shown to every new TCP connection.
const WelcomeText = "Welcome to the maze.\nCommands: connect <name>, WHO, QUIT"

// Server is the line-oriented TCP front end of a Hub.
type Server struct {
	Config Config
	Hub    *Hub

	mu        sync.Mutex
	listener  net.Listener
	webServer *WebServer
	conns     sync.WaitGroup
	started   time.Time
}

// NewServer creates a new server instance.
func NewServer(hub *Hub, cfg Config) *Server {
	return &Server{Config: cfg, Hub: hub, started: time.Now()}
}

// SetWebServer attaches a web front end that Start and Stop manage alongside
// the TCP listener.
func (s *Server) SetWebServer(ws *WebServer) { s.webServer = ws }

// Listen opens the TCP listener without accepting yet.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port))
	if err != nil {
		return fmt.Errorf("tcp listener: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	log.Printf("Listening on %s", ln.Addr())
	return nil
}

// Addr returns the listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start listens (if not already listening) and serves until ctx is cancelled
// or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	if s.webServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.webServer.Start(); err != nil {
				errCh <- fmt.Errorf("web server: %w", err)
			}
		}()
	}

	go func() {
		sweep := time.NewTicker(time.Minute)
		defer sweep.Stop()
		for {
			select {
			case <-ctx.Done():
				s.Stop()
				return
			case <-sweep.C:
				s.Hub.Bus().Cleanup()
			}
		}
	}()

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	s.acceptLoop(ctx, ln)

	wg.Wait()
	s.conns.Wait()
	select {
	case err := <-errCh:
		return err
	default:
	}
	return nil
}

// acceptLoop accepts connections on the given listener until it is closed.
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Accept error: %v", err)
			continue
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.HandleConn(ctx, conn)
		}()
	}
}

// Stop closes all active listeners.
func (s *Server) Stop() {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
	for _, sess := range s.Hub.Sessions() {
		sess.Send("The maze is shutting down.")
		sess.Close()
	}
	if s.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.webServer.Stop(ctx)
	}
}

// HandleConn manages a single client connection lifecycle.
func (s *Server) HandleConn(ctx context.Context, conn net.Conn) {
	sess := NewSession(s.Hub.NextSeq(), conn)
	if s.Hub.metrics != nil {
		s.Hub.metrics.ConnectionOpened(TransportTCP)
	}
	log.Printf("[%d] New connection from %s", sess.Seq, sess.Addr)

	defer func() {
		s.Hub.Leave(context.WithoutCancel(ctx), sess)
		sess.Close()
		log.Printf("[%d] Connection closed from %s", sess.Seq, sess.Addr)
	}()

	if s.Config.OOBTimeout > 0 {
		caps, rest := oob.Negotiate(conn, s.Config.OOBTimeout)
		if caps.HasAny() {
			sess.OOB = caps
		}
		if caps.MSSP {
			sess.SendRaw(oob.EncodeMSSP(s.msspStatus()))
		}
		if len(rest) > 0 {
			sess.Reader = bufio.NewReader(io.MultiReader(bytes.NewReader(rest), conn))
		}
	}

	sess.Send(s.Config.WelcomeText)

	scanner := bufio.NewScanner(sess.Reader)
	scanner.Buffer(make([]byte, maxLineLength), maxLineLength)
	for {
		if s.Config.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.Config.IdleTimeout))
		}
		if !scanner.Scan() {
			return
		}
		if sess.IsClosed() {
			return
		}
		text, subs := oob.ExtractSubnegotiations(scanner.Text())
		for _, sub := range subs {
			s.handleOOB(sess, sub)
		}
		line := strings.TrimRight(stripTelnet(text), "\r\n")
		if line == "" && len(subs) > 0 {
			continue
		}
		sess.Touch()

		if sess.Player == nil {
			s.handleLoginCommand(ctx, sess, line)
		} else {
			s.Hub.Command(ctx, sess, line)
		}
		if sess.IsClosed() {
			return
		}
	}
}

// handleOOB answers the client-initiated GMCP and MSDP requests the maze
// understands. Everything else is ignored.
func (s *Server) handleOOB(sess *Session, body []byte) {
	if len(body) == 0 || !sess.OOB.HasAny() {
		return
	}
	switch body[0] {
	case oob.TeloptGMCP:
		pkg, data := oob.ParseGMCPMessage(body[1:])
		switch strings.ToLower(pkg) {
		case "core.hello":
			log.Printf("[%d] GMCP client: %s", sess.Seq, data)
		case "core.ping":
			sess.SendRaw(oob.EncodeGMCPMessage("Core.Ping", nil))
		}
	case oob.TeloptMSDP:
		vars := oob.ParseMSDP(body[1:])
		if vars["SEND"] != "ROOM" || sess.Player == nil {
			return
		}
		if n, ok := s.Hub.Location(sess.ID); ok {
			sess.SendRaw(oob.EncodeMSDP(map[string]string{"ROOM": strconv.Itoa(n)}))
		}
	}
}

// msspStatus is the server status reported to MUD crawlers.
func (s *Server) msspStatus() map[string]string {
	name := s.Config.Name
	if name == "" {
		name = "gomaze"
	}
	return map[string]string{
		"NAME":     name,
		"PLAYERS":  strconv.Itoa(s.Hub.Count()),
		"UPTIME":   strconv.FormatInt(s.started.Unix(), 10),
		"CODEBASE": VersionString(),
	}
}

// handleLoginCommand processes pre-login commands.
func (s *Server) handleLoginCommand(ctx context.Context, sess *Session, input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}

	switch upper := strings.ToUpper(input); {
	case upper == "QUIT":
		sess.Send("Goodbye!")
		sess.Close()
		return
	case upper == "WHO":
		sess.Send(whoText(s.Hub.Who()))
		return
	}

	command, name := parseConnect(input)
	if !strings.HasPrefix(command, "co") {
		sess.Send("Commands: connect <name>, WHO, QUIT")
		return
	}
	if name == "" {
		sess.Send("Usage: connect <name>")
		return
	}
	if err := s.Hub.Join(ctx, sess, name); err != nil {
		if errors.Is(err, ErrNameTaken) {
			sess.Send("That name is already taken.")
		} else {
			sess.Send("That name is not allowed.")
		}
		log.Printf("[%d] Login as %q refused: %v", sess.Seq, name, err)
	}
}

// parseConnect splits "connect <name>" into a lowercased command and the name.
func parseConnect(input string) (command, name string) {
	command, rest, _ := strings.Cut(strings.TrimSpace(input), " ")
	return strings.ToLower(command), strings.TrimSpace(rest)
}

// stripTelnet removes telnet IAC command sequences from input.
func stripTelnet(s string) string {
	var buf strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == oob.IAC && i+2 < len(s) {
			// IAC command: skip 3 bytes (IAC + cmd + option)
			i += 3
			continue
		}
		if s[i] == oob.IAC && i+1 < len(s) {
			i += 2
			continue
		}
		if s[i] < 32 && s[i] != '\t' && s[i] != '\n' && s[i] != '\r' {
			i++
			continue
		}
		buf.WriteByte(s[i])
		i++
	}
	return buf.String()
}
