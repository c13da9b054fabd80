package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/crystal-mush/gomaze/pkg/events"
	"github.com/gorilla/websocket"
)

// WebConfig holds configuration for the web server.
type WebConfig struct {
	Port        int
	Host        string
	CORSOrigins []string
	RateLimit   int
}

// WebServer provides HTTP/WebSocket transport alongside the TCP server.
type WebServer struct {
	hub        *Hub
	transcript *Transcript
	metrics    *Metrics
	httpSrv    *http.Server
	mux        *http.ServeMux
	rl         *rateLimiter
	upgrader   websocket.Upgrader
	startTime  time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewWebServer creates a web server bound to the hub. transcript and metrics
// may be nil; their endpoints then answer 404.
func NewWebServer(hub *Hub, transcript *Transcript, metrics *Metrics, cfg WebConfig) *WebServer {
	ws := &WebServer{
		hub:        hub,
		transcript: transcript,
		metrics:    metrics,
		mux:        http.NewServeMux(),
		rl:         newRateLimiter(cfg.RateLimit),
		startTime:  time.Now(),
		stop:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(cfg.CORSOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, o := range cfg.CORSOrigins {
					if strings.EqualFold(o, origin) {
						return true
					}
				}
				return false
			},
		},
	}
	ws.registerRoutes(cfg)
	return ws
}

// Handler returns the fully wrapped HTTP handler.
func (ws *WebServer) Handler() http.Handler { return ws.httpSrv.Handler }

// registerRoutes sets up all HTTP routes.
func (ws *WebServer) registerRoutes(cfg WebConfig) {
	// Apply global middleware: CORS -> rate limit
	handler := http.Handler(ws.mux)
	handler = rateLimitMiddleware(ws.rl, handler)
	handler = corsMiddleware(cfg.CORSOrigins, handler)

	ws.httpSrv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: handler,
	}

	ws.mux.HandleFunc("GET /ws", ws.handleWebSocket)
	ws.mux.HandleFunc("GET /health", ws.handleHealth)
	ws.mux.HandleFunc("GET /api/v1/who", ws.handleWho)
	if ws.transcript != nil {
		ws.mux.HandleFunc("GET /api/v1/transcript", ws.handleTranscript)
	}
	if ws.metrics != nil {
		ws.mux.Handle("GET /metrics", ws.metrics.Handler())
	}
}

// Start begins listening over plain HTTP.
func (ws *WebServer) Start() error {
	// Rate limiter cleanup goroutine
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ws.rl.cleanup()
			case <-ws.stop:
				return
			}
		}
	}()

	log.Printf("Web server listening on %s (HTTP)", ws.httpSrv.Addr)
	err := ws.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the web server.
func (ws *WebServer) Stop(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stop) })
	return ws.httpSrv.Shutdown(ctx)
}

// --- WebSocket Handler ---

// WSMessage is the JSON message format for WebSocket communication.
type WSMessage struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Command string         `json:"command,omitempty"`
}

// wsConn holds the WebSocket connection and its write mutex.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (wc *wsConn) sendJSON(msg WSMessage) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	wc.conn.WriteJSON(msg)
}

// handleWebSocket upgrades an HTTP connection to a WebSocket and creates
// a Session for the client.
func (ws *WebServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	// Use X-Forwarded-For or X-Real-IP if behind a reverse proxy
	remoteAddr := r.RemoteAddr
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		remoteAddr = strings.TrimSpace(first)
	} else if xri := r.Header.Get("X-Real-IP"); xri != "" {
		remoteAddr = strings.TrimSpace(xri)
	}

	sess, wc := newWSSession(ws.hub.NextSeq(), conn, remoteAddr)
	if ws.metrics != nil {
		ws.metrics.ConnectionOpened(TransportWebSocket)
	}
	log.Printf("[ws:%d] WebSocket connection from %s", sess.Seq, sess.Addr)
	wc.sendJSON(WSMessage{Type: "welcome", Text: "Connected. Send {\"type\":\"login\",\"command\":\"connect <name>\"} to enter the maze."})

	go ws.readLoop(sess, wc)
}

// newWSSession creates a Session configured for WebSocket transport.
// The Session's SendFunc and ReceiveFunc write JSON to the WS conn.
func newWSSession(seq int, conn *websocket.Conn, addr string) (*Session, *wsConn) {
	wc := &wsConn{conn: conn}
	now := time.Now()
	sess := &Session{
		ID:        newSessionID(),
		Seq:       seq,
		Addr:      addr,
		ConnTime:  now,
		lastCmd:   now,
		Transport: TransportWebSocket,
	}
	sess.SendFunc = func(msg string) {
		wc.sendJSON(WSMessage{Type: "text", Text: msg})
	}
	sess.ReceiveFunc = func(ev events.Event) {
		wc.sendJSON(WSMessage{
			Type: ev.Type.String(),
			Text: ev.Text(),
			Data: ev.Data,
		})
	}
	return sess, wc
}

func (ws *WebServer) readLoop(sess *Session, wc *wsConn) {
	ctx := context.Background()
	defer func() {
		ws.hub.Leave(ctx, sess)
		sess.Close()
		wc.conn.Close()
		log.Printf("[ws:%d] WebSocket closed from %s", sess.Seq, sess.Addr)
	}()

	wc.conn.SetReadLimit(maxLineLength)
	for {
		_, msgBytes, err := wc.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				log.Printf("[ws:%d] message over %d bytes, closing", sess.Seq, maxLineLength)
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws:%d] read error: %v", sess.Seq, err)
			}
			return
		}
		sess.Touch()

		var msg WSMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			wc.sendJSON(WSMessage{Type: "error", Text: "Invalid JSON message"})
			continue
		}

		switch msg.Type {
		case "login":
			ws.handleLogin(ctx, sess, wc, msg.Command)
		case "command":
			if sess.Player == nil {
				ws.handleLogin(ctx, sess, wc, msg.Command)
			} else {
				ws.hub.Command(ctx, sess, msg.Command)
			}
		default:
			wc.sendJSON(WSMessage{Type: "error", Text: fmt.Sprintf("Unknown message type: %s", msg.Type)})
		}
		if sess.IsClosed() {
			return
		}
	}
}

func (ws *WebServer) handleLogin(ctx context.Context, sess *Session, wc *wsConn, input string) {
	if sess.Player != nil {
		wc.sendJSON(WSMessage{Type: "error", Text: "Already connected"})
		return
	}
	command, name := parseConnect(input)
	if !strings.HasPrefix(command, "co") || name == "" {
		wc.sendJSON(WSMessage{Type: "error", Text: "Use: connect <name>"})
		return
	}
	ack := func() {
		wc.sendJSON(WSMessage{Type: "login", Data: map[string]any{"player_name": name}})
	}
	if err := ws.hub.JoinAcked(ctx, sess, name, ack); err != nil {
		text := "That name is not allowed."
		if errors.Is(err, ErrNameTaken) {
			text = "That name is already taken."
		}
		wc.sendJSON(WSMessage{Type: "error", Text: text})
		return
	}
}

// --- REST Handlers ---

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        Version,
		"uptime_seconds": time.Since(ws.startTime).Seconds(),
		"players":        ws.hub.Count(),
	})
}

func (ws *WebServer) handleWho(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ws.hub.Who())
}

func (ws *WebServer) handleTranscript(w http.ResponseWriter, r *http.Request) {
	limit := ws.transcript.Limit()
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, ws.transcript.Limit())
	}
	entries, err := ws.transcript.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("web: transcript query failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "transcript unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
