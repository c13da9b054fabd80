package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MazeStats is the part of the maze the metrics read on every scrape.
type MazeStats interface {
	Len() int
	ScrollPending() int
}

// Metrics holds Prometheus metric descriptors for the maze server.
type Metrics struct {
	maze      MazeStats
	startTime time.Time
	registry  *prometheus.Registry

	playersConnected *prometheus.GaugeVec
	connectionsTotal *prometheus.CounterVec
	commandsTotal    prometheus.Counter
	movesTotal       prometheus.Counter
	roomsBuilt       prometheus.Gauge
	scrollPending    prometheus.Gauge
	uptimeSeconds    prometheus.Gauge
	memoryHeapBytes  prometheus.Gauge
	goroutines       prometheus.Gauge
}

// NewMetrics creates the metrics on a private registry so several servers
// (and tests) can coexist in one process.
func NewMetrics(maze MazeStats, startTime time.Time) *Metrics {
	m := &Metrics{
		maze:      maze,
		startTime: startTime,
		registry:  prometheus.NewRegistry(),
		playersConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gomaze_players_connected",
			Help: "Number of players currently in the maze by transport.",
		}, []string{"transport"}),
		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gomaze_connections_total",
			Help: "Total connections since server start.",
		}, []string{"transport"}),
		commandsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomaze_commands_processed_total",
			Help: "Total commands processed since server start.",
		}),
		movesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomaze_player_moves_total",
			Help: "Total successful room changes.",
		}),
		roomsBuilt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomaze_rooms_built",
			Help: "Number of rooms constructed so far.",
		}),
		scrollPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomaze_scroll_pending",
			Help: "Scrolled messages queued or in delivery.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomaze_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
		memoryHeapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomaze_memory_heap_bytes",
			Help: "Go heap memory allocated in bytes.",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomaze_goroutines",
			Help: "Number of active goroutines.",
		}),
	}

	m.registry.MustRegister(
		m.playersConnected,
		m.connectionsTotal,
		m.commandsTotal,
		m.movesTotal,
		m.roomsBuilt,
		m.scrollPending,
		m.uptimeSeconds,
		m.memoryHeapBytes,
		m.goroutines,
	)
	return m
}

func (m *Metrics) ConnectionOpened(t TransportType) {
	m.connectionsTotal.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) SessionOpened(t TransportType) {
	m.playersConnected.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) SessionClosed(t TransportType) {
	m.playersConnected.WithLabelValues(t.String()).Dec()
}

func (m *Metrics) CommandProcessed() { m.commandsTotal.Inc() }

func (m *Metrics) PlayerMoved() { m.movesTotal.Inc() }

// Update refreshes the sampled gauges.
func (m *Metrics) Update() {
	if m.maze != nil {
		m.roomsBuilt.Set(float64(m.maze.Len()))
		m.scrollPending.Set(float64(m.maze.ScrollPending()))
	}
	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.memoryHeapBytes.Set(float64(mem.HeapAlloc))
	m.goroutines.Set(float64(runtime.NumGoroutine()))
}

// Handler returns an http.Handler that updates metrics before serving them.
func (m *Metrics) Handler() http.Handler {
	inner := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update()
		inner.ServeHTTP(w, r)
	})
}
