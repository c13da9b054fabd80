// Package maze owns the grid of rooms. Rooms are built lazily on first
// lookup and then live for the rest of the process.
package maze

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/crystal-mush/gomaze/pkg/grid"
	"github.com/crystal-mush/gomaze/pkg/room"
)

// RoomRecord is the persisted form of a room.
type RoomRecord struct {
	Number      int
	Flavor      room.Flavor
	Description string
}

// Sink is told about every room the maze creates.
type Sink interface {
	RoomCreated(rec RoomRecord)
}

// Maze is the sparse registry of rooms.
type Maze struct {
	topo    grid.Topology
	factory *Factory

	mu    sync.Mutex
	rooms map[int]*room.Room
	sink  Sink
}

// New returns an empty maze over topo.
func New(topo grid.Topology, f *Factory) *Maze {
	return &Maze{topo: topo, factory: f, rooms: make(map[int]*room.Room)}
}

// SetSink installs the observer for newly created rooms.
func (m *Maze) SetSink(s Sink) {
	m.mu.Lock()
	m.sink = s
	m.mu.Unlock()
}

// Topology returns the grid the maze is laid out on.
func (m *Maze) Topology() grid.Topology { return m.topo }

// Factory returns the room factory.
func (m *Maze) Factory() *Factory { return m.factory }

// Find returns room n, building it on first use. Numbers outside the grid
// yield room.ErrRoomNotFound. Concurrent first lookups build the room once.
func (m *Maze) Find(n int) (*room.Room, error) {
	if !m.topo.Contains(n) {
		return nil, fmt.Errorf("room %d: %w", n, room.ErrRoomNotFound)
	}

	m.mu.Lock()
	if r, ok := m.rooms[n]; ok {
		m.mu.Unlock()
		return r, nil
	}
	r := m.factory.Create(n)
	m.rooms[n] = r
	sink := m.sink
	m.mu.Unlock()

	log.Printf("maze: created room %d (%s)", n, r.Flavor())
	if sink != nil {
		sink.RoomCreated(recordOf(r))
	}
	return r, nil
}

// Restore rebuilds rooms from saved records. Records outside the grid and
// rooms that already exist are skipped. It returns the number restored.
func (m *Maze) Restore(recs []RoomRecord) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	restored := 0
	for _, rec := range recs {
		if !m.topo.Contains(rec.Number) {
			log.Printf("WARNING: maze: saved room %d is outside the %dx%d grid, skipping", rec.Number, m.topo.Width, m.topo.Height)
			continue
		}
		if _, ok := m.rooms[rec.Number]; ok {
			continue
		}
		m.rooms[rec.Number] = m.factory.Rebuild(rec)
		restored++
	}
	return restored
}

// Len is the number of rooms built so far.
func (m *Maze) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// Records snapshots every built room for persistence.
func (m *Maze) Records() []RoomRecord {
	m.mu.Lock()
	out := make([]RoomRecord, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, recordOf(r))
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// ScrollPending sums the scrolled messages still queued across all rooms.
func (m *Maze) ScrollPending() int {
	m.mu.Lock()
	rooms := make([]*room.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()
	total := 0
	for _, r := range rooms {
		total += r.ScrollPending()
	}
	return total
}

// Close stops background delivery in every room.
func (m *Maze) Close() {
	m.mu.Lock()
	rooms := make([]*room.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()
	for _, r := range rooms {
		r.Close()
	}
}

func recordOf(r *room.Room) RoomRecord {
	return RoomRecord{Number: r.Number(), Flavor: r.Flavor(), Description: r.Description()}
}
