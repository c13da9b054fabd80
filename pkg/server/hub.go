package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crystal-mush/gomaze/pkg/boltstore"
	"github.com/crystal-mush/gomaze/pkg/events"
	"github.com/crystal-mush/gomaze/pkg/oob"
	"github.com/crystal-mush/gomaze/pkg/room"
)

// StartRoom is where every player enters the maze.
const StartRoom = 0

// ErrNameTaken is returned by Join when another session already uses the name.
var ErrNameTaken = errors.New("name already in use")

// RoomLookup resolves room numbers, building rooms on demand.
type RoomLookup interface {
	Find(n int) (*room.Room, error)
}

// ItemSink persists item moves.
type ItemSink interface {
	PutItem(it boltstore.ItemRecord) error
}

type itemState struct {
	item   *room.Item
	room   int    // resting room, or the room it was picked up in
	holder string // session ID of the carrier, "" when resting
}

// Hub is the session transport for one maze owner. It tracks where every
// connected player is and where every item is, and turns room output into
// bus events.
type Hub struct {
	owner   string
	bus     *events.Bus
	rooms   RoomLookup
	items   ItemSink
	metrics *Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
	location map[string]int
	objects  map[int]*itemState
	nextSeq  int
}

// NewHub creates a hub delivering through bus. SetRooms must be called
// before the first Join.
func NewHub(owner string, bus *events.Bus) *Hub {
	return &Hub{
		owner:    owner,
		bus:      bus,
		sessions: make(map[string]*Session),
		location: make(map[string]int),
		objects:  make(map[int]*itemState),
		nextSeq:  1,
	}
}

// SetRooms installs the room lookup (normally the maze).
func (h *Hub) SetRooms(l RoomLookup) { h.rooms = l }

// SetItemSink installs write-through persistence for item moves.
func (h *Hub) SetItemSink(s ItemSink) { h.items = s }

// SetMetrics installs the metrics collector.
func (h *Hub) SetMetrics(m *Metrics) { h.metrics = m }

// Owner returns the identity this hub answers to.
func (h *Hub) Owner() string { return h.owner }

// Bus returns the event bus.
func (h *Hub) Bus() *events.Bus { return h.bus }

// NextSeq returns the next session sequence number.
func (h *Hub) NextSeq() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	seq := h.nextSeq
	h.nextSeq++
	return seq
}

// --- Items ---

// PlaceItem registers an item resting in room n, or carried by nobody when
// holder is empty. Used when seeding items from config or a saved snapshot.
func (h *Hub) PlaceItem(it room.Item, n int) error {
	r, err := h.rooms.Find(n)
	if err != nil {
		return fmt.Errorf("placing item %d: %w", it.ID, err)
	}
	item := &room.Item{ID: it.ID, Name: it.Name}
	h.mu.Lock()
	if _, dup := h.objects[it.ID]; dup {
		h.mu.Unlock()
		return fmt.Errorf("placing item %d: duplicate item id", it.ID)
	}
	h.objects[it.ID] = &itemState{item: item, room: n}
	h.mu.Unlock()
	r.ItemAdded(item)
	return nil
}

// ItemsIn lists the items resting in room n.
func (h *Hub) ItemsIn(n int) []room.Item {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []room.Item
	for _, st := range h.objects {
		if st.holder == "" && st.room == n {
			out = append(out, *st.item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Inventory lists the items carried by session id.
func (h *Hub) Inventory(id string) []room.Item {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []room.Item
	for _, st := range h.objects {
		if st.holder == id {
			out = append(out, *st.item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ItemRecords snapshots every item for persistence. Carried items are
// recorded in their carrier's current room.
func (h *Hub) ItemRecords() []boltstore.ItemRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]boltstore.ItemRecord, 0, len(h.objects))
	for _, st := range h.objects {
		out = append(out, h.recordLocked(st))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (h *Hub) recordLocked(st *itemState) boltstore.ItemRecord {
	rec := boltstore.ItemRecord{ID: st.item.ID, Name: st.item.Name, Room: st.room}
	if st.holder != "" {
		if loc, ok := h.location[st.holder]; ok {
			rec.Room = loc
		}
		if s, ok := h.sessions[st.holder]; ok && s.Player != nil {
			rec.Holder = s.Player.Name
		}
	}
	return rec
}

// --- Sessions ---

// Join puts the session's player into the start room under name.
func (h *Hub) Join(ctx context.Context, s *Session, name string) error {
	return h.JoinAcked(ctx, s, name, nil)
}

// JoinAcked is Join with a callback that runs once the name is accepted,
// before the session is sent anything about the maze. It is not called
// when the join is refused.
func (h *Hub) JoinAcked(ctx context.Context, s *Session, name string, ack func()) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, " \t\"") {
		return fmt.Errorf("invalid name %q", name)
	}
	start, err := h.rooms.Find(StartRoom)
	if err != nil {
		return fmt.Errorf("start room: %w", err)
	}

	h.mu.Lock()
	for _, other := range h.sessions {
		if other.Player != nil && strings.EqualFold(other.Player.Name, name) {
			h.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrNameTaken, name)
		}
	}
	s.Player = &room.Player{ID: s.ID, Name: name}
	h.sessions[s.ID] = s
	h.location[s.ID] = StartRoom
	h.mu.Unlock()

	if ack != nil {
		ack()
	}
	h.bus.Subscribe(s.ID, s)
	if h.metrics != nil {
		h.metrics.SessionOpened(s.Transport)
	}
	log.Printf("[%d] Player %s joined from %s", s.Seq, name, s.Addr)
	h.bus.Emit(events.Event{Type: events.EvConnect, Source: name, Room: StartRoom,
		Lines: []string{name + " has connected."}})
	h.bus.EmitToPlayer(s.ID, events.Event{Type: events.EvMove, Source: name, Room: StartRoom,
		Data: h.roomInfo(start)})

	start.PlayerEntered(ctx, s.Player)
	return nil
}

// Leave removes the session's player from the maze. Carried items are
// dropped where the player stood.
func (h *Hub) Leave(ctx context.Context, s *Session) {
	h.mu.RLock()
	loc, ok := h.location[s.ID]
	h.mu.RUnlock()
	if !ok || s.Player == nil {
		return
	}

	if r, err := h.rooms.Find(loc); err == nil {
		r.PlayerLeft(ctx, s.Player)
		for _, it := range h.dropAll(s.ID, loc) {
			r.ItemAdded(it)
		}
	}

	h.mu.Lock()
	delete(h.location, s.ID)
	delete(h.sessions, s.ID)
	h.mu.Unlock()

	h.bus.Unsubscribe(s.ID, s)
	if h.metrics != nil {
		h.metrics.SessionClosed(s.Transport)
	}
	log.Printf("[%d] Player %s left", s.Seq, s.Player.Name)
	h.bus.Emit(events.Event{Type: events.EvDisconnect, Source: s.Player.Name, Room: loc,
		Lines: []string{s.Player.Name + " has disconnected."}})
}

func (h *Hub) dropAll(id string, n int) []*room.Item {
	h.mu.Lock()
	var dropped []*room.Item
	var recs []boltstore.ItemRecord
	for _, st := range h.objects {
		if st.holder == id {
			st.holder = ""
			st.room = n
			dropped = append(dropped, st.item)
			recs = append(recs, h.recordLocked(st))
		}
	}
	h.mu.Unlock()
	for _, rec := range recs {
		h.persistItem(rec)
	}
	return dropped
}

// Command runs one line of player input.
func (h *Hub) Command(ctx context.Context, s *Session, line string) {
	line = strings.TrimSpace(line)
	if line == "" || s.Player == nil {
		return
	}
	if h.metrics != nil {
		h.metrics.CommandProcessed()
	}

	switch strings.ToLower(strings.TrimPrefix(line, "/")) {
	case "quit":
		s.Send("Goodbye!")
		h.Leave(ctx, s)
		s.Close()
		return
	case "who":
		h.sendWho(s)
		return
	case "inventory", "inv":
		s.Send(itemList("You are carrying", h.Inventory(s.ID)))
		return
	case "items":
		h.mu.RLock()
		loc := h.location[s.ID]
		h.mu.RUnlock()
		s.Send(itemList("You see", h.ItemsIn(loc)))
		return
	}

	h.mu.RLock()
	loc, ok := h.location[s.ID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	r, err := h.rooms.Find(loc)
	if err != nil {
		log.Printf("[%d] WARNING: player %s is in missing room %d: %v", s.Seq, s.Player.Name, loc, err)
		return
	}
	r.Dispatch(ctx, s.Player, line)
}

func itemList(prefix string, items []room.Item) string {
	if len(items) == 0 {
		return prefix + " nothing."
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s (%d)", it.Name, it.ID)
	}
	return prefix + ": " + strings.Join(parts, ", ") + "."
}

// WhoEntry describes one connected player.
type WhoEntry struct {
	Name  string `json:"name"`
	Room  int    `json:"room"`
	OnFor string `json:"on_for"`
	Idle  string `json:"idle"`
}

// Who lists the connected players sorted by name.
func (h *Hub) Who() []WhoEntry {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	rooms := make([]int, 0, len(h.sessions))
	for id, s := range h.sessions {
		sessions = append(sessions, s)
		rooms = append(rooms, h.location[id])
	}
	h.mu.RUnlock()

	entries := make([]WhoEntry, len(sessions))
	for i, s := range sessions {
		entries[i] = WhoEntry{
			Name:  s.Player.Name,
			Room:  rooms[i],
			OnFor: FormatConnTime(time.Since(s.ConnTime)),
			Idle:  FormatIdleTime(s.Idle()),
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// sendWho delivers the WHO listing as an EvWho event so GMCP clients get
// the player list as Char.Group alongside the text.
func (h *Hub) sendWho(s *Session) {
	entries := h.Who()
	h.bus.EmitToPlayer(s.ID, events.Event{Type: events.EvWho, Source: s.Player.Name,
		Lines: []string{whoText(entries)}, Data: map[string]any{"players": entries}})
}

func whoText(entries []WhoEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-20s %8s %5s", "Player Name", "On For", "Idle")
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n%-20s %8s %5s", e.Name, e.OnFor, e.Idle)
	}
	fmt.Fprintf(&sb, "\n%d player(s) connected.", len(entries))
	return sb.String()
}

// Count returns the number of joined players.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Sessions returns a snapshot of the joined sessions.
func (h *Hub) Sessions() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	return out
}

// Location returns the room a session's player is in.
func (h *Hub) Location(id string) (int, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n, ok := h.location[id]
	return n, ok
}

// --- room.Transport ---

func (h *Hub) SendMessage(_ context.Context, n int, p *room.Player, lines []string) error {
	h.mu.RLock()
	loc, ok := h.location[p.ID]
	h.mu.RUnlock()
	if !ok || loc != n {
		return fmt.Errorf("%s in room %d: %w", p.Name, n, room.ErrPlayerNotInRoom)
	}
	h.bus.EmitToPlayer(p.ID, events.Event{Type: events.EvText, Room: n, Lines: lines})
	return nil
}

func (h *Hub) BroadcastMessage(_ context.Context, n int, lines []string) error {
	h.bus.EmitAll(events.Event{Type: events.EvShout, Room: n, Lines: lines})
	return nil
}

func (h *Hub) MovePlayer(ctx context.Context, n int, p *room.Player, dest room.ID) error {
	if dest.Owner != h.owner {
		return fmt.Errorf("no route to %s: %w", dest, room.ErrRoomNotFound)
	}
	to, err := h.rooms.Find(dest.Number)
	if err != nil {
		return err
	}
	from, err := h.rooms.Find(n)
	if err != nil {
		return err
	}

	h.mu.Lock()
	loc, ok := h.location[p.ID]
	if !ok || loc != n {
		h.mu.Unlock()
		return fmt.Errorf("%s is not in room %d: %w", p.Name, n, room.ErrCantMovePlayer)
	}
	h.mu.Unlock()

	from.PlayerLeft(ctx, p)
	h.mu.Lock()
	h.location[p.ID] = dest.Number
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.PlayerMoved()
	}
	info := h.roomInfo(to)
	info["from"] = n
	h.bus.Emit(events.Event{Type: events.EvMove, Player: p.ID, Source: p.Name, Room: dest.Number, Data: info})

	to.PlayerEntered(ctx, p)
	return nil
}

func (h *Hub) MoveItem(_ context.Context, n int, p *room.Player, id int, loc room.ItemLocation) error {
	r, err := h.rooms.Find(n)
	if err != nil {
		return err
	}
	if !loc.Held() && loc.Room.Owner != h.owner {
		return fmt.Errorf("no route to %s: %w", loc.Room, room.ErrRoomNotFound)
	}

	h.mu.Lock()
	st, ok := h.objects[id]
	if !ok || h.location[p.ID] != n {
		h.mu.Unlock()
		return fmt.Errorf("item %d: %w", id, room.ErrCantMoveItem)
	}
	taking := loc.Held()
	switch {
	case taking && (st.holder != "" || st.room != n || loc.Player.ID != p.ID):
		h.mu.Unlock()
		return fmt.Errorf("item %d is not here: %w", id, room.ErrCantMoveItem)
	case !taking && (st.holder != p.ID || loc.Room.Number != n):
		h.mu.Unlock()
		return fmt.Errorf("item %d is not carried by %s: %w", id, p.Name, room.ErrCantMoveItem)
	}
	if taking {
		st.holder = p.ID
	} else {
		st.holder = ""
		st.room = n
	}
	rec := h.recordLocked(st)
	h.mu.Unlock()

	if taking {
		r.ItemRemoved(st.item)
	} else {
		r.ItemAdded(st.item)
	}
	h.persistItem(rec)
	h.bus.Emit(events.Event{Type: events.EvItem, Player: p.ID, Source: p.Name, Room: n,
		Data: map[string]any{"item": id, "held": taking}})
	return nil
}

// roomInfo is the structured description of r sent to OOB and JSON clients.
func (h *Hub) roomInfo(r *room.Room) map[string]any {
	return oob.RoomInfo(r.Number(), h.owner, r.Exits())
}

func (h *Hub) persistItem(rec boltstore.ItemRecord) {
	if h.items == nil {
		return
	}
	if err := h.items.PutItem(rec); err != nil {
		log.Printf("WARNING: persisting item %d: %v", rec.ID, err)
	}
}

// Compile-time check that Hub implements room.Transport.
var _ room.Transport = (*Hub)(nil)
