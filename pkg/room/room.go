// Package room implements a single maze room: its member and item sets,
// command dispatch to the room's actions, and message fan-out through the
// session transport.
package room

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crystal-mush/gomaze/pkg/grid"
)

// Flavor names a room parameterization.
type Flavor string

const (
	Dungeon     Flavor = "dungeon"
	MessageWall Flavor = "message-wall"
	MainHall    Flavor = "main-hall"
)

// DefaultScrollDelay is the pause between lines of a scrolled message.
const DefaultScrollDelay = 1250 * time.Millisecond

const (
	msgUnrecognised = "Unrecognised command!"
	msgCantGo       = "You can't go there"
)

// Config parameterizes a room at construction.
type Config struct {
	Number      int
	Owner       string
	Topology    grid.Topology
	Transport   Transport
	Flavor      Flavor
	Description string // flavor text that opens the room description
	Actions     []ActionFactory
	ScrollDelay time.Duration // zero means DefaultScrollDelay
}

// Room is the state and dispatch engine of one maze cell.
type Room struct {
	number      int
	owner       string
	topo        grid.Topology
	transport   Transport
	flavor      Flavor
	description string

	// actions and observers are fixed after New.
	actions   []Action
	observers []LeaveObserver
	scroll    *scroller

	mu      sync.RWMutex
	players map[string]*Player
	items   map[int]*Item
}

// New builds a room and binds one instance of every configured action to it.
func New(cfg Config) *Room {
	r := &Room{
		number:      cfg.Number,
		owner:       cfg.Owner,
		topo:        cfg.Topology,
		transport:   cfg.Transport,
		flavor:      cfg.Flavor,
		description: cfg.Description,
		players:     make(map[string]*Player),
		items:       make(map[int]*Item),
	}
	delay := cfg.ScrollDelay
	if delay <= 0 {
		delay = DefaultScrollDelay
	}
	r.scroll = newScroller(r.number, delay, func(ctx context.Context, p *Player, line string) {
		r.SendMessage(ctx, p, line)
	})

	for _, build := range cfg.Actions {
		if build == nil {
			continue
		}
		a := build(r)
		if a == nil || r.hasAction(a) {
			continue
		}
		r.actions = append(r.actions, a)
		if obs, ok := a.(LeaveObserver); ok {
			r.observers = append(r.observers, obs)
		}
	}
	return r
}

func (r *Room) hasAction(a Action) bool {
	for _, existing := range r.actions {
		if existing == a {
			return true
		}
	}
	return false
}

// Number returns the room number.
func (r *Room) Number() int { return r.number }

// Owner returns the identity of the server hosting the room.
func (r *Room) Owner() string { return r.owner }

// ID returns the room's address.
func (r *Room) ID() ID { return ID{Owner: r.owner, Number: r.number} }

// Location returns the item location "resting in this room".
func (r *Room) Location() ItemLocation { return InRoom(r.ID()) }

// Flavor returns the room parameterization.
func (r *Room) Flavor() Flavor { return r.flavor }

// Description returns the flavor text of the room.
func (r *Room) Description() string { return r.description }

// Actions returns the room's actions in dispatch order.
func (r *Room) Actions() []Action {
	out := make([]Action, len(r.actions))
	copy(out, r.actions)
	return out
}

// Has reports whether p is currently a member of the room.
func (r *Room) Has(p *Player) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.players[p.ID]
	return ok
}

// Players returns a snapshot of the members, sorted by name.
func (r *Room) Players() []*Player {
	r.mu.RLock()
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Items returns a snapshot of the items resting in the room, sorted by ID.
func (r *Room) Items() []*Item {
	r.mu.RLock()
	out := make([]*Item, 0, len(r.items))
	for _, i := range r.items {
		out = append(out, i)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// othersThan snapshots every member except p.
func (r *Room) othersThan(p *Player) []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Player, 0, len(r.players))
	for id, other := range r.players {
		if p == nil || id != p.ID {
			out = append(out, other)
		}
	}
	return out
}

// --- Membership callbacks ---

// PlayerEntered announces p to the current members, admits p and describes
// the room to them. p never sees their own arrival notice.
func (r *Room) PlayerEntered(ctx context.Context, p *Player) {
	log.Printf("room %d: player_entered(%s)", r.number, p.Name)

	r.mu.Lock()
	others := make([]*Player, 0, len(r.players))
	for id, other := range r.players {
		if id != p.ID {
			others = append(others, other)
		}
	}
	r.players[p.ID] = p
	r.mu.Unlock()

	notice := p.Name + " has entered the room."
	for _, other := range others {
		r.SendMessage(ctx, other, notice)
	}
	r.Describe(ctx, p)
}

// PlayerLeft releases any action state held by p, removes p and tells the
// remaining members.
func (r *Room) PlayerLeft(ctx context.Context, p *Player) {
	log.Printf("room %d: player_left(%s)", r.number, p.Name)

	for _, obs := range r.observers {
		obs.PlayerLeft(ctx, p)
	}

	r.mu.Lock()
	_, was := r.players[p.ID]
	delete(r.players, p.ID)
	r.mu.Unlock()

	r.scroll.cancel(p.ID)
	if !was {
		return
	}

	notice := p.Name + " has left the room."
	for _, other := range r.othersThan(p) {
		r.SendMessage(ctx, other, notice)
	}
}

// ItemAdded records that i now rests in the room.
func (r *Room) ItemAdded(i *Item) {
	log.Printf("room %d: item_added(%s)", r.number, i.Name)
	r.mu.Lock()
	r.items[i.ID] = i
	r.mu.Unlock()
}

// ItemRemoved records that i no longer rests in the room.
func (r *Room) ItemRemoved(i *Item) {
	log.Printf("room %d: item_removed(%s)", r.number, i.Name)
	r.mu.Lock()
	delete(r.items, i.ID)
	r.mu.Unlock()
}

// --- Commands ---

// Dispatch runs a player command. The built-ins "help" and "description"
// take precedence; otherwise the first action to accept the command wins.
func (r *Room) Dispatch(ctx context.Context, p *Player, command string) {
	cmd := strings.TrimSpace(command)
	cmd = strings.TrimSpace(strings.TrimPrefix(cmd, "/"))

	switch strings.ToLower(cmd) {
	case "help":
		r.SendMessage(ctx, p, r.HelpText()...)
		return
	case "description":
		r.Describe(ctx, p)
		return
	}

	for _, a := range r.actions {
		if a.Process(ctx, p, cmd) {
			return
		}
	}
	r.SendMessage(ctx, p, msgUnrecognised)
}

// HelpText lists the built-ins followed by each action's usage line.
func (r *Room) HelpText() []string {
	lines := []string{
		"/help                     - show this text",
		"/description              - describe the room",
	}
	for _, a := range r.actions {
		lines = append(lines, a.Help())
	}
	return lines
}

// Describe sends the room description, including the valid exits, to p.
func (r *Room) Describe(ctx context.Context, p *Player) {
	r.SendMessage(ctx, p, r.DescriptionFor())
}

// DescriptionFor renders the description as the current members see it.
func (r *Room) DescriptionFor() string {
	var sb strings.Builder
	if r.description != "" {
		sb.WriteString(r.description)
		sb.WriteString(" ")
	}

	r.mu.RLock()
	n := len(r.players)
	r.mu.RUnlock()
	if n > 1 {
		sb.WriteString("You are not alone.")
	} else {
		sb.WriteString("You are alone.")
	}

	names := r.Exits()
	if len(names) == 0 {
		sb.WriteString(" There is no way out.")
		return sb.String()
	}
	sb.WriteString(" From here, you can go ")
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString(".")
	return sb.String()
}

// Exits names the directions that lead to another room, in north, east,
// south, west order.
func (r *Room) Exits() []string {
	exits := r.topo.Exits(r.number)
	names := make([]string, len(exits))
	for i, d := range exits {
		names[i] = string(d)
	}
	return names
}

// --- Messaging ---

// SendMessage delivers lines to p if p is a member. When the transport says
// p is not actually here, the room drops p to match.
func (r *Room) SendMessage(ctx context.Context, p *Player, lines ...string) {
	if !r.Has(p) {
		return
	}
	err := r.transport.SendMessage(ctx, r.number, p, lines)
	switch {
	case err == nil:
	case errors.Is(err, ErrPlayerNotInRoom):
		log.Printf("room %d: player %s not in room, removing: %v", r.number, p.Name, err)
		r.PlayerLeft(ctx, p)
	case errors.Is(err, ErrRoomNotFound):
		log.Printf("room %d: room not found sending to %s: %v", r.number, p.Name, err)
	default:
		log.Printf("room %d: send to %s failed: %v", r.number, p.Name, err)
	}
}

// SendAll delivers lines to every member.
func (r *Room) SendAll(ctx context.Context, lines ...string) {
	for _, p := range r.othersThan(nil) {
		r.SendMessage(ctx, p, lines...)
	}
}

// Broadcast asks the transport to deliver lines to every player on the server.
func (r *Room) Broadcast(ctx context.Context, lines ...string) {
	if err := r.transport.BroadcastMessage(ctx, r.number, lines); err != nil {
		log.Printf("room %d: broadcast failed: %v", r.number, err)
	}
}

// ScrollMessage queues lines for delivery to p one at a time with the
// configured delay between them. Deliveries to the same player run in the
// order they were queued. The returned channel is closed once the delivery
// completes or is abandoned (p left, ctx cancelled, room closed).
func (r *Room) ScrollMessage(ctx context.Context, p *Player, lines []string) <-chan struct{} {
	return r.scroll.enqueue(ctx, p, lines)
}

// ScrollPending is the number of scrolled messages not yet fully delivered.
func (r *Room) ScrollPending() int {
	return r.scroll.pending()
}

// Close abandons every pending scrolled message.
func (r *Room) Close() {
	r.scroll.cancelAll()
}

// --- Movement and items ---

// MovePlayer moves p towards dest: a relative direction, or the identity of
// another server whose room 0 is the target.
func (r *Room) MovePlayer(ctx context.Context, p *Player, dest string) {
	dest = strings.TrimSpace(dest)
	if d, ok := grid.ParseDirection(dest); ok {
		n := r.topo.Neighbor(r.number, d)
		if n == r.topo.Invalid() {
			r.SendMessage(ctx, p, msgCantGo)
			return
		}
		r.MoveTo(ctx, p, ID{Owner: r.owner, Number: n})
		return
	}
	r.MoveTo(ctx, p, ID{Owner: dest, Number: 0})
}

// MoveTo asks the transport to move p into the room addressed by dest.
func (r *Room) MoveTo(ctx context.Context, p *Player, dest ID) {
	err := r.transport.MovePlayer(ctx, r.number, p, dest)
	switch {
	case err == nil:
	case errors.Is(err, ErrRoomNotFound):
		r.SendMessage(ctx, p, msgCantGo)
	case errors.Is(err, ErrCantMovePlayer):
		log.Printf("room %d: can't move %s to %s: %v", r.number, p.Name, dest, err)
	default:
		log.Printf("room %d: move %s to %s failed: %v", r.number, p.Name, dest, err)
	}
}

// MoveItem asks the transport to relocate an item on behalf of p.
func (r *Room) MoveItem(ctx context.Context, p *Player, item int, loc ItemLocation) error {
	if err := r.transport.MoveItem(ctx, r.number, p, item, loc); err != nil {
		return fmt.Errorf("room %d: move item %d: %w", r.number, item, err)
	}
	return nil
}
