package events

import (
	"slices"
	"sync"
)

// Subscriber receives events from the bus.
type Subscriber interface {
	Receive(ev Event)
	Closed() bool
}

// Bus routes events to the subscribers of one player, and to global
// subscribers that see everything. Delivery is synchronous on the emitting
// goroutine; subscribers encode events for their own transport.
type Bus struct {
	mu      sync.RWMutex
	players map[string][]Subscriber
	global  []Subscriber
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{players: make(map[string][]Subscriber)}
}

// Subscribe registers sub for events addressed to player.
func (b *Bus) Subscribe(player string, sub Subscriber) {
	b.mu.Lock()
	b.players[player] = append(b.players[player], sub)
	b.mu.Unlock()
}

// Unsubscribe removes sub from player's subscribers.
func (b *Bus) Unsubscribe(player string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := slices.DeleteFunc(slices.Clone(b.players[player]), func(s Subscriber) bool { return s == sub })
	if len(subs) == 0 {
		delete(b.players, player)
		return
	}
	b.players[player] = subs
}

// SubscribeGlobal registers a subscriber that receives all events.
func (b *Bus) SubscribeGlobal(sub Subscriber) {
	b.mu.Lock()
	b.global = append(b.global, sub)
	b.mu.Unlock()
}

// Emit delivers ev to the subscribers of ev.Player and to every global
// subscriber.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	subs, globals := b.players[ev.Player], b.global
	b.mu.RUnlock()

	deliver(subs, ev)
	deliver(globals, ev)
}

// EmitToPlayer sends an event to a specific player (overriding ev.Player).
func (b *Bus) EmitToPlayer(player string, ev Event) {
	ev.Player = player
	b.Emit(ev)
}

// EmitAll sends an event to every subscribed player. Global subscribers see
// it once, with Player left empty.
func (b *Bus) EmitAll(ev Event) {
	b.mu.RLock()
	targets := make(map[string][]Subscriber, len(b.players))
	for player, subs := range b.players {
		targets[player] = subs
	}
	globals := b.global
	b.mu.RUnlock()

	for player, subs := range targets {
		ev.Player = player
		deliver(subs, ev)
	}
	ev.Player = ""
	deliver(globals, ev)
}

func deliver(subs []Subscriber, ev Event) {
	for _, s := range subs {
		if !s.Closed() {
			s.Receive(ev)
		}
	}
}

// Cleanup drops closed subscribers, such as sessions whose connection died
// before they could leave.
func (b *Bus) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for player, subs := range b.players {
		if subs = live(subs); len(subs) == 0 {
			delete(b.players, player)
		} else {
			b.players[player] = subs
		}
	}
	b.global = live(b.global)
}

// live returns the open subscribers of subs in a new slice, so snapshots
// taken by Emit stay valid.
func live(subs []Subscriber) []Subscriber {
	var out []Subscriber
	for _, s := range subs {
		if !s.Closed() {
			out = append(out, s)
		}
	}
	return out
}
