package room

import (
	"context"
	"errors"
	"fmt"
)

// Transport errors. Implementations return these (optionally wrapped) so the
// room can tell a missing room from a missing player.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrPlayerNotInRoom = errors.New("player not in room")
	ErrCantMovePlayer  = errors.New("can't move player")
	ErrCantMoveItem    = errors.New("can't move item")
)

// Player is a connected player. The session layer owns its lifecycle; a room
// only tracks membership.
type Player struct {
	ID   string // session handle, unique per connection
	Name string // display name
}

// Item is an object that can rest in a room or be held by a player.
type Item struct {
	ID   int
	Name string
}

// ID addresses a room: the identity of the server that owns it plus its number.
type ID struct {
	Owner  string
	Number int
}

func (id ID) String() string {
	return fmt.Sprintf("%s#%d", id.Owner, id.Number)
}

// ItemLocation is where an item is: held by a player, or resting in a room.
type ItemLocation struct {
	Player *Player // non-nil when held
	Room   ID
}

// HeldBy returns the location "carried by p".
func HeldBy(p *Player) ItemLocation { return ItemLocation{Player: p} }

// InRoom returns the location "resting in room id".
func InRoom(id ID) ItemLocation { return ItemLocation{Room: id} }

// Held reports whether the location is a player's inventory.
func (l ItemLocation) Held() bool { return l.Player != nil }

// Transport is the session layer a room talks through. Every call may block
// and may fail; rooms never retry.
type Transport interface {
	// SendMessage delivers lines to a player located in room.
	SendMessage(ctx context.Context, room int, p *Player, lines []string) error
	// BroadcastMessage delivers lines to every player on the server.
	BroadcastMessage(ctx context.Context, room int, lines []string) error
	// MovePlayer moves p out of room into dest.
	MovePlayer(ctx context.Context, room int, p *Player, dest ID) error
	// MoveItem relocates an item on behalf of p, who is in room.
	MoveItem(ctx context.Context, room int, p *Player, item int, loc ItemLocation) error
}
