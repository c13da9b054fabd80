package room

import "context"

// Action handles one kind of user command. Each instance belongs to exactly
// one room. Implementations must be comparable (pointer types) so a room can
// keep its action list free of duplicates.
type Action interface {
	// Process reports whether the action accepted cmd. It may have side
	// effects only when it returns true.
	Process(ctx context.Context, p *Player, cmd string) bool
	// Help returns a one-line usage string.
	Help() string
}

// LeaveObserver is implemented by actions that hold per-player state and need
// to release it when a player leaves the room.
type LeaveObserver interface {
	PlayerLeft(ctx context.Context, p *Player)
}

// ActionFactory builds an action bound to r.
type ActionFactory func(r *Room) Action
