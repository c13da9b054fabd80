// Package actions holds the commands players can type in a room. Each action
// instance is bound to exactly one room.
package actions

import (
	"context"
	"regexp"

	"github.com/crystal-mush/gomaze/pkg/room"
)

var goPattern = regexp.MustCompile(`^go\s+(.*)$`)

// Go moves the player to a neighboring room or to another server.
type Go struct {
	room *room.Room
}

// NewGo binds a Go action to r.
func NewGo(r *room.Room) *Go { return &Go{room: r} }

func (a *Go) Process(ctx context.Context, p *room.Player, cmd string) bool {
	m := goPattern.FindStringSubmatch(cmd)
	if m == nil {
		return false
	}
	a.room.MovePlayer(ctx, p, m[1])
	return true
}

func (a *Go) Help() string {
	return "/go <room|username>       - move to a new room"
}
