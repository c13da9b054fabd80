package actions

import (
	"context"
	"regexp"

	"github.com/crystal-mush/gomaze/pkg/room"
)

var (
	sayPattern   = regexp.MustCompile(`^say\s+(.+)$`)
	shoutPattern = regexp.MustCompile(`^shout\s+(.+)$`)
)

// Say sends a line to everyone in the room.
type Say struct {
	room *room.Room
}

func NewSay(r *room.Room) *Say { return &Say{room: r} }

func (a *Say) Process(ctx context.Context, p *room.Player, cmd string) bool {
	m := sayPattern.FindStringSubmatch(cmd)
	if m == nil {
		return false
	}
	a.room.SendAll(ctx, p.Name+" says: "+m[1])
	return true
}

func (a *Say) Help() string {
	return "/say <message>            - send a message to everyone"
}

// Shout sends a line to everyone on the server.
type Shout struct {
	room *room.Room
}

func NewShout(r *room.Room) *Shout { return &Shout{room: r} }

func (a *Shout) Process(ctx context.Context, p *room.Player, cmd string) bool {
	m := shoutPattern.FindStringSubmatch(cmd)
	if m == nil {
		return false
	}
	a.room.Broadcast(ctx, p.Name+" shouts: "+m[1])
	return true
}

func (a *Shout) Help() string {
	return "/shout <message>          - shout a message to everyone"
}
