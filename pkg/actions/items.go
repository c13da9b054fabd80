package actions

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/crystal-mush/gomaze/pkg/room"
)

var (
	takePattern    = regexp.MustCompile(`^take\s+(.*)$`)
	releasePattern = regexp.MustCompile(`^release\s+(.*)$`)
)

const msgBadItem = "Not a valid item number!"

// Take moves an item from the room into the player's inventory.
type Take struct {
	room *room.Room
}

func NewTake(r *room.Room) *Take { return &Take{room: r} }

func (a *Take) Process(ctx context.Context, p *room.Player, cmd string) bool {
	m := takePattern.FindStringSubmatch(cmd)
	if m == nil {
		return false
	}
	moveItem(ctx, a.room, p, m[1], room.HeldBy(p),
		p.Name+" picked up an item", "You're not holding that item!")
	return true
}

func (a *Take) Help() string {
	return "/take <id>                - pick up an item"
}

// Release drops an item from the player's inventory into the room.
type Release struct {
	room *room.Room
}

func NewRelease(r *room.Room) *Release { return &Release{room: r} }

func (a *Release) Process(ctx context.Context, p *room.Player, cmd string) bool {
	m := releasePattern.FindStringSubmatch(cmd)
	if m == nil {
		return false
	}
	moveItem(ctx, a.room, p, m[1], a.room.Location(),
		p.Name+" dropped an item", "You're not carrying that item!")
	return true
}

func (a *Release) Help() string {
	return "/release <id>             - drop an item in the room"
}

// moveItem is shared by Take and Release. The command is always considered
// handled; failures are reported to the player or logged.
func moveItem(ctx context.Context, r *room.Room, p *room.Player, arg string, loc room.ItemLocation, success, refused string) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		r.SendMessage(ctx, p, msgBadItem)
		return
	}
	err = r.MoveItem(ctx, p, id, loc)
	switch {
	case err == nil:
		r.SendAll(ctx, success)
	case errors.Is(err, room.ErrCantMoveItem):
		r.SendMessage(ctx, p, refused)
	default:
		log.Printf("WARNING: %s moving item %d: %v", p.Name, id, err)
	}
}
