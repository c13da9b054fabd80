package actions

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"regexp"

	"github.com/crystal-mush/gomaze/pkg/room"
	"github.com/crystal-mush/gomaze/pkg/wall"
)

var (
	writePattern = regexp.MustCompile(`^write\s+(.*)$`)
	readPattern  = regexp.MustCompile(`^read$`)
)

const msgEmptyWall = "There's nothing written on the wall"

// Wall reads and writes the persistent messages of a room.
type Wall struct {
	room *room.Room
	log  *wall.Log
}

// NewWall binds a Wall action to r, storing messages under dir.
func NewWall(r *room.Room, dir string) *Wall {
	return &Wall{room: r, log: wall.Open(dir, r.Owner(), r.Number())}
}

// WallIn returns a factory for Wall actions storing messages under dir.
func WallIn(dir string) room.ActionFactory {
	return func(r *room.Room) room.Action { return NewWall(r, dir) }
}

func (a *Wall) Process(ctx context.Context, p *room.Player, cmd string) bool {
	if m := writePattern.FindStringSubmatch(cmd); m != nil {
		if err := a.log.Append(p.Name, m[1]); err != nil {
			log.Printf("WARNING: room %d: failed to write message: %v", a.room.Number(), err)
			a.room.SendMessage(ctx, p, "Failed to write message!")
			return true
		}
		log.Printf("room %d: %s updated", a.room.Number(), a.log.Path())
		a.room.SendAll(ctx, p.Name+" wrote a message on the wall")
		return true
	}
	if readPattern.MatchString(cmd) {
		a.room.SendMessage(ctx, p, a.read()...)
		return true
	}
	return false
}

func (a *Wall) read() []string {
	lines, err := a.log.Lines()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("WARNING: room %d: %v", a.room.Number(), err)
		}
		return []string{msgEmptyWall}
	}
	if len(lines) == 0 {
		return []string{msgEmptyWall}
	}
	return lines
}

func (a *Wall) Help() string {
	return "/read OR /write <message>   - read and write messages on the wall"
}
