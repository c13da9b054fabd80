package actions

import (
	"context"
	"regexp"

	"github.com/crystal-mush/gomaze/pkg/room"
)

var (
	dragonPattern   = regexp.MustCompile(`^show\s+me\s+a\s+dragon$`)
	starWarsPattern = regexp.MustCompile(`^how\s+does\s+star\s+wars\s+(start|begin)\??$`)
)

// Dragon shows the player a dragon.
type Dragon struct {
	room *room.Room
}

func NewDragon(r *room.Room) *Dragon { return &Dragon{room: r} }

func (a *Dragon) Process(ctx context.Context, p *room.Player, cmd string) bool {
	if !dragonPattern.MatchString(cmd) {
		return false
	}
	a.room.SendMessage(ctx, p, dragonArt...)
	return true
}

func (a *Dragon) Help() string {
	return "/show me a dragon         - best command evah"
}

// SciFi scrolls the opening crawl of Star Wars to the player.
type SciFi struct {
	room *room.Room
}

func NewSciFi(r *room.Room) *SciFi { return &SciFi{room: r} }

func (a *SciFi) Process(ctx context.Context, p *room.Player, cmd string) bool {
	if !starWarsPattern.MatchString(cmd) {
		return false
	}
	// The crawl outlives the command; it is cancelled when p leaves.
	a.room.ScrollMessage(context.WithoutCancel(ctx), p, starWarsCrawl)
	return true
}

func (a *SciFi) Help() string {
	return "/how does star wars begin? - refresh your memory"
}
