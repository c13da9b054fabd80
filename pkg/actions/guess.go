package actions

import (
	"context"
	"log"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/crystal-mush/gomaze/pkg/room"
)

var (
	playPattern  = regexp.MustCompile(`^play\s+guess\s+the\s+number$`)
	guessPattern = regexp.MustCompile(`^guess\s+(.*)$`)
)

// GuessTheNumber is a single-player game: one player at a time per room
// tries to find a secret number in [0, 100).
type GuessTheNumber struct {
	room *room.Room
	intn func(n int) int

	mu     sync.Mutex
	player *room.Player // nil when idle
	secret int
}

func NewGuessTheNumber(r *room.Room) *GuessTheNumber {
	return &GuessTheNumber{room: r, intn: rand.IntN}
}

func (g *GuessTheNumber) Process(ctx context.Context, p *room.Player, cmd string) bool {
	var reply string
	switch {
	case playPattern.MatchString(cmd):
		reply = g.start(p)
	default:
		m := guessPattern.FindStringSubmatch(cmd)
		if m == nil {
			return false
		}
		reply = g.guess(p, strings.TrimSpace(m[1]))
	}
	g.room.SendMessage(ctx, p, reply)
	return true
}

func (g *GuessTheNumber) start(p *room.Player) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.player != nil {
		return "Sorry, someone else is already playing!"
	}
	g.player = p
	g.secret = g.intn(100)
	log.Printf("room %d: gtn: player %s started game", g.room.Number(), p.Name)
	return "Welcome to guess the number! Type /guess followed by your first guess"
}

func (g *GuessTheNumber) guess(p *room.Player, s string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.player == nil:
		return "You're not playing a game!"
	case g.player.ID != p.ID:
		log.Printf("room %d: gtn: locked %s out of existing game", g.room.Number(), p.Name)
		return g.player.Name + " is already playing!"
	}

	n, err := strconv.Atoi(s)
	switch {
	case err != nil:
		return "Not a number! " + s
	case n > g.secret:
		return "You guessed too high"
	case n < g.secret:
		return "You guessed too low"
	}
	log.Printf("room %d: gtn: player %s finished game", g.room.Number(), p.Name)
	g.player = nil
	return "Well done! You got it right. End of game."
}

// PlayerLeft frees the game if p was playing.
func (g *GuessTheNumber) PlayerLeft(_ context.Context, p *room.Player) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.player != nil && g.player.ID == p.ID {
		log.Printf("room %d: gtn: player %s left room", g.room.Number(), p.Name)
		g.player = nil
	}
}

// Playing returns the current player, or nil when no game is running.
func (g *GuessTheNumber) Playing() *room.Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.player
}

func (g *GuessTheNumber) Help() string {
	return "/play guess the number      - play a round of guess the number!"
}
