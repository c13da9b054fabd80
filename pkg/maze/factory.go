package maze

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/crystal-mush/gomaze/pkg/actions"
	"github.com/crystal-mush/gomaze/pkg/grid"
	"github.com/crystal-mush/gomaze/pkg/room"
)

// ErrConfig marks a configuration the maze cannot be built from.
var ErrConfig = errors.New("maze: bad configuration")

// WallDescription opens the description of the message-wall rooms.
const WallDescription = "You are facing a large wall, covered in messages."

// FactoryConfig parameterizes room construction.
type FactoryConfig struct {
	Owner        string
	Topology     grid.Topology
	Transport    room.Transport
	Descriptions []string // pool dungeon descriptions are drawn from
	WallDir      string   // directory for message-wall logs
	MainHall     bool     // room 0 also hosts the guessing game
	ScrollDelay  time.Duration
}

// Factory builds the room for a given number: room 0 is the message wall,
// every other room is a dungeon with a random description.
type Factory struct {
	cfg  FactoryConfig
	intn func(n int) int

	mu    sync.RWMutex
	descs []string
}

// NewFactory validates cfg. An empty description pool is a configuration
// error.
func NewFactory(cfg FactoryConfig) (*Factory, error) {
	if cfg.Topology.Width <= 0 || cfg.Topology.Height <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrConfig, cfg.Topology.Width, cfg.Topology.Height)
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("%w: no transport", ErrConfig)
	}
	pool := cleanPool(cfg.Descriptions)
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: no room descriptions", ErrConfig)
	}
	return &Factory{cfg: cfg, intn: rand.IntN, descs: pool}, nil
}

// cleanPool collapses whitespace runs and drops blank entries.
func cleanPool(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.Join(strings.Fields(d), " ")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// SetDescriptions replaces the description pool. Rooms already built keep
// their description. An empty pool is rejected and the old one kept.
func (f *Factory) SetDescriptions(pool []string) error {
	pool = cleanPool(pool)
	if len(pool) == 0 {
		return fmt.Errorf("%w: no room descriptions", ErrConfig)
	}
	f.mu.Lock()
	f.descs = pool
	f.mu.Unlock()
	return nil
}

// Descriptions returns a copy of the current pool.
func (f *Factory) Descriptions() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.descs...)
}

func (f *Factory) randomDescription() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.descs[f.intn(len(f.descs))]
}

// Create builds room n.
func (f *Factory) Create(n int) *room.Room {
	if n == 0 {
		flavor := room.MessageWall
		if f.cfg.MainHall {
			flavor = room.MainHall
		}
		return f.build(n, flavor, WallDescription)
	}
	return f.build(n, room.Dungeon, f.randomDescription())
}

// Rebuild recreates a room from a saved record.
func (f *Factory) Rebuild(rec RoomRecord) *room.Room {
	flavor := rec.Flavor
	switch {
	case rec.Number == 0 && f.cfg.MainHall:
		flavor = room.MainHall
	case rec.Number == 0:
		flavor = room.MessageWall
	case flavor == "":
		flavor = room.Dungeon
	}
	desc := rec.Description
	if desc == "" {
		desc = f.randomDescription()
	}
	return f.build(rec.Number, flavor, desc)
}

func (f *Factory) build(n int, flavor room.Flavor, desc string) *room.Room {
	acts := actions.Defaults()
	switch flavor {
	case room.MainHall:
		acts = append(acts, actions.MainHallSet(f.cfg.WallDir)...)
	case room.MessageWall:
		acts = append(acts, actions.MessageWallSet(f.cfg.WallDir)...)
	default:
		acts = append(acts, actions.DungeonSet()...)
	}
	return room.New(room.Config{
		Number:      n,
		Owner:       f.cfg.Owner,
		Topology:    f.cfg.Topology,
		Transport:   f.cfg.Transport,
		Flavor:      flavor,
		Description: desc,
		Actions:     acts,
		ScrollDelay: f.cfg.ScrollDelay,
	})
}
