package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/crystal-mush/gomaze/pkg/grid"
	"gopkg.in/yaml.v3"
)

// ErrConfig is wrapped by every configuration validation failure.
var ErrConfig = errors.New("invalid configuration")

// ItemConf places one item in the maze at startup.
type ItemConf struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
	Room int    `yaml:"room"`
}

// GameConf holds maze-level configuration parameters.
type GameConf struct {
	// --- Identity ---
	MazeName string `yaml:"maze_name"`
	Owner    string `yaml:"owner"` // identity rooms are addressed by; defaults to host:port
	Host     string `yaml:"host"`  // listener bind address (empty = all interfaces)
	Port     int    `yaml:"port"`

	// --- Layout ---
	Width            int        `yaml:"width"`
	Height           int        `yaml:"height"`
	Descriptions     []string   `yaml:"descriptions"`
	DescriptionsFile string     `yaml:"descriptions_file"` // blank-line separated, hot-reloaded
	MainHall         bool       `yaml:"main_hall"`         // room 0 also hosts the guessing game
	WallDir          string     `yaml:"wall_dir"`
	ScrollDelayMS    int        `yaml:"scroll_delay_ms"`
	Items            []ItemConf `yaml:"items"`

	// --- Sessions ---
	IdleTimeout  int `yaml:"idle_timeout"`   // seconds, 0 = never
	OOBTimeoutMS int `yaml:"oob_timeout_ms"` // telnet GMCP/MSDP/MSSP negotiation wait, 0 = off

	// --- Persistence ---
	BoltPath            string `yaml:"bolt_path"`
	TranscriptDB        string `yaml:"transcript_db"` // empty disables the transcript
	TranscriptLimit     int    `yaml:"transcript_limit"`
	TranscriptRetention int    `yaml:"transcript_retention"` // seconds

	// --- Web ---
	WebEnabled     bool     `yaml:"web_enabled"`
	WebPort        int      `yaml:"web_port"`
	WebCORSOrigins []string `yaml:"web_cors_origins"`
	WebRateLimit   int      `yaml:"web_rate_limit"` // requests per minute per IP
}

// DefaultGameConf returns a GameConf with working defaults.
func DefaultGameConf() *GameConf {
	return &GameConf{
		MazeName: "gomaze",
		Port:     6250,
		Width:    10,
		Height:   10,
		Descriptions: []string{
			"You are in a dark, damp dungeon. Water drips from the ceiling.",
			"A narrow stone corridor stretches out before you.",
			"Cobwebs hang thick across this dusty chamber.",
			"The floor here is littered with old bones.",
		},
		MainHall:            true,
		WallDir:             "walls",
		ScrollDelayMS:       1250,
		IdleTimeout:         3600,
		OOBTimeoutMS:        1000,
		BoltPath:            "maze.bolt",
		TranscriptLimit:     DefaultTranscriptLimit,
		TranscriptRetention: 86400,
		WebEnabled:          true,
		WebPort:             8080,
		WebRateLimit:        60,
	}
}

// LoadGameConf loads a YAML config file over the defaults. Relative paths in
// the file are resolved against the file's directory.
func LoadGameConf(path string) (*GameConf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	gc := DefaultGameConf()
	if err := yaml.Unmarshal(data, gc); err != nil {
		return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	for _, p := range []*string{&gc.DescriptionsFile, &gc.WallDir, &gc.BoltPath, &gc.TranscriptDB} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(baseDir, *p)
		}
	}
	return gc, nil
}

// OwnerID returns the identity rooms are addressed by.
func (gc *GameConf) OwnerID() string {
	if gc.Owner != "" {
		return gc.Owner
	}
	host := gc.Host
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s:%d", host, gc.Port)
}

// ScrollDelay returns the pause between scrolled lines.
func (gc *GameConf) ScrollDelay() time.Duration {
	return time.Duration(gc.ScrollDelayMS) * time.Millisecond
}

// Validate checks the configuration for values the maze cannot start with.
func (gc *GameConf) Validate() error {
	if gc.Width <= 0 || gc.Height <= 0 {
		return fmt.Errorf("%w: maze must be at least 1x1, got %dx%d", ErrConfig, gc.Width, gc.Height)
	}
	if gc.Port <= 0 || gc.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrConfig, gc.Port)
	}
	if gc.WebEnabled && (gc.WebPort <= 0 || gc.WebPort > 65535) {
		return fmt.Errorf("%w: web_port %d out of range", ErrConfig, gc.WebPort)
	}
	if gc.ScrollDelayMS < 0 {
		return fmt.Errorf("%w: scroll_delay_ms must not be negative", ErrConfig)
	}
	if gc.OOBTimeoutMS < 0 {
		return fmt.Errorf("%w: oob_timeout_ms must not be negative", ErrConfig)
	}
	if len(gc.Descriptions) == 0 && gc.DescriptionsFile == "" {
		return fmt.Errorf("%w: no room descriptions", ErrConfig)
	}
	topo, err := grid.New(gc.Width, gc.Height)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	seen := make(map[int]bool, len(gc.Items))
	for _, it := range gc.Items {
		if seen[it.ID] {
			return fmt.Errorf("%w: duplicate item id %d", ErrConfig, it.ID)
		}
		seen[it.ID] = true
		if it.Name == "" {
			return fmt.Errorf("%w: item %d has no name", ErrConfig, it.ID)
		}
		if !topo.Contains(it.Room) {
			return fmt.Errorf("%w: item %d placed in room %d outside the maze (%d..%d)",
				ErrConfig, it.ID, it.Room, topo.Min(), topo.Max())
		}
	}
	return nil
}
