package server

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadGameConf(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "maze.yaml")
	data := `
maze_name: test maze
host: 127.0.0.1
port: 7000
width: 4
height: 2
main_hall: false
wall_dir: walls
descriptions_file: rooms.txt
scroll_delay_ms: 10
items:
  - {id: 1, name: lamp, room: 0}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	gc, err := LoadGameConf(path)
	if err != nil {
		t.Fatal(err)
	}
	if gc.MazeName != "test maze" || gc.Width != 4 || gc.Height != 2 || gc.MainHall {
		t.Errorf("loaded %+v", gc)
	}
	if gc.WallDir != filepath.Join(dir, "walls") || gc.DescriptionsFile != filepath.Join(dir, "rooms.txt") {
		t.Errorf("paths not resolved: %q %q", gc.WallDir, gc.DescriptionsFile)
	}
	if gc.BoltPath != filepath.Join(dir, "maze.bolt") {
		t.Errorf("default bolt path = %q", gc.BoltPath)
	}
	if gc.OwnerID() != "127.0.0.1:7000" {
		t.Errorf("OwnerID = %q", gc.OwnerID())
	}
	if gc.ScrollDelay() != 10*time.Millisecond {
		t.Errorf("ScrollDelay = %v", gc.ScrollDelay())
	}
	if len(gc.Descriptions) == 0 {
		t.Error("default descriptions lost")
	}
	if err := gc.Validate(); err != nil {
		t.Errorf("Validate = %v", err)
	}
}

func TestLoadGameConfErrors(t *testing.T) {
	if _, err := LoadGameConf(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file = %v", err)
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("width: [1"), 0o644)
	if _, err := LoadGameConf(path); err == nil {
		t.Error("bad YAML accepted")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*GameConf)
	}{
		{"zero width", func(gc *GameConf) { gc.Width = 0 }},
		{"negative height", func(gc *GameConf) { gc.Height = -1 }},
		{"bad port", func(gc *GameConf) { gc.Port = 70000 }},
		{"bad web port", func(gc *GameConf) { gc.WebPort = 0 }},
		{"negative scroll", func(gc *GameConf) { gc.ScrollDelayMS = -1 }},
		{"negative oob timeout", func(gc *GameConf) { gc.OOBTimeoutMS = -5 }},
		{"no descriptions", func(gc *GameConf) { gc.Descriptions = nil }},
		{"duplicate item", func(gc *GameConf) {
			gc.Items = []ItemConf{{ID: 1, Name: "a"}, {ID: 1, Name: "b"}}
		}},
		{"unnamed item", func(gc *GameConf) { gc.Items = []ItemConf{{ID: 1}} }},
		{"item past the last room", func(gc *GameConf) {
			gc.Width, gc.Height = 3, 3
			gc.Items = []ItemConf{{ID: 1, Name: "a", Room: 5}}
		}},
		{"item before the first room", func(gc *GameConf) {
			gc.Width, gc.Height = 3, 3
			gc.Items = []ItemConf{{ID: 1, Name: "a", Room: -5}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gc := DefaultGameConf()
			tt.modify(gc)
			if err := gc.Validate(); !errors.Is(err, ErrConfig) {
				t.Errorf("Validate = %v, want ErrConfig", err)
			}
		})
	}

	gc := DefaultGameConf()
	gc.Width, gc.Height = 3, 3
	gc.Items = []ItemConf{{ID: 1, Name: "lamp", Room: -4}, {ID: 2, Name: "key", Room: 4}}
	if err := gc.Validate(); err != nil {
		t.Errorf("items in rooms -4 and 4 of a 3x3 maze should validate: %v", err)
	}

	gc = DefaultGameConf()
	gc.Descriptions = nil
	gc.DescriptionsFile = "rooms.txt"
	if err := gc.Validate(); err != nil {
		t.Errorf("descriptions file alone should validate: %v", err)
	}
}
