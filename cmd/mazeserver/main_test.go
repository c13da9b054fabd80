package main

import (
	"path/filepath"
	"testing"

	"github.com/crystal-mush/gomaze/pkg/boltstore"
	"github.com/crystal-mush/gomaze/pkg/grid"
	"github.com/crystal-mush/gomaze/pkg/maze"
	"github.com/crystal-mush/gomaze/pkg/room"
)

func TestLoadMazeDiscardsHeaderlessRooms(t *testing.T) {
	store, err := boltstore.Open(filepath.Join(t.TempDir(), "maze.bolt"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	store.RoomCreated(maze.RoomRecord{Number: 1, Flavor: room.Dungeon, Description: "Orphan."})
	if !store.HasData() {
		t.Fatal("store has no rooms after RoomCreated")
	}

	topo, err := grid.New(3, 3)
	if err != nil {
		t.Fatal(err)
	}
	// The maze is only touched when a matching header exists.
	if items := loadMaze(store, nil, "maze-a", topo); items != nil {
		t.Errorf("loadMaze = %+v, want nil", items)
	}
	if store.HasData() {
		t.Error("headerless rooms were kept")
	}
}

func TestLoadMazeFreshStore(t *testing.T) {
	store, err := boltstore.Open(filepath.Join(t.TempDir(), "maze.bolt"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	topo, _ := grid.New(3, 3)
	if items := loadMaze(store, nil, "maze-a", topo); items != nil {
		t.Errorf("loadMaze = %+v, want nil", items)
	}
}
