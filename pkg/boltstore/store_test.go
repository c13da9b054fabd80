package boltstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/crystal-mush/gomaze/pkg/maze"
	"github.com/crystal-mush/gomaze/pkg/room"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "maze.bolt"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoomKeysSortNegativeFirst(t *testing.T) {
	for _, n := range []int{-100, -1, 0, 1, 100} {
		if got := keyToRoom(roomToKey(n)); got != n {
			t.Errorf("keyToRoom(roomToKey(%d)) = %d", n, got)
		}
	}
	if string(roomToKey(-1)) >= string(roomToKey(0)) {
		t.Error("room -1 should sort before room 0")
	}
}

func TestItemsLoadInIDOrder(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []int{5, -7, 0, -1} {
		if err := s.PutItem(ItemRecord{ID: id, Name: "thing", Room: 1}); err != nil {
			t.Fatal(err)
		}
	}
	items, err := s.LoadItems()
	if err != nil {
		t.Fatal(err)
	}
	want := []int{-7, -1, 0, 5}
	if len(items) != len(want) {
		t.Fatalf("LoadItems returned %d items", len(items))
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("item %d has ID %d, want %d", i, items[i].ID, id)
		}
	}
	if got := keyToItem(itemToKey(-42)); got != -42 {
		t.Errorf("keyToItem(itemToKey(-42)) = %d", got)
	}
}

func TestRoomsWriteThrough(t *testing.T) {
	s := openTestStore(t)
	if s.HasData() {
		t.Fatal("fresh store reports data")
	}
	s.RoomCreated(maze.RoomRecord{Number: 2, Flavor: room.Dungeon, Description: "Cold."})
	s.RoomCreated(maze.RoomRecord{Number: -3, Flavor: room.Dungeon, Description: "Wet."})

	recs, err := s.LoadRooms()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Number != -3 || recs[1].Description != "Cold." {
		t.Errorf("LoadRooms = %+v", recs)
	}
	if !s.HasData() {
		t.Error("HasData = false after writes")
	}
}

func TestSnapshotAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maze.bolt")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	meta := Meta{Owner: "here", Width: 3, Height: 3, SavedAt: time.Unix(1700000000, 0)}
	rooms := []maze.RoomRecord{{Number: 0, Flavor: room.MessageWall}}
	items := []ItemRecord{{ID: 1, Name: "lamp", Room: 0}, {ID: 2, Name: "key", Room: 0, Holder: "alice"}}
	if err := s.SaveSnapshot(meta, rooms, items); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got, ok, err := s.LoadMeta()
	if err != nil || !ok {
		t.Fatalf("LoadMeta = %v, %v", ok, err)
	}
	if got.Owner != "here" || got.Width != 3 || !got.SavedAt.Equal(meta.SavedAt) {
		t.Errorf("meta = %+v", got)
	}
	its, err := s.LoadItems()
	if err != nil {
		t.Fatal(err)
	}
	if len(its) != 2 || its[1].Holder != "alice" {
		t.Errorf("items = %+v", its)
	}

	if err := s.PutItem(ItemRecord{ID: 2, Name: "key", Room: 4}); err != nil {
		t.Fatal(err)
	}
	its, _ = s.LoadItems()
	if its[1].Room != 4 || its[1].Holder != "" {
		t.Errorf("item 2 after update = %+v", its[1])
	}
}

func TestLoadMetaFresh(t *testing.T) {
	s := openTestStore(t)
	if _, ok, err := s.LoadMeta(); ok || err != nil {
		t.Errorf("LoadMeta on fresh db = %v, %v", ok, err)
	}
}

func TestBackup(t *testing.T) {
	s := openTestStore(t)
	s.RoomCreated(maze.RoomRecord{Number: 1})
	dst := filepath.Join(t.TempDir(), "backup.bolt")
	if err := s.Backup(dst); err != nil {
		t.Fatal(err)
	}
	b, err := Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if !b.HasData() {
		t.Error("backup has no rooms")
	}
}

func TestReset(t *testing.T) {
	s := openTestStore(t)
	s.PutMeta(Meta{Owner: "here", Width: 3, Height: 3})
	s.RoomCreated(maze.RoomRecord{Number: 1, Flavor: room.Dungeon})
	if err := s.PutItem(ItemRecord{ID: 1, Name: "lamp"}); err != nil {
		t.Fatal(err)
	}

	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if s.HasData() {
		t.Error("rooms survived Reset")
	}
	if items, _ := s.LoadItems(); len(items) != 0 {
		t.Errorf("items survived Reset: %v", items)
	}
	if m, ok, _ := s.LoadMeta(); !ok || m.Owner != "here" {
		t.Errorf("meta after Reset = %+v, %v", m, ok)
	}
}
