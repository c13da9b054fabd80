// Package boltstore persists maze state (rooms built so far and item
// locations) in a bbolt database so a restarted server finds its maze again.
package boltstore

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/crystal-mush/gomaze/pkg/maze"
	bbolt "go.etcd.io/bbolt"
)

// ItemRecord is the persisted form of an item. Room is the room the item
// rests in, or the room its holder was last in; Holder is the display name
// of the player carrying it, empty when it rests in the room.
type ItemRecord struct {
	ID     int
	Name   string
	Room   int
	Holder string
}

// Meta describes the maze a database was written for.
type Meta struct {
	Owner   string
	Width   int
	Height  int
	SavedAt time.Time
}

// Store wraps a bbolt database.
type Store struct {
	bolt *bbolt.DB
}

// Open opens or creates a bbolt database file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketRooms, bucketItems} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}

	return &Store{bolt: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

// PutRoom persists a single room (write-through).
func (s *Store) PutRoom(rec maze.RoomRecord) error {
	data, err := encodeRoom(rec)
	if err != nil {
		return fmt.Errorf("boltstore: encode room %d: %w", rec.Number, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRooms).Put(roomToKey(rec.Number), data)
	})
}

// RoomCreated implements maze.Sink.
func (s *Store) RoomCreated(rec maze.RoomRecord) {
	if err := s.PutRoom(rec); err != nil {
		log.Printf("WARNING: boltstore: persisting room %d: %v", rec.Number, err)
	}
}

// PutItem persists a single item location (write-through).
func (s *Store) PutItem(it ItemRecord) error {
	data, err := encodeItem(it)
	if err != nil {
		return fmt.Errorf("boltstore: encode item %d: %w", it.ID, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketItems).Put(itemToKey(it.ID), data)
	})
}

// PutMeta records which maze the database belongs to.
func (s *Store) PutMeta(m Meta) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return putMeta(tx, m)
	})
}

func putMeta(tx *bbolt.Tx, m Meta) error {
	b := tx.Bucket(bucketMeta)
	if err := b.Put(keyOwner, []byte(m.Owner)); err != nil {
		return err
	}
	if err := b.Put(keyWidth, intToKey(m.Width)); err != nil {
		return err
	}
	if err := b.Put(keyHeight, intToKey(m.Height)); err != nil {
		return err
	}
	return b.Put(keySavedAt, intToKey(int(m.SavedAt.Unix())))
}

// LoadMeta returns the stored metadata; ok is false for a fresh database.
func (s *Store) LoadMeta() (m Meta, ok bool, err error) {
	err = s.bolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if v := b.Get(keyWidth); v != nil {
			m.Width = keyToInt(v)
			ok = true
		}
		if v := b.Get(keyHeight); v != nil {
			m.Height = keyToInt(v)
		}
		if v := b.Get(keyOwner); v != nil {
			m.Owner = string(v)
		}
		if v := b.Get(keySavedAt); v != nil {
			m.SavedAt = time.Unix(int64(keyToInt(v)), 0)
		}
		return nil
	})
	if err != nil {
		return Meta{}, false, fmt.Errorf("boltstore: load meta: %w", err)
	}
	return m, ok, nil
}

// LoadRooms reads every saved room in ascending room order.
func (s *Store) LoadRooms() ([]maze.RoomRecord, error) {
	var out []maze.RoomRecord
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRooms).ForEach(func(k, v []byte) error {
			rec, err := decodeRoom(v)
			if err != nil {
				return fmt.Errorf("decode room %d: %w", keyToRoom(k), err)
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: load rooms: %w", err)
	}
	return out, nil
}

// LoadItems reads every saved item in ascending ID order.
func (s *Store) LoadItems() ([]ItemRecord, error) {
	var out []ItemRecord
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketItems).ForEach(func(k, v []byte) error {
			it, err := decodeItem(v)
			if err != nil {
				return fmt.Errorf("decode item %d: %w", keyToItem(k), err)
			}
			out = append(out, it)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: load items: %w", err)
	}
	return out, nil
}

// SaveSnapshot writes rooms, items and metadata in a single transaction.
func (s *Store) SaveSnapshot(m Meta, rooms []maze.RoomRecord, items []ItemRecord) error {
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		rb := tx.Bucket(bucketRooms)
		for _, rec := range rooms {
			data, err := encodeRoom(rec)
			if err != nil {
				return fmt.Errorf("encode room %d: %w", rec.Number, err)
			}
			if err := rb.Put(roomToKey(rec.Number), data); err != nil {
				return err
			}
		}
		ib := tx.Bucket(bucketItems)
		for _, it := range items {
			data, err := encodeItem(it)
			if err != nil {
				return fmt.Errorf("encode item %d: %w", it.ID, err)
			}
			if err := ib.Put(itemToKey(it.ID), data); err != nil {
				return err
			}
		}
		return putMeta(tx, m)
	})
	if err != nil {
		return fmt.Errorf("boltstore: save snapshot: %w", err)
	}
	log.Printf("boltstore: saved %d rooms, %d items", len(rooms), len(items))
	return nil
}

// Reset empties the rooms and items buckets. Metadata is kept.
func (s *Store) Reset() error {
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketRooms, bucketItems} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("boltstore: reset: %w", err)
	}
	return nil
}

// HasData reports whether the database holds any rooms.
func (s *Store) HasData() bool {
	has := false
	s.bolt.View(func(tx *bbolt.Tx) error {
		k, _ := tx.Bucket(bucketRooms).Cursor().First()
		has = k != nil
		return nil
	})
	return has
}

// Backup creates a hot snapshot of the bbolt database using tx.WriteTo().
func (s *Store) Backup(path string) error {
	return s.bolt.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("boltstore: create backup %s: %w", path, err)
		}
		defer f.Close()
		if _, err := tx.WriteTo(f); err != nil {
			return fmt.Errorf("boltstore: write backup: %w", err)
		}
		log.Printf("boltstore: backup written to %s", path)
		return nil
	})
}
