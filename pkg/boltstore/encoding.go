package boltstore

import (
	"bytes"
	"encoding/gob"

	"github.com/crystal-mush/gomaze/pkg/maze"
)

// encodeRoom serializes a room record to bytes using gob.
func encodeRoom(rec maze.RoomRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeRoom deserializes bytes back into a room record.
func decodeRoom(data []byte) (maze.RoomRecord, error) {
	var rec maze.RoomRecord
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec)
	return rec, err
}

// encodeItem serializes an item record to bytes using gob.
func encodeItem(it ItemRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(it); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeItem deserializes bytes back into an item record.
func decodeItem(data []byte) (ItemRecord, error) {
	var it ItemRecord
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&it)
	return it, err
}
