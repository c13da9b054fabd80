package boltstore

import (
	"encoding/binary"
)

// Bucket name constants for bbolt storage.
var (
	bucketMeta  = []byte("meta")
	bucketRooms = []byte("rooms")
	bucketItems = []byte("items")
)

// Meta key constants.
var (
	keyOwner   = []byte("owner")
	keyWidth   = []byte("width")
	keyHeight  = []byte("height")
	keySavedAt = []byte("savedat")
)

// roomToKey converts a room number to an 8-byte big-endian key.
// We offset by a large constant so negative room numbers sort correctly.
func roomToKey(n int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(int64(n)+1<<32))
	return buf
}

// keyToRoom converts an 8-byte big-endian key back to a room number.
func keyToRoom(b []byte) int {
	v := binary.BigEndian.Uint64(b)
	return int(int64(v) - 1<<32)
}

// itemToKey encodes an item ID with the sign bit flipped, so byte order
// matches numeric order for negative IDs too.
func itemToKey(id int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(int64(id))^1<<63)
	return buf
}

func keyToItem(b []byte) int {
	return int(int64(binary.BigEndian.Uint64(b) ^ 1<<63))
}

// intToKey converts an int to an 8-byte big-endian value.
func intToKey(n int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

// keyToInt converts an 8-byte big-endian key back to an int.
func keyToInt(b []byte) int {
	return int(binary.BigEndian.Uint64(b))
}
