package model

import (
	"crypto/rand"
	"fmt"
)

// Room codes are short identifiers students type by hand, so the alphabet
// drops characters that are easy to misread: 0/O, 1/I/L.
const (
	roomCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	RoomCodeLength   = 6
)

// NewRoomCode generates a random candidate room code. Uniqueness is NOT
// guaranteed here; the database unique constraint on rooms.room_code is the
// source of truth and callers retry on conflict.
func NewRoomCode() (string, error) {
	buf := make([]byte, RoomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return string(buf), nil
}

// ValidRoomCode reports whether s is shaped like a room code. Used to reject
// junk before hitting the store.
func ValidRoomCode(s string) bool {
	if len(s) != RoomCodeLength {
		return false
	}
	for _, c := range s {
		ok := false
		for _, a := range roomCodeAlphabet {
			if c == a {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
