package inpaint

import (
	"crypto/rand"
	"encoding/binary"
)

// RandomSeedValue asks for a fresh seed on every run.
const RandomSeedValue = -1

// RandomSeed returns a non-negative seed from crypto/rand. If the system
// source fails it returns DefaultSeed rather than panicking.
func RandomSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return DefaultSeed
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) &^ (1 << 63))
}

// ResolveSeed replaces RandomSeedValue with a random seed.
func ResolveSeed(seed int64) int64 {
	if seed == RandomSeedValue {
		return RandomSeed()
	}
	return seed
}
