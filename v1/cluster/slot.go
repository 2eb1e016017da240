package cluster

import "bytes"

// SlotCount is the fixed number of hash slots in a Redis Cluster.
const SlotCount = 16384

// crc16tab is the CRC16-CCITT (XMODEM) lookup table used by Redis Cluster,
// generated from polynomial 0x1021. The table-driven form matches the
// reference implementation bit for bit.
var crc16tab = func() [256]uint16 {
	var tab [256]uint16
	for i := range tab {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
		tab[i] = crc
	}
	return tab
}()

func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = crc<<8 ^ crc16tab[byte(crc>>8)^b]
	}
	return crc
}

// hashTag extracts the hash-tag portion of a key, per the Redis Cluster
// specification: if the key contains a '{' followed by a later '}' with at
// least one byte between them, only the bytes between the first '{' and the
// first following '}' participate in hashing. Otherwise the whole key is
// returned.
//
// This makes keys like "{user1000}.following" and "{user1000}.followers"
// hash to the same slot.
func hashTag(key []byte) []byte {
	open := bytes.IndexByte(key, '{')
	if open == -1 {
		return key
	}
	end := bytes.IndexByte(key[open+1:], '}')
	if end <= 0 {
		// No closing brace, or empty tag "{}": hash the whole key.
		return key
	}
	return key[open+1 : open+1+end]
}

// Slot returns the hash slot in [0, SlotCount) that the given key maps to.
//
// The result reproduces the Redis Cluster reference algorithm exactly
// (CRC16 of the key, or of its hash tag when one is present, modulo 16384).
// The server remains the final arbiter of slot ownership; this value is
// used to pick the node a command is routed to.
func Slot(key []byte) int {
	return int(crc16(hashTag(key))) % SlotCount
}

// SlotForString is a convenience form of Slot for string keys.
func SlotForString(key string) int {
	return Slot([]byte(key))
}

// SameSlot reports whether every given key maps to the same hash slot,
// accounting for hash tags. Multi-key commands can only be sent as a single
// server-side call when this holds; otherwise they must be rejected or
// emulated client-side.
//
// SameSlot of zero keys is true.
func SameSlot(keys ...[]byte) bool {
	if len(keys) < 2 {
		return true
	}
	first := Slot(keys[0])
	for _, key := range keys[1:] {
		if Slot(key) != first {
			return false
		}
	}
	return true
}
