package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Reference vectors for the Redis Cluster hashing algorithm. The CRC16
// check value for "123456789" is 0x31C3 (12739), which is below 16384 and
// therefore also the slot.
func TestSlotReferenceVectors(t *testing.T) {
	assert.Equal(t, 12739, SlotForString("123456789"))
	assert.Equal(t, 12182, SlotForString("foo"))
	assert.Equal(t, 5061, SlotForString("bar"))
	assert.Equal(t, 0, SlotForString(""))
}

func TestSlotIsDeterministic(t *testing.T) {
	keys := []string{"foo", "bar", "user:1000", "{tag}suffix", ""}
	for _, k := range keys {
		first := SlotForString(k)
		for i := 0; i < 100; i++ {
			assert.Equal(t, first, SlotForString(k), "slot for %q changed between calls", k)
		}
		assert.GreaterOrEqual(t, first, 0)
		assert.Less(t, first, SlotCount)
	}
}

func TestSlotHashTags(t *testing.T) {
	// Keys sharing a hash tag route by the tag only, regardless of the
	// surrounding bytes.
	base := SlotForString("user1000")
	assert.Equal(t, base, SlotForString("{user1000}.following"))
	assert.Equal(t, base, SlotForString("{user1000}.followers"))
	assert.Equal(t, base, SlotForString("prefix{user1000}"))

	// Only the substring between the first '{' and the first following '}'
	// participates; these cases come from the cluster specification.
	assert.Equal(t, SlotForString("foo{}{bar}"), int(crc16([]byte("foo{}{bar}")))%SlotCount,
		"empty tag hashes the whole key")
	assert.Equal(t, SlotForString("{bar"), int(crc16([]byte("{bar")))%SlotCount,
		"unterminated tag hashes the whole key")
	assert.Equal(t, int(crc16([]byte("{bar")))%SlotCount, SlotForString("foo{{bar}}zap"),
		"first '{' to first '}' yields the tag \"{bar\"")
	assert.Equal(t, SlotForString("bar"), SlotForString("foo{bar}{zap}"),
		"only the first tag counts")
}

func TestSameSlot(t *testing.T) {
	assert.True(t, SameSlot(), "zero keys are trivially co-located")
	assert.True(t, SameSlot([]byte("solo")))

	assert.True(t, SameSlot([]byte("{t}a"), []byte("{t}b"), []byte("{t}c")))
	assert.True(t, SameSlot([]byte("user1000"), []byte("{user1000}.following")))

	// "foo" and "bar" land on different slots.
	assert.False(t, SameSlot([]byte("foo"), []byte("bar")))
	assert.False(t, SameSlot([]byte("{t}a"), []byte("{t}b"), []byte("foo")))
}
