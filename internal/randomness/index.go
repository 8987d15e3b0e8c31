package randomness

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"
)

const domainIndex = "vaxsim/index/v1"

// probeLimit bounds collision resolution. An entity whose key cannot be
// placed within this many salted probes exhausts the key space.
const probeLimit = 64

// ErrKeySpaceExhausted reports that the configured randomness key space
// cannot accommodate another entity. The run must abort rather than reuse a
// key and silently correlate two entities' draws.
type ErrKeySpaceExhausted struct {
	Capacity uint64
	Used     uint64
}

func (e *ErrKeySpaceExhausted) Error() string {
	return fmt.Sprintf("randomness key space exhausted (capacity=%d, used=%d)", e.Capacity, e.Used)
}

// IndexMap assigns each entity a stable slot in a bounded key space.
//
// The slot is derived from a fixed key tuple (entrance time, creation
// ordinal), so memory use is independent of run length: the map only tracks
// which slots are occupied, never per-entity generator state. Collisions are
// resolved by salted re-hashing; beyond probeLimit probes, or when the space
// is full, assignment fails fast.
type IndexMap struct {
	capacity uint64
	used     map[uint64]struct{}
}

// NewIndexMap creates an index over a key space of the given capacity.
func NewIndexMap(capacity uint64) (*IndexMap, error) {
	if capacity == 0 {
		return nil, fmt.Errorf("index map capacity must be positive")
	}
	return &IndexMap{
		capacity: capacity,
		used:     make(map[uint64]struct{}),
	}, nil
}

// Capacity returns the configured key space size.
func (m *IndexMap) Capacity() uint64 {
	return m.capacity
}

// Used returns how many slots are currently occupied.
func (m *IndexMap) Used() uint64 {
	return uint64(len(m.used))
}

// Assign claims a free slot for an entity created at entranceTime with the
// given creation ordinal (its position among entities created at that time).
func (m *IndexMap) Assign(entranceTime time.Time, ordinal int64) (uint64, error) {
	if uint64(len(m.used)) >= m.capacity {
		return 0, &ErrKeySpaceExhausted{Capacity: m.capacity, Used: m.Used()}
	}

	for salt := uint64(0); salt < probeLimit; salt++ {
		slot := m.hashSlot(entranceTime, ordinal, salt)
		if _, taken := m.used[slot]; !taken {
			m.used[slot] = struct{}{}
			return slot, nil
		}
	}
	return 0, &ErrKeySpaceExhausted{Capacity: m.capacity, Used: m.Used()}
}

func (m *IndexMap) hashSlot(entranceTime time.Time, ordinal int64, salt uint64) uint64 {
	h := sha256.New()
	h.Write([]byte(domainIndex))
	h.Write([]byte{0x00})

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(entranceTime.Unix()))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(ordinal))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], salt)
	h.Write(buf[:])

	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8]) % m.capacity
}
