package imap

import (
	"github.com/solra/onizd/mat"
	"github.com/solra/onizd/point"
)

// Per-tile capacity bounds.
const (
	MaxStoredEnergy  = 10_000
	MaxStoredPackets = 10
	MaxStoredObjects = 3
	MaxRegistrations = 7
)

type registration struct {
	ClientID uint64
	Name     string
}

// tile is the per-point bundle of energy pool, packet queues, object
// queue, and registrations. A tile with zero energy, empty queues, and no
// registrations is equivalent to an absent tile. Unregister and
// UnregisterAll prune such tiles; SubJoules, PopPacket and PopObject leave
// an emptied tile in place.
type tile struct {
	energy        uint64
	gasQueue      []mat.Packet
	liquidQueue   []mat.Packet
	objectQueue   [][]byte
	registrations []registration
}

func (t *tile) empty() bool {
	return t.energy == 0 &&
		len(t.gasQueue) == 0 &&
		len(t.liquidQueue) == 0 &&
		len(t.objectQueue) == 0 &&
		len(t.registrations) == 0
}

func (t *tile) queueFor(phase point.Phase) *[]mat.Packet {
	if phase == point.Liquid {
		return &t.liquidQueue
	}
	return &t.gasQueue
}
