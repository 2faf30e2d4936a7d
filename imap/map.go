// Package imap implements the InterlayerMap, the shared state store at the
// heart of the rendezvous server: capacity-bounded energy pools, bounded
// material-packet queues with physically-correct merging, opaque-object
// FIFOs, per-coordinate endpoint registries, and their registration
// fan-out. Grounded on the single-writer, mutex-guarded aggregate-root
// convention core/state/statedb.go uses for its StateDB, and the peer
// registry convention in probe/peer.go ("lock sync.RWMutex // Mutex
// protecting the internal fields").
package imap

import (
	"sync"

	"github.com/google/uuid"
	"github.com/solra/onizd/mat"
	"github.com/solra/onizd/point"
)

// RegistrationEvent is posted to every live subscriber whenever a
// registration is added (Polarity true) or removed (Polarity false).
type RegistrationEvent struct {
	Polarity bool
	Point    point.Point
	Name     string
}

// Map is the InterlayerMap aggregate root. All exported operations take
// the single exclusive lock for their entire body and never suspend while
// holding it, so every operation is atomic and serialized with respect to
// all others.
type Map struct {
	mu    sync.Mutex
	tiles map[point.Point]*tile
	subs  map[uuid.UUID]*subscriber
}

// New returns an empty InterlayerMap ready for use.
func New() *Map {
	return &Map{
		tiles: make(map[point.Point]*tile),
		subs:  make(map[uuid.UUID]*subscriber),
	}
}

func (m *Map) tileAt(p point.Point, create bool) *tile {
	t, ok := m.tiles[p]
	if !ok {
		if !create {
			return nil
		}
		t = &tile{}
		m.tiles[p] = t
	}
	return t
}

// pruneLocked removes p's tile entry if it has decayed to the
// fully-empty state. Callers must already hold mu.
func (m *Map) pruneLocked(p point.Point) {
	if t, ok := m.tiles[p]; ok && t.empty() {
		delete(m.tiles, p)
	}
}

// AddJoules adds amount joules to p's energy pool, capping at
// MaxStoredEnergy, and returns the spare (overflow) amount that did not
// fit.
func (m *Map) AddJoules(p point.Point, amount uint64) (spare uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tileAt(p, true)
	// Compare against the remaining room instead of summing, so a
	// client-supplied amount near 2^64 cannot wrap around.
	room := MaxStoredEnergy - t.energy
	if amount <= room {
		t.energy += amount
		return 0
	}
	t.energy = MaxStoredEnergy
	return amount - room
}

// SubJoules removes up to max joules from p's energy pool and returns how
// much was actually taken (0 if the tile is absent). Never prunes.
func (m *Map) SubJoules(p point.Point, max uint64) (taken uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tileAt(p, false)
	if t == nil {
		return 0
	}
	taken = t.energy
	if taken > max {
		taken = max
	}
	t.energy -= taken
	return taken
}

// AddPacket inserts packet into p's queue for phase, merging into an
// existing non-full packet of the same element where possible (see
// mat.Merge). It reports whether the packet was accepted; a queue at
// MaxStoredPackets with no mergeable slot rejects the request outright,
// leaving the queue unchanged.
func (m *Map) AddPacket(p point.Point, packet mat.Packet, phase point.Phase) (accepted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tileAt(p, true)
	q := t.queueFor(phase)

	for i := range *q {
		existing := (*q)[i]
		if existing.Mass >= phase.MaxStackSize() {
			continue
		}
		head, tail, ok := mat.Merge(existing, packet, phase)
		if !ok {
			continue
		}
		if tail != nil && len(*q) >= MaxStoredPackets {
			// Merging would overflow the queue with the leftover tail;
			// the whole request is rejected, queue left untouched.
			return false
		}
		(*q)[i] = head
		if tail != nil {
			*q = append(*q, *tail)
		}
		return true
	}
	if len(*q) >= MaxStoredPackets {
		return false
	}
	*q = append(*q, packet)
	return true
}

// PopPacket removes and returns the head of p's queue for phase, or
// ok=false if empty/absent. Never prunes.
func (m *Map) PopPacket(p point.Point, phase point.Phase) (packet mat.Packet, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tileAt(p, false)
	if t == nil {
		return mat.Packet{}, false
	}
	q := t.queueFor(phase)
	if len(*q) == 0 {
		return mat.Packet{}, false
	}
	packet = (*q)[0]
	*q = (*q)[1:]
	return packet, true
}

// AddObject pushes blob onto p's object queue, rejecting if already at
// MaxStoredObjects. Size limits on blob are enforced by the caller.
func (m *Map) AddObject(p point.Point, blob []byte) (accepted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tileAt(p, true)
	if len(t.objectQueue) >= MaxStoredObjects {
		return false
	}
	t.objectQueue = append(t.objectQueue, blob)
	return true
}

// PopObject removes and returns the head of p's object queue, or
// ok=false if empty/absent.
func (m *Map) PopObject(p point.Point) (blob []byte, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tileAt(p, false)
	if t == nil || len(t.objectQueue) == 0 {
		return nil, false
	}
	blob = t.objectQueue[0]
	t.objectQueue = t.objectQueue[1:]
	return blob, true
}

// Register adds a (clientID, name) endpoint registration at p, rejecting
// if this clientID already holds MaxRegistrations entries there. On
// success it fans the event out to every live subscriber.
func (m *Map) Register(p point.Point, clientID uint64, name string) (accepted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tileAt(p, true)
	count := 0
	for _, r := range t.registrations {
		if r.ClientID == clientID {
			count++
		}
	}
	if count >= MaxRegistrations {
		return false
	}
	t.registrations = append(t.registrations, registration{ClientID: clientID, Name: name})
	m.broadcastLocked(RegistrationEvent{Polarity: true, Point: p, Name: name})
	return true
}

// Unregister removes the first matching (clientID, name) registration at
// p (see DESIGN.md for why "first match" rather than "every match" is
// behaviorally equivalent here), emitting one unregister event per
// removal and pruning the point if it decays to fully empty.
func (m *Map) Unregister(p point.Point, clientID uint64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tileAt(p, false)
	if t == nil {
		return
	}
	for i, r := range t.registrations {
		if r.ClientID == clientID && r.Name == name {
			t.registrations = append(t.registrations[:i], t.registrations[i+1:]...)
			m.broadcastLocked(RegistrationEvent{Polarity: false, Point: p, Name: name})
			break
		}
	}
	m.pruneLocked(p)
}

// UnregisterAll removes every registration belonging to clientID, across
// every point, emitting one unregister event per removal and pruning any
// point that decays to fully empty. Called exactly once as a connection
// task exits so registrations never outlive their owning connection.
func (m *Map) UnregisterAll(clientID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for p, t := range m.tiles {
		kept := t.registrations[:0]
		for _, r := range t.registrations {
			if r.ClientID == clientID {
				m.broadcastLocked(RegistrationEvent{Polarity: false, Point: p, Name: r.Name})
				continue
			}
			kept = append(kept, r)
		}
		t.registrations = kept
		m.pruneLocked(p)
	}
}

// Subscribe creates a new fan-out subscriber, synchronously enqueuing a
// Polarity-true event for every currently-registered endpoint before
// returning, so the initial burst can never reorder with a live event
// this same subscriber will go on to receive. The subscriber's backlog is
// unbounded: a slow-but-alive reader is queued for, never dropped;
// Unsubscribe is the only thing that ever removes a subscriber.
func (m *Map) Subscribe() (id uuid.UUID, ch <-chan RegistrationEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id = uuid.New()
	sub := newSubscriber()
	for p, t := range m.tiles {
		for _, r := range t.registrations {
			sub.push(RegistrationEvent{Polarity: true, Point: p, Name: r.Name})
		}
	}
	m.subs[id] = sub
	return id, sub.out
}

// Unsubscribe drops a subscriber created by Subscribe. Safe to call more
// than once.
func (m *Map) Unsubscribe(id uuid.UUID) {
	m.mu.Lock()
	sub, ok := m.subs[id]
	if ok {
		delete(m.subs, id)
	}
	m.mu.Unlock()
	if ok {
		sub.close()
	}
}

// broadcastLocked posts ev to every live subscriber's unbounded backlog.
// push never blocks, so this never suspends while m.mu is held.
func (m *Map) broadcastLocked(ev RegistrationEvent) {
	for _, sub := range m.subs {
		sub.push(ev)
	}
}

// Clear empties all tiles. It does not touch subscribers.
func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiles = make(map[point.Point]*tile)
}

// Stats is a small introspection snapshot used by the operator-facing
// shutdown summary (onizd -v). It is not part of the wire protocol.
type Stats struct {
	Tiles         int
	TotalEnergy   uint64
	QueuedPackets int
	QueuedObjects int
	Registrations int
}

// Stats gathers a point-in-time summary of the map's occupancy.
func (m *Map) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s Stats
	s.Tiles = len(m.tiles)
	for _, t := range m.tiles {
		s.TotalEnergy += t.energy
		s.QueuedPackets += len(t.gasQueue) + len(t.liquidQueue)
		s.QueuedObjects += len(t.objectQueue)
		s.Registrations += len(t.registrations)
	}
	return s
}
