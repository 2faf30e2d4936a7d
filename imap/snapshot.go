package imap

import (
	"encoding/base64"
	"encoding/json"

	"github.com/solra/onizd/mat"
	"github.com/solra/onizd/point"
)

// tileSnapshot is the on-disk shape of a single tile: only non-empty
// fields are present.
type tileSnapshot struct {
	Energy        *uint64      `json:"energy,omitempty"`
	GasPackets    []mat.Packet `json:"gas_packets,omitempty"`
	LiquidPackets []mat.Packet `json:"liquid_packets,omitempty"`
	Objects       []string     `json:"objects,omitempty"`
}

// MarshalSnapshot serializes the map's observable state (energy pools,
// packet queues, and objects — registrations are session-local and never
// persisted) into the snapshot JSON format. Tiles with nothing to show
// are omitted entirely.
func (m *Map) MarshalSnapshot() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]tileSnapshot, len(m.tiles))
	for p, t := range m.tiles {
		if t.energy == 0 && len(t.gasQueue) == 0 && len(t.liquidQueue) == 0 && len(t.objectQueue) == 0 {
			continue
		}
		var snap tileSnapshot
		if t.energy > 0 {
			e := t.energy
			snap.Energy = &e
		}
		if len(t.gasQueue) > 0 {
			snap.GasPackets = append([]mat.Packet(nil), t.gasQueue...)
		}
		if len(t.liquidQueue) > 0 {
			snap.LiquidPackets = append([]mat.Packet(nil), t.liquidQueue...)
		}
		for _, blob := range t.objectQueue {
			snap.Objects = append(snap.Objects, base64.StdEncoding.EncodeToString(blob))
		}
		out[p.String()] = snap
	}
	return json.Marshal(out)
}

// LoadSnapshot parses the snapshot JSON format and
// applies it to the map via the normal bounded operations (AddJoules,
// AddPacket, AddObject), so every invariant they enforce (energy cap,
// queue caps) holds for loaded state too. Malformed keys or entries are
// skipped silently; only a non-object top level is a hard error, in which
// case the caller (package snapshot) must Clear() before continuing.
func (m *Map) LoadSnapshot(data []byte, maxObjectSize int) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return ErrNotObject
	}
	maxEncoded := (maxObjectSize + 2) * 4 / 3

	for key, rawTile := range raw {
		p, ok := point.Parse(key)
		if !ok {
			continue
		}
		var snap tileSnapshot
		if err := json.Unmarshal(rawTile, &snap); err != nil {
			continue
		}
		if snap.Energy != nil {
			m.AddJoules(p, *snap.Energy)
		}
		for _, pkt := range snap.GasPackets {
			m.AddPacket(p, pkt, point.Gas)
		}
		for _, pkt := range snap.LiquidPackets {
			m.AddPacket(p, pkt, point.Liquid)
		}
		for _, encoded := range snap.Objects {
			if len(encoded) > maxEncoded {
				continue
			}
			blob, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil || len(blob) > maxObjectSize {
				continue
			}
			m.AddObject(p, blob)
		}
	}
	return nil
}
