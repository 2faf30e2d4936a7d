// Package mat implements material-parcel (MatPacket) value types and the
// physically-correct merge arithmetic used when two parcels of the same
// element are combined in a tile's gas/liquid queue.
package mat

import "github.com/solra/onizd/point"

// Packet is a quantized parcel of a single element, with mass (kg),
// temperature (kelvin), and an optional germ population. Mass must never
// exceed the owning phase's max stack size once persisted — merge
// arithmetic may transiently overshoot before the leftover is split off.
type Packet struct {
	Element     int32   `json:"element"`
	Mass        float32 `json:"mass"`
	Temperature float32 `json:"temperature"`
	Germs       *Germs  `json:"germs,omitempty"`
}

// Merge combines a (the existing, possibly-partial packet already in a
// queue) with b (the incoming packet), for phase's stacking cap. It
// returns the merged head (replacing a in place) and, if b's mass
// overflowed a's remaining room, a tail packet carrying the leftover.
// Merge returns ok=false when the two packets are of different elements
// or a is already at (or past) the phase cap — neither case is
// mergeable, and the caller must treat the incoming packet as a fresh
// queue entry instead.
func Merge(a, b Packet, phase point.Phase) (head Packet, tail *Packet, ok bool) {
	if a.Element != b.Element {
		return Packet{}, nil, false
	}
	max := phase.MaxStackSize()
	room := max - a.Mass
	if room <= 0 {
		return Packet{}, nil, false
	}
	buff := b.Mass
	if buff > room {
		buff = room
	}
	leftover := b.Mass - buff
	var frac float32
	if b.Mass > 0 {
		frac = buff / b.Mass
	}

	headGerms, tailGerms := MergeGerms(a.Germs, b.Germs, frac)

	mergedMass := a.Mass + buff
	var temp float32
	if mergedMass > 0 {
		temp = (a.Temperature*a.Mass + b.Temperature*buff) / mergedMass
	}
	head = Packet{
		Element:     a.Element,
		Mass:        mergedMass,
		Temperature: temp,
		Germs:       headGerms,
	}
	if leftover > 0 {
		tail = &Packet{
			Element:     a.Element,
			Mass:        leftover,
			Temperature: b.Temperature,
			Germs:       tailGerms,
		}
	}
	return head, tail, true
}
