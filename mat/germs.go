package mat

// Germs is an optional population of a germ species attached to a material
// parcel. A zero Count is semantically equivalent to "no germs" — callers
// should route through Maybe() rather than comparing to a nil pointer by
// convention.
type Germs struct {
	ID    int32  `json:"id"`
	Count uint64 `json:"count"`
}

// Maybe returns nil if the population is empty, otherwise a pointer to a
// copy of g. Used to normalize "zero count" into "no germs" at the edges
// of the merge algorithm.
func (g Germs) Maybe() *Germs {
	if g.Count == 0 {
		return nil
	}
	cp := g
	return &cp
}

// Split divides a germ population by the mass fraction frac that goes to
// the merge "head"; the rest goes to the "tail". The head keeps at least one germ
// whenever any fraction splits off and the population is non-empty;
// the remainder is saturating (never negative).
func (g Germs) Split(frac float32) (head, tail Germs) {
	if frac >= 1 || g.Count == 0 {
		return g, Germs{ID: g.ID, Count: 0}
	}
	if frac <= 0 {
		return Germs{ID: g.ID, Count: 0}, g
	}
	headCount := uint64(ceilFrac(g.Count, frac))
	if headCount < 1 {
		headCount = 1
	}
	if headCount > g.Count {
		headCount = g.Count
	}
	tailCount := g.Count - headCount
	return Germs{ID: g.ID, Count: headCount}, Germs{ID: g.ID, Count: tailCount}
}

func ceilFrac(count uint64, frac float32) uint64 {
	product := float64(count) * float64(frac)
	whole := uint64(product)
	if float64(whole) < product {
		whole++
	}
	return whole
}

// MergeGerms combines the germ populations of a merge's two input packets,
// producing the head (staying with the merged packet) and tail (riding
// along with any mass leftover) populations, per frac = buff/b.mass, the
// fraction of b's mass absorbed into the head.
func MergeGerms(a, b *Germs, frac float32) (head, tail *Germs) {
	switch {
	case a == nil && b == nil:
		return nil, nil
	case a != nil && b == nil:
		return a, nil
	case a == nil && b != nil:
		h, t := b.Split(frac)
		return h.Maybe(), t.Maybe()
	default:
		if a.ID != b.ID {
			if frac < 1 {
				return a, b
			}
			// Full collision: larger count wins the head slot, ties
			// broken toward the smaller species id.
			winner, loser := *a, *b
			if b.Count > a.Count || (b.Count == a.Count && b.ID < a.ID) {
				winner, loser = *b, *a
			}
			return winner.Maybe(), loser.Maybe()
		}
		h, t := b.Split(frac)
		h.Count += a.Count
		return h.Maybe(), t.Maybe()
	}
}
