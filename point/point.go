// Package point defines the integer grid coordinate used as a tile key
// throughout the interlayer map, along with the Gas/Liquid phase tag.
package point

import (
	"fmt"
	"strconv"
	"strings"
)

// Point is an integer 2D or 3D grid coordinate. The 3D form is canonical;
// a Point with Z == 0 is the degenerate 2D case and is formatted without
// the third component.
type Point struct {
	X, Y, Z int32
}

// New2D builds a Point with Z defaulted to 0.
func New2D(x, y int32) Point {
	return Point{X: x, Y: y}
}

// New3D builds a Point with an explicit Z.
func New3D(x, y, z int32) Point {
	return Point{X: x, Y: y, Z: z}
}

// String renders the canonical snapshot-key form: "x,y" when Z == 0,
// otherwise "x,y,z".
func (p Point) String() string {
	if p.Z == 0 {
		return fmt.Sprintf("%d,%d", p.X, p.Y)
	}
	return fmt.Sprintf("%d,%d,%d", p.X, p.Y, p.Z)
}

// WithOffsetY returns a copy of p with dy added to Y, used by offset-mode
// Recver/Sender registration and recv-side resource operations.
func (p Point) WithOffsetY(dy int32) Point {
	p.Y += dy
	return p
}

// Parse decodes a snapshot key of the form "x,y" or "x,y,z", each component
// a signed 32-bit decimal. Malformed keys are reported via ok=false so
// callers (e.g. imap.Map.LoadSnapshot) can skip them silently.
func Parse(key string) (p Point, ok bool) {
	parts := strings.Split(key, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return Point{}, false
	}
	vals := make([]int32, len(parts))
	for i, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return Point{}, false
		}
		vals[i] = int32(n)
	}
	p.X, p.Y = vals[0], vals[1]
	if len(vals) == 3 {
		p.Z = vals[2]
	}
	return p, true
}

// Phase tags whether a material parcel is gaseous or liquid; each phase
// caps how much mass a single stacked packet may carry.
type Phase int

const (
	Gas Phase = iota
	Liquid
)

// MaxStackSize returns the per-packet mass cap, in kilograms, for the phase.
func (p Phase) MaxStackSize() float32 {
	switch p {
	case Liquid:
		return 10.0
	default:
		return 1.0
	}
}

func (p Phase) String() string {
	switch p {
	case Liquid:
		return "Liquid"
	default:
		return "Gas"
	}
}

// ParsePhase maps the wire-protocol phase string to a Phase, reporting
// ok=false for anything else.
func ParsePhase(s string) (Phase, bool) {
	switch s {
	case "Gas":
		return Gas, true
	case "Liquid":
		return Liquid, true
	default:
		return 0, false
	}
}
