package point

import "testing"

func TestStringOmitsZeroZ(t *testing.T) {
	if got := New2D(3, 5).String(); got != "3,5" {
		t.Fatalf("String() = %q, want 3,5", got)
	}
	if got := New3D(3, 5, 0).String(); got != "3,5" {
		t.Fatalf("String() = %q, want 3,5 (z=0 degenerate)", got)
	}
	if got := New3D(3, 5, 2).String(); got != "3,5,2" {
		t.Fatalf("String() = %q, want 3,5,2", got)
	}
}

func TestParseRoundTrip(t *testing.T) {
	cases := []Point{New2D(0, 0), New2D(-1, 5), New3D(3, -5, 9)}
	for _, want := range cases {
		got, ok := Parse(want.String())
		if !ok {
			t.Fatalf("Parse(%q) failed", want.String())
		}
		if got != want {
			t.Fatalf("Parse(%q) = %+v, want %+v", want.String(), got, want)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	for _, s := range []string{"", "x,y", "1", "1,2,3,4", "1.5,2"} {
		if _, ok := Parse(s); ok {
			t.Fatalf("Parse(%q) unexpectedly succeeded", s)
		}
	}
}

func TestOffsetY(t *testing.T) {
	p := New2D(3, 5)
	if got := p.WithOffsetY(1); got != New2D(3, 6) {
		t.Fatalf("WithOffsetY(1) = %+v, want (3,6)", got)
	}
	if got := p.WithOffsetY(-1); got != New2D(3, 4) {
		t.Fatalf("WithOffsetY(-1) = %+v, want (3,4)", got)
	}
}

func TestPhaseMaxStackSize(t *testing.T) {
	if Gas.MaxStackSize() != 1.0 {
		t.Fatalf("Gas.MaxStackSize() = %v, want 1.0", Gas.MaxStackSize())
	}
	if Liquid.MaxStackSize() != 10.0 {
		t.Fatalf("Liquid.MaxStackSize() = %v, want 10.0", Liquid.MaxStackSize())
	}
}
