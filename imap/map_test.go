package imap

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solra/onizd/mat"
	"github.com/solra/onizd/point"
)

func TestAddJoulesCapsAndReportsSpare(t *testing.T) {
	m := New()
	p := point.New2D(0, 0)

	spare := m.AddJoules(p, 15000)
	assert.Equal(t, uint64(5000), spare)

	taken := m.SubJoules(p, 8000)
	assert.Equal(t, uint64(8000), taken)
}

// Boundary: energy at exactly the cap, further adds return the full
// amount as spare and leave state unchanged.
func TestAddJoulesAtCapIsANoOp(t *testing.T) {
	m := New()
	p := point.New2D(1, 1)
	m.AddJoules(p, MaxStoredEnergy)

	spare := m.AddJoules(p, 500)
	assert.Equal(t, uint64(500), spare)
	assert.Equal(t, uint64(MaxStoredEnergy), m.SubJoules(p, MaxStoredEnergy+1))
}

func TestSubJoulesAbsentTile(t *testing.T) {
	m := New()
	assert.Equal(t, uint64(0), m.SubJoules(point.New2D(9, 9), 100))
}

// S3 end-to-end merge scenario.
func TestAddPacketMergeScenario(t *testing.T) {
	m := New()
	p := point.New2D(0, 0)

	ok := m.AddPacket(p, mat.Packet{Element: 100, Mass: 0.7, Temperature: 300}, point.Gas)
	require.True(t, ok)
	ok = m.AddPacket(p, mat.Packet{Element: 100, Mass: 0.7, Temperature: 320}, point.Gas)
	require.True(t, ok)

	first, ok := m.PopPacket(p, point.Gas)
	require.True(t, ok)
	assert.InDelta(t, 1.0, first.Mass, 1e-4)
	assert.InDelta(t, 306.0, first.Temperature, 1e-1)

	second, ok := m.PopPacket(p, point.Gas)
	require.True(t, ok)
	assert.InDelta(t, 0.4, second.Mass, 1e-4)
	assert.InDelta(t, 320.0, second.Temperature, 1e-4)

	_, ok = m.PopPacket(p, point.Gas)
	assert.False(t, ok)
}

// Invariant 5: adding a second-element packet does not mutate an
// unrelated first-element head already at the front of the queue.
func TestAddPacketDifferentElementDoesNotMutateHead(t *testing.T) {
	m := New()
	p := point.New2D(2, 2)
	m.AddPacket(p, mat.Packet{Element: 1, Mass: 0.2, Temperature: 100}, point.Gas)
	m.AddPacket(p, mat.Packet{Element: 2, Mass: 0.2, Temperature: 200}, point.Gas)

	first, ok := m.PopPacket(p, point.Gas)
	require.True(t, ok)
	assert.Equal(t, int32(1), first.Element)
	assert.InDelta(t, 0.2, first.Mass, 1e-6)
}

// Invariant 2: queue length never exceeds MaxStoredPackets.
func TestAddPacketQueueCap(t *testing.T) {
	m := New()
	p := point.New2D(3, 3)
	for i := 0; i < MaxStoredPackets; i++ {
		ok := m.AddPacket(p, mat.Packet{Element: int32(i), Mass: 0.9, Temperature: 100}, point.Gas)
		require.True(t, ok, "packet %d should be accepted", i)
	}
	ok := m.AddPacket(p, mat.Packet{Element: 999, Mass: 0.9, Temperature: 100}, point.Gas)
	assert.False(t, ok, "11th distinct-element packet must be rejected once the queue is full")
}

func TestAddPacketRejectsWhenMergeOverflowsFullQueue(t *testing.T) {
	m := New()
	p := point.New2D(4, 4)
	// Fill the queue with MaxStoredPackets distinct full-mass entries of
	// element 1 is impossible (merge would combine them); instead fill
	// with MaxStoredPackets different elements, leaving element 1 at
	// 0.5kg non-full in the first slot, then send an overflowing amount.
	m.AddPacket(p, mat.Packet{Element: 1, Mass: 0.5, Temperature: 100}, point.Gas)
	for i := 2; i <= MaxStoredPackets; i++ {
		m.AddPacket(p, mat.Packet{Element: int32(i), Mass: 1.0, Temperature: 100}, point.Gas)
	}
	// Queue is now full (MaxStoredPackets entries). Sending 0.8kg of
	// element 1 merges 0.5kg of room then leaves a 0.3kg tail that has
	// nowhere to go — the whole request must be rejected unchanged.
	ok := m.AddPacket(p, mat.Packet{Element: 1, Mass: 0.8, Temperature: 50}, point.Gas)
	assert.False(t, ok)

	head, ok := m.PopPacket(p, point.Gas)
	require.True(t, ok)
	assert.Equal(t, int32(1), head.Element)
	assert.InDelta(t, 0.5, head.Mass, 1e-6, "rejected merge must leave the original packet untouched")
}

func TestObjectQueueFIFOAndCap(t *testing.T) {
	m := New()
	p := point.New2D(5, 5)
	for i := 0; i < MaxStoredObjects; i++ {
		ok := m.AddObject(p, []byte{byte(i)})
		require.True(t, ok)
	}
	assert.False(t, m.AddObject(p, []byte{9}))

	for i := 0; i < MaxStoredObjects; i++ {
		blob, ok := m.PopObject(p)
		require.True(t, ok)
		assert.Equal(t, []byte{byte(i)}, blob)
	}
	_, ok := m.PopObject(p)
	assert.False(t, ok)
}

func TestRegistrationCapPerClient(t *testing.T) {
	m := New()
	p := point.New2D(6, 6)
	for i := 0; i < MaxRegistrations; i++ {
		ok := m.Register(p, 1, "Endpoint")
		require.True(t, ok)
	}
	assert.False(t, m.Register(p, 1, "OneMore"))
	// A different client is unaffected by client 1's cap.
	assert.True(t, m.Register(p, 2, "Endpoint"))
}

// S2 scenario: fan-out delivers registered/unregistered events.
func TestFanOutRegisterUnregister(t *testing.T) {
	m := New()
	p := point.New2D(1, 1)

	_, ch := m.Subscribe()

	ok := m.Register(p, 42, "Pump")
	require.True(t, ok)
	ev := <-ch
	assert.Equal(t, RegistrationEvent{Polarity: true, Point: p, Name: "Pump"}, ev)

	m.UnregisterAll(42)
	ev = <-ch
	assert.Equal(t, RegistrationEvent{Polarity: false, Point: p, Name: "Pump"}, ev)
}

// Invariant 7: a subscriber created after registrations exist receives the
// initial burst before any subsequent live event.
func TestSubscribeInitialBurstOrdering(t *testing.T) {
	m := New()
	p := point.New2D(7, 7)
	require.True(t, m.Register(p, 1, "Existing"))

	_, ch := m.Subscribe()
	require.True(t, m.Register(p, 2, "New"))

	first := <-ch
	assert.Equal(t, "Existing", first.Name)
	second := <-ch
	assert.Equal(t, "New", second.Name)
}

// A subscriber that falls behind a large burst must still receive every
// event once it resumes reading: the backlog queues rather than drops.
func TestSubscribeBacklogNeverDrops(t *testing.T) {
	m := New()
	p := point.New2D(9, 9)

	_, ch := m.Subscribe()

	const n = 10000
	for i := 0; i < n; i++ {
		require.True(t, m.Register(p, uint64(i), "Endpoint"))
		m.Unregister(p, uint64(i), "Endpoint")
	}

	for i := 0; i < 2*n; i++ {
		select {
		case _, ok := <-ch:
			require.True(t, ok, "channel closed early at event %d", i)
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d missing from backlog, subscriber dropped events", i)
		}
	}
}

func TestUnregisterPrunesEmptyTile(t *testing.T) {
	m := New()
	p := point.New2D(8, 8)
	m.Register(p, 1, "Only")
	m.Unregister(p, 1, "Only")
	assert.Equal(t, 0, m.Stats().Tiles)
}

func TestOffsetModeExamples(t *testing.T) {
	base := point.New2D(3, 5)
	assert.Equal(t, point.New2D(3, 6), base.WithOffsetY(1))
	assert.Equal(t, point.New2D(3, 4), base.WithOffsetY(-1))
	assert.Equal(t, base, base.WithOffsetY(0))
}

// S5 / round-trip law: save(load(save(M))) observably equals M.
func TestSnapshotRoundTrip(t *testing.T) {
	m := New()
	p := point.New3D(2, 3, 0)
	m.AddJoules(p, 500)
	m.AddPacket(p, mat.Packet{Element: 7, Mass: 2.5, Temperature: 280}, point.Liquid)
	m.AddObject(p, []byte("hello"))

	data, err := m.MarshalSnapshot()
	require.NoError(t, err)

	loaded := New()
	require.NoError(t, loaded.LoadSnapshot(data, 1<<20))

	data2, err := loaded.MarshalSnapshot()
	require.NoError(t, err)

	if diff := cmp.Diff(string(data), string(data2)); diff != "" {
		t.Fatalf("snapshot round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSnapshotRejectsNonObjectTopLevel(t *testing.T) {
	m := New()
	err := m.LoadSnapshot([]byte(`[1,2,3]`), 1024)
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestLoadSnapshotSkipsMalformedEntriesSilently(t *testing.T) {
	m := New()
	err := m.LoadSnapshot([]byte(`{"not-a-point": {"energy": 5}, "1,1": {"energy": 10}}`), 1024)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), m.SubJoules(point.New2D(1, 1), 1000))
}

func TestLoadSnapshotRejectsOversizedObjects(t *testing.T) {
	m := New()
	big := make([]byte, 2000)
	encoded := `{"0,0": {"objects": ["` + encodeTestBlob(big) + `"]}}`
	require.NoError(t, m.LoadSnapshot([]byte(encoded), 100))
	_, ok := m.PopObject(point.New2D(0, 0))
	assert.False(t, ok)
}
