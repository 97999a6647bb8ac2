package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-agenda/internal/calendar"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.Len(t, c.Rooms(), 4)

	r, ok := c.Room("sala-4")
	require.True(t, ok)
	assert.False(t, r.Available)

	_, ok = c.Room("sala-9")
	assert.False(t, ok)

	slots := c.TimeSlots()
	assert.Equal(t, "08:00", slots[0])
	assert.Equal(t, "18:00", slots[len(slots)-1])
	assert.Len(t, slots, 21)
}

func TestRoomsReturnsCopies(t *testing.T) {
	c := Default()
	rooms := c.Rooms()
	rooms[0].Equipment[0] = "changed"
	rooms[0].Name = "changed"

	r, _ := c.Room("sala-1")
	assert.Equal(t, "Escritorio", r.Equipment[0])
	assert.Equal(t, "Sala 1 - Consulta Individual", r.Name)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name  string
		rooms []Room
		slots []string
	}{
		{"missing id", []Room{{Name: "A"}}, nil},
		{"duplicate id", []Room{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}}, nil},
		{"missing name", []Room{{ID: "a"}}, nil},
		{"duplicate name", []Room{{ID: "a", Name: "A"}, {ID: "b", Name: "A"}}, nil},
		{"negative capacity", []Room{{ID: "a", Name: "A", Capacity: -1}}, nil},
		{"bad slot", []Room{{ID: "a", Name: "A"}}, []string{"8am"}},
		{"unordered slots", []Room{{ID: "a", Name: "A"}}, []string{"09:00", "08:30"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.rooms, tt.slots)
			assert.Error(t, err)
		})
	}
}

func TestParse_Schedule(t *testing.T) {
	doc := []byte(`
rooms:
  - id: r1
    name: Room 1
    capacity: 3
    available: true
schedule:
  start_time: "09:00"
  end_time: "11:00"
  slot_duration_minutes: 60
`)
	c, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, c.TimeSlots())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("rooms: []"))
	assert.ErrorContains(t, err, "no rooms defined")

	_, err = Parse([]byte("rooms: [{id: a, name: A}]\nschedule: {start_time: '10:00', end_time: '09:00'}"))
	assert.ErrorContains(t, err, "before start_time")

	_, err = Parse([]byte("rooms: {"))
	assert.ErrorContains(t, err, "parse rooms catalog")
}

func TestLoad_RepoCatalogFile(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "configs", "rooms.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().TimeSlots(), c.TimeSlots())
	assert.Equal(t, Default().Rooms(), c.Rooms())
}

func TestNextFreeSlots(t *testing.T) {
	c := Default()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC) }

	busy := []calendar.Span{
		{Start: at(9, 0), End: at(9, 45)},
		{Start: at(10, 0), End: at(11, 0)},
	}

	got := c.NextFreeSlots(day, 45*time.Minute, at(9, 0), busy, 3)
	assert.Equal(t, []time.Time{at(11, 0), at(11, 30), at(12, 0)}, got)

	// Only canonical starts are offered, so the 09:45 gap is skipped.
	got = c.NextFreeSlots(day, 15*time.Minute, at(9, 0), busy, 1)
	assert.Equal(t, []time.Time{at(11, 0)}, got)

	assert.Nil(t, c.NextFreeSlots(day, 0, at(9, 0), busy, 3))
	assert.Empty(t, c.NextFreeSlots(day, 30*time.Minute, at(19, 0), busy, 3))
}

func TestHolderAndWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rooms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rooms: [{id: a, name: A, available: true}]"), 0o644))

	h := NewHolder(Default())
	updates := make(chan *Catalog, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := Watch(ctx, path, 10*time.Millisecond, func(c *Catalog) {
		h.Set(c)
		updates <- c
	}, nil)
	require.NoError(t, err)

	first := <-updates
	assert.Len(t, first.Rooms(), 1)
	assert.Same(t, first, h.Get())

	require.NoError(t, os.WriteFile(path, []byte("rooms: [{id: a, name: A}, {id: b, name: B}]"), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case c := <-updates:
		assert.Len(t, c.Rooms(), 2)
	case <-time.After(2 * time.Second):
		t.Fatal("catalog reload not observed")
	}
}

type ctxKey struct{}

func TestHolderFollow(t *testing.T) {
	h := NewHolder(Default())
	ctx := context.WithValue(context.Background(), ctxKey{}, "watch")

	var seen []*Catalog
	var seenCtx context.Context
	update := h.Follow(ctx, func(ctx context.Context, c *Catalog) {
		assert.Same(t, c, h.Get(), "the new catalog is visible before onChange runs")
		seen = append(seen, c)
		seenCtx = ctx
	})

	next, err := New(DefaultRooms()[:2], DefaultTimeSlots())
	require.NoError(t, err)
	update(next)

	assert.Same(t, next, h.Get())
	require.Len(t, seen, 1)
	assert.Equal(t, "watch", seenCtx.Value(ctxKey{}))

	NewHolder(Default()).Follow(ctx, nil)(next)
}
