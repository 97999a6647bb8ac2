package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/hackgods/clinic-agenda/internal/calendar"
)

var ErrRoomNotFound = errors.New("room not found")

// Room is a bookable clinic room. Available is a static maintenance marker,
// independent of whether the room is booked.
type Room struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	Capacity  int      `yaml:"capacity" json:"capacity"`
	Equipment []string `yaml:"equipment" json:"equipment"`
	Available bool     `yaml:"available" json:"available"`
}

// Catalog is an immutable registry of rooms and the canonical booking
// start times of a clinic day.
type Catalog struct {
	rooms []Room
	byID  map[string]int
	slots []time.Duration
}

// New validates rooms and slot labels (HH:MM, strictly ascending).
func New(rooms []Room, slots []string) (*Catalog, error) {
	c := &Catalog{
		rooms: make([]Room, 0, len(rooms)),
		byID:  make(map[string]int, len(rooms)),
	}

	names := make(map[string]bool, len(rooms))
	for i, r := range rooms {
		if r.ID == "" {
			return nil, fmt.Errorf("room[%d]: id is required", i)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("room[%d]: duplicate id %q", i, r.ID)
		}
		if r.Name == "" {
			return nil, fmt.Errorf("room[%d]: name is required", i)
		}
		if names[r.Name] {
			return nil, fmt.Errorf("room[%d]: duplicate name %q", i, r.Name)
		}
		if r.Capacity < 0 {
			return nil, fmt.Errorf("room[%d]: capacity cannot be negative", i)
		}
		names[r.Name] = true
		r.Equipment = append([]string(nil), r.Equipment...)
		c.byID[r.ID] = len(c.rooms)
		c.rooms = append(c.rooms, r)
	}

	for i, s := range slots {
		off, err := calendar.ParseTime(s)
		if err != nil {
			return nil, fmt.Errorf("time_slots[%d]: %w", i, err)
		}
		if i > 0 && off <= c.slots[i-1] {
			return nil, fmt.Errorf("time_slots[%d]: %s is not after %s", i, s, slots[i-1])
		}
		c.slots = append(c.slots, off)
	}

	return c, nil
}

// Rooms returns a copy of the rooms in catalog order.
func (c *Catalog) Rooms() []Room {
	out := make([]Room, len(c.rooms))
	for i, r := range c.rooms {
		r.Equipment = append([]string(nil), r.Equipment...)
		out[i] = r
	}
	return out
}

func (c *Catalog) Room(id string) (Room, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Room{}, false
	}
	r := c.rooms[i]
	r.Equipment = append([]string(nil), r.Equipment...)
	return r, true
}

// TimeSlots returns the canonical start times as HH:MM labels.
func (c *Catalog) TimeSlots() []string {
	out := make([]string, len(c.slots))
	for i, off := range c.slots {
		out[i] = calendar.FormatTime(calendar.AtOffset(time.Time{}, off))
	}
	return out
}

// SlotStarts returns the canonical start instants on day, in day's location.
func (c *Catalog) SlotStarts(day time.Time) []time.Time {
	day = calendar.StartOfDay(day)
	out := make([]time.Time, len(c.slots))
	for i, off := range c.slots {
		out[i] = calendar.AtOffset(day, off)
	}
	return out
}

// NextFreeSlots returns up to n canonical start times on day, not earlier
// than notBefore, where a booking of length d overlaps none of busy.
func (c *Catalog) NextFreeSlots(day time.Time, d time.Duration, notBefore time.Time, busy []calendar.Span, n int) []time.Time {
	if n <= 0 || d <= 0 {
		return nil
	}

	var out []time.Time
	for _, start := range c.SlotStarts(day) {
		if start.Before(notBefore) {
			continue
		}
		candidate := calendar.NewSpan(start, d)
		if overlapsAny(candidate, busy) {
			continue
		}
		out = append(out, start)
		if len(out) == n {
			break
		}
	}
	return out
}

func overlapsAny(s calendar.Span, busy []calendar.Span) bool {
	for _, b := range busy {
		if s.Overlaps(b) {
			return true
		}
	}
	return false
}
