package catalog

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/hackgods/clinic-agenda/internal/calendar"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of rooms.yaml.
type File struct {
	Rooms    []Room         `yaml:"rooms"`
	Schedule *ScheduleBlock `yaml:"schedule,omitempty"`
	Slots    []string       `yaml:"time_slots,omitempty"`
}

// ScheduleBlock generates time slots when no explicit list is given.
type ScheduleBlock struct {
	StartTime           string `yaml:"start_time"`            // "08:00"
	EndTime             string `yaml:"end_time"`              // "18:00", inclusive
	SlotDurationMinutes int    `yaml:"slot_duration_minutes"` // 30
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rooms catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog document. Without time_slots or schedule the
// default half-hour grid is used.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rooms catalog: %w", err)
	}
	if len(f.Rooms) == 0 {
		return nil, fmt.Errorf("validate rooms catalog: no rooms defined")
	}

	slots := f.Slots
	if len(slots) == 0 && f.Schedule != nil {
		generated, err := f.Schedule.expand()
		if err != nil {
			return nil, fmt.Errorf("validate rooms catalog: %w", err)
		}
		slots = generated
	}
	if len(slots) == 0 {
		slots = DefaultTimeSlots()
	}

	c, err := New(f.Rooms, slots)
	if err != nil {
		return nil, fmt.Errorf("validate rooms catalog: %w", err)
	}
	return c, nil
}

func (s *ScheduleBlock) expand() ([]string, error) {
	start, err := calendar.ParseTime(s.StartTime)
	if err != nil {
		return nil, fmt.Errorf("schedule.start_time: %w", err)
	}
	end, err := calendar.ParseTime(s.EndTime)
	if err != nil {
		return nil, fmt.Errorf("schedule.end_time: %w", err)
	}
	if end < start {
		return nil, fmt.Errorf("schedule: end_time %s before start_time %s", s.EndTime, s.StartTime)
	}
	step := time.Duration(s.SlotDurationMinutes) * time.Minute
	if step <= 0 {
		step = 30 * time.Minute
	}

	var out []string
	for off := start; off <= end; off += step {
		out = append(out, calendar.FormatTime(calendar.AtOffset(time.Time{}, off)))
	}
	return out, nil
}

// Holder publishes the current catalog to concurrent readers.
type Holder struct {
	v atomic.Pointer[Catalog]
}

func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.v.Store(c)
	return h
}

func (h *Holder) Get() *Catalog { return h.v.Load() }

func (h *Holder) Set(c *Catalog) { h.v.Store(c) }

// Follow returns a Watch callback that stores each new catalog in h and then
// calls onChange, which is where caches built from the old rooms get dropped.
func (h *Holder) Follow(ctx context.Context, onChange func(ctx context.Context, c *Catalog)) func(*Catalog) {
	return func(c *Catalog) {
		h.Set(c)
		if onChange != nil {
			onChange(ctx, c)
		}
	}
}

// Watch reloads path whenever its modification time advances and hands the
// new catalog to onUpdate. The initial load happens before Watch returns.
func Watch(ctx context.Context, path string, interval time.Duration, onUpdate func(*Catalog), onError func(error)) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	c, err := Load(path)
	if err != nil {
		return err
	}
	onUpdate(c)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil || !info.ModTime().After(lastMod) {
					continue
				}
				c, err := Load(path)
				if err != nil {
					if onError != nil {
						onError(err)
					}
					continue
				}
				lastMod = info.ModTime()
				onUpdate(c)
			}
		}
	}()

	return nil
}
