package calendar

import "time"

// Span is a half-open interval [Start, End).
type Span struct {
	Start time.Time
	End   time.Time
}

func NewSpan(start time.Time, d time.Duration) Span {
	return Span{Start: start, End: start.Add(d)}
}

// Overlaps reports whether the two half-open spans share any instant.
// Back-to-back spans (a.End == b.Start) do not overlap.
func (s Span) Overlaps(o Span) bool {
	return s.Start.Before(o.End) && o.Start.Before(s.End)
}

// Contains reports whether t lies in [Start, End).
func (s Span) Contains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Intersection returns the overlapping part of s and o. ok is false when
// they do not overlap.
func (s Span) Intersection(o Span) (Span, bool) {
	if !s.Overlaps(o) {
		return Span{}, false
	}
	start, end := s.Start, s.End
	if o.Start.After(start) {
		start = o.Start
	}
	if o.End.Before(end) {
		end = o.End
	}
	return Span{Start: start, End: end}, true
}
