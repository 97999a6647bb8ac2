package appointment

import (
	"time"

	"github.com/hackgods/clinic-agenda/internal/calendar"
)

// Periods are the day ranges statistics are counted over. Weeks run Monday
// to Sunday. All bounds are inclusive days.
type Periods struct {
	Today      time.Time
	WeekStart  time.Time
	WeekEnd    time.Time
	MonthStart time.Time
	MonthEnd   time.Time
}

// PeriodsFor returns the periods containing now in loc.
func PeriodsFor(now time.Time, loc *time.Location) Periods {
	today := calendar.StartOfDay(now.In(loc))
	sinceMonday := (int(today.Weekday()) + 6) % 7
	weekStart := today.AddDate(0, 0, -sinceMonday)
	monthStart := today.AddDate(0, 0, 1-today.Day())
	return Periods{
		Today:      today,
		WeekStart:  weekStart,
		WeekEnd:    weekStart.AddDate(0, 0, 6),
		MonthStart: monthStart,
		MonthEnd:   monthStart.AddDate(0, 1, -1),
	}
}

// Statistics counts appointments of every status. Upcoming counts days after
// today.
type Statistics struct {
	Total     int            `json:"total"`
	Today     int            `json:"today"`
	Upcoming  int            `json:"upcoming"`
	ThisWeek  int            `json:"thisWeek"`
	ThisMonth int            `json:"thisMonth"`
	ByStatus  map[Status]int `json:"byStatus"`
	ByType    map[Type]int   `json:"byType"`
}

// newStatistics has a zero entry for every status and type so consumers
// always see the full set of keys.
func newStatistics() *Statistics {
	st := &Statistics{ByStatus: map[Status]int{}, ByType: map[Type]int{}}
	for _, s := range []Status{StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow} {
		st.ByStatus[s] = 0
	}
	for _, t := range []Type{TypeInPerson, TypeVirtual, TypePhone} {
		st.ByType[t] = 0
	}
	return st
}
