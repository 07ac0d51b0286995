package pump_control

import (
	"encoding/json"
	"fmt"
	"sort"
)

const minutesPerDay = 24 * 60

// TimeOfDay is minutes since midnight, in [0, 1440).
type TimeOfDay int

// ParseClock parses "HH:MM" into a TimeOfDay.
func ParseClock(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock time %q: out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) Valid() bool { return t >= 0 && t < minutesPerDay }

// String renders the "HH:MM" form used on the wire.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseClock(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ScheduleWindow is a watering interval. Invariant: Start < End.
type ScheduleWindow struct {
	Start TimeOfDay `json:"from"`
	End   TimeOfDay `json:"to"`
}

func (w ScheduleWindow) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// WellFormed reports whether the window satisfies Start < End within the day.
func (w ScheduleWindow) WellFormed() bool {
	return w.Start.Valid() && w.End.Valid() && w.Start < w.End
}

// Overlaps reports whether two windows intersect. Equal starts count as a
// zero-width overlap.
func (w ScheduleWindow) Overlaps(o ScheduleWindow) bool {
	if w.Start == o.Start {
		return true
	}
	return max(int(w.Start), int(o.Start)) < min(int(w.End), int(o.End))
}

// DefaultSchedules are seeded on first run, before any user edit.
func DefaultSchedules() []ScheduleWindow {
	return []ScheduleWindow{
		{Start: 6 * 60, End: 6*60 + 5},
		{Start: 12 * 60, End: 12*60 + 10},
		{Start: 18 * 60, End: 18*60 + 3},
	}
}

// ScheduleSet holds watering windows ordered by start time, with the
// invariant that no two windows overlap.
type ScheduleSet struct {
	windows []ScheduleWindow
}

// NewScheduleSet builds a set from the given windows without validating them;
// call Validate after a bulk load to re-check the pairwise invariant.
func NewScheduleSet(windows []ScheduleWindow) *ScheduleSet {
	ws := make([]ScheduleWindow, len(windows))
	copy(ws, windows)
	sort.Slice(ws, func(i, j int) bool { return ws[i].Start < ws[j].Start })
	return &ScheduleSet{windows: ws}
}

// Add inserts a window, keeping the set ordered by start.
// Returns ErrInvalidWindow when start >= end, ErrOverlap (as *OverlapError)
// when the window intersects an existing one; the set is unchanged on error.
func (s *ScheduleSet) Add(w ScheduleWindow) error {
	if !w.WellFormed() {
		return ErrInvalidWindow
	}
	for _, existing := range s.windows {
		if w.Overlaps(existing) {
			return &OverlapError{A: existing, B: w}
		}
	}
	i := sort.Search(len(s.windows), func(i int) bool { return s.windows[i].Start >= w.Start })
	s.windows = append(s.windows, ScheduleWindow{})
	copy(s.windows[i+1:], s.windows[i:])
	s.windows[i] = w
	return nil
}

// Remove deletes the window at the given position in the sorted set.
func (s *ScheduleSet) Remove(index int) error {
	if index < 0 || index >= len(s.windows) {
		return ErrNotFound
	}
	s.windows = append(s.windows[:index], s.windows[index+1:]...)
	return nil
}

// Validate re-checks the full set for pairwise overlap, as after a bulk load
// from storage. Returns the first conflicting pair as an *OverlapError, or nil.
func (s *ScheduleSet) Validate() error {
	for i := 0; i < len(s.windows); i++ {
		if !s.windows[i].WellFormed() {
			return ErrInvalidWindow
		}
		for j := i + 1; j < len(s.windows); j++ {
			if s.windows[i].Overlaps(s.windows[j]) {
				return &OverlapError{A: s.windows[i], B: s.windows[j]}
			}
		}
	}
	return nil
}

// Windows returns a copy of the ordered windows.
func (s *ScheduleSet) Windows() []ScheduleWindow {
	out := make([]ScheduleWindow, len(s.windows))
	copy(out, s.windows)
	return out
}

func (s *ScheduleSet) Len() int { return len(s.windows) }
