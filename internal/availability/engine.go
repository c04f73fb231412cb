package availability

import (
	"errors"
	"sort"
	"time"

	"github.com/slotwise/slotwise/internal/model"
)

// ErrInvalidDuration indicates the requested meeting duration is not positive.
var ErrInvalidDuration = errors.New("availability: meeting duration must be positive")

// ErrInvalidRange indicates the requested date range ends before it starts.
var ErrInvalidRange = errors.New("availability: range end before range start")

// Input carries everything one resolution needs. The engine never touches
// storage; callers load state and pass it in, which keeps resolution a pure
// function and safe under concurrent calls.
type Input struct {
	RangeStart time.Time // first calendar date, inclusive
	RangeEnd   time.Time // last calendar date, inclusive
	Duration   time.Duration
	Location   *time.Location // organizer timezone; nil means UTC

	Rules        []model.RecurringRule
	Exceptions   []model.ExceptionEntry
	Appointments []model.Appointment // only status=booked entries block slots
	Claims       []model.SlotClaim   // claims held by other sessions

	Now time.Time // liveness cutoff for claims; zero means time.Now()
}

type window struct {
	start time.Time
	end   time.Time
}

// Resolve computes the ordered candidate slots for the input's date range.
//
// For each date, an exception entry replaces the day's recurring windows
// entirely (a blackout yields none, an override window yields exactly one).
// Recurring windows are shrunk by their buffers, overlapping windows are
// merged, and each window is tiled into consecutive intervals of the
// requested duration, dropping a trailing partial interval. A candidate is
// unavailable when it overlaps a booked appointment or a live claim,
// half-open semantics throughout.
func Resolve(in Input) ([]model.Slot, error) {
	if in.Duration <= 0 {
		return nil, ErrInvalidDuration
	}

	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	first := midnight(in.RangeStart.In(loc))
	last := midnight(in.RangeEnd.In(loc))
	if last.Before(first) {
		return nil, ErrInvalidRange
	}

	exceptions := make(map[string]model.ExceptionEntry, len(in.Exceptions))
	for _, e := range in.Exceptions {
		exceptions[e.DateKey()] = e
	}

	byWeekday := make(map[int][]model.RecurringRule, 7)
	for _, r := range in.Rules {
		if r.IsActive {
			byWeekday[r.Weekday] = append(byWeekday[r.Weekday], r)
		}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	slots := make([]model.Slot, 0)
	for day := first; !day.After(last); day = nextDay(day, loc) {
		windows := dayWindows(day, exceptions, byWeekday, in.Duration)
		for _, w := range mergeOverlapping(windows) {
			slots = tile(slots, w, in.Duration)
		}
	}

	markUnavailable(slots, in.Appointments, in.Claims, now)
	return slots, nil
}

// dayWindows determines the availability windows for a single date.
// An exception fully overrides the weekday's recurring rules, including
// opening a window on a day with no rules at all.
func dayWindows(day time.Time, exceptions map[string]model.ExceptionEntry, byWeekday map[int][]model.RecurringRule, duration time.Duration) []window {
	if e, ok := exceptions[day.Format("2006-01-02")]; ok {
		if e.IsBlackout() || e.StartMinute == nil || e.EndMinute == nil {
			return nil
		}
		w := window{
			start: atMinute(day, *e.StartMinute),
			end:   atMinute(day, *e.EndMinute),
		}
		if w.start.Add(duration).After(w.end) {
			return nil
		}
		return []window{w}
	}

	rules := byWeekday[int(day.Weekday())]
	windows := make([]window, 0, len(rules))
	for _, r := range rules {
		w := window{
			start: atMinute(day, r.StartMinute+r.BufferBeforeMinutes),
			end:   atMinute(day, r.EndMinute-r.BufferAfterMinutes),
		}
		// Too narrow for even one slot after buffers.
		if w.start.Add(duration).After(w.end) {
			continue
		}
		windows = append(windows, w)
	}
	return windows
}

// mergeOverlapping unions windows that intersect so tiling never emits
// duplicate or overlapping candidates. Adjacent windows (end == start) stay
// separate; half-open intervals do not overlap at the boundary.
func mergeOverlapping(windows []window) []window {
	if len(windows) < 2 {
		return windows
	}

	sort.Slice(windows, func(i, j int) bool { return windows[i].start.Before(windows[j].start) })

	merged := windows[:1]
	for _, w := range windows[1:] {
		cur := &merged[len(merged)-1]
		if w.start.Before(cur.end) {
			if w.end.After(cur.end) {
				cur.end = w.end
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// tile appends consecutive duration-sized candidates from the window,
// discarding a trailing partial interval.
func tile(slots []model.Slot, w window, duration time.Duration) []model.Slot {
	for start := w.start; ; start = start.Add(duration) {
		end := start.Add(duration)
		if end.After(w.end) {
			return slots
		}
		slots = append(slots, model.Slot{Start: start, End: end, Available: true})
	}
}

func markUnavailable(slots []model.Slot, appointments []model.Appointment, claims []model.SlotClaim, now time.Time) {
	for i := range slots {
		s := &slots[i]
		for j := range appointments {
			a := &appointments[j]
			if a.IsBooked() && a.Overlaps(s.Start, s.End) {
				s.Available = false
				break
			}
		}
		if !s.Available {
			continue
		}
		for j := range claims {
			c := &claims[j]
			if c.IsLive(now) && c.Overlaps(s.Start, s.End) {
				s.Available = false
				break
			}
		}
	}
}

// atMinute places a minutes-from-midnight offset at that wall-clock time on
// the given date. Built from date components rather than adding a duration to
// midnight, so a DST transition earlier in the day cannot shift the window.
func atMinute(day time.Time, minutes int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, day.Location())
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func nextDay(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}
