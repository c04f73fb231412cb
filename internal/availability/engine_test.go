package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/slotwise/internal/model"
)

// 2025-03-10 is a Monday.
var monday = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func mkRule(weekday, startMin, endMin, bufBefore, bufAfter int) model.RecurringRule {
	return model.RecurringRule{
		OrganizerID:         1,
		Weekday:             weekday,
		StartMinute:         startMin,
		EndMinute:           endMin,
		BufferBeforeMinutes: bufBefore,
		BufferAfterMinutes:  bufAfter,
		SlotDurationMinutes: 30,
		IsActive:            true,
	}
}

func at(day time.Time, h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func baseInput() Input {
	return Input{
		RangeStart: monday,
		RangeEnd:   monday,
		Duration:   30 * time.Minute,
		Location:   time.UTC,
		Now:        at(monday, 8, 0),
	}
}

func TestResolve_BufferedWindowTiling(t *testing.T) {
	in := baseInput()
	in.Rules = []model.RecurringRule{mkRule(1, 9*60, 17*60, 15, 15)}

	slots, err := Resolve(in)
	require.NoError(t, err)
	require.Len(t, slots, 15)

	assert.Equal(t, at(monday, 9, 15), slots[0].Start)
	assert.Equal(t, at(monday, 9, 45), slots[0].End)

	last := slots[len(slots)-1]
	assert.Equal(t, at(monday, 16, 15), last.Start)
	assert.Equal(t, at(monday, 16, 45), last.End)

	for i, s := range slots {
		assert.True(t, s.Available, "slot %d should be available", i)
		if i > 0 {
			assert.False(t, s.Start.Before(slots[i-1].End), "slot %d overlaps its predecessor", i)
		}
	}
}

func TestResolve_BlackoutExceptionRemovesDay(t *testing.T) {
	in := baseInput()
	in.Rules = []model.RecurringRule{mkRule(1, 9*60, 17*60, 0, 0)}
	in.Exceptions = []model.ExceptionEntry{{OrganizerID: 1, Date: monday}}

	slots, err := Resolve(in)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestResolve_OverrideReplacesRecurringWindows(t *testing.T) {
	start, end := 10*60, 12*60
	in := baseInput()
	in.Rules = []model.RecurringRule{mkRule(1, 9*60, 17*60, 15, 15)}
	in.Exceptions = []model.ExceptionEntry{{
		OrganizerID: 1,
		Date:        monday,
		StartMinute: &start,
		EndMinute:   &end,
	}}

	slots, err := Resolve(in)
	require.NoError(t, err)
	require.Len(t, slots, 4)

	// Override windows carry no buffers and fully replace the rule's 9-17 day.
	assert.Equal(t, at(monday, 10, 0), slots[0].Start)
	assert.Equal(t, at(monday, 11, 30), slots[3].Start)
}

func TestResolve_ExceptionOpensOtherwiseClosedDay(t *testing.T) {
	// 2025-03-11 is a Tuesday with no recurring rule.
	tuesday := monday.AddDate(0, 0, 1)
	start, end := 9*60, 10*60

	in := baseInput()
	in.RangeStart = tuesday
	in.RangeEnd = tuesday
	in.Rules = []model.RecurringRule{mkRule(1, 9*60, 17*60, 0, 0)} // Monday only
	in.Exceptions = []model.ExceptionEntry{{
		OrganizerID: 1,
		Date:        tuesday,
		StartMinute: &start,
		EndMinute:   &end,
	}}

	slots, err := Resolve(in)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, at(tuesday, 9, 0), slots[0].Start)
	assert.Equal(t, at(tuesday, 9, 30), slots[1].Start)
}

func TestResolve_BookedAppointmentBlocksSlot(t *testing.T) {
	in := baseInput()
	in.Rules = []model.RecurringRule{mkRule(1, 9*60, 11*60, 0, 0)}
	in.Appointments = []model.Appointment{
		{
			OrganizerID: 1,
			SlotStart:   at(monday, 9, 30),
			SlotEnd:     at(monday, 10, 0),
			Status:      model.AppointmentStatusBooked,
		},
		{
			// Canceled appointments free their interval.
			OrganizerID: 1,
			SlotStart:   at(monday, 10, 0),
			SlotEnd:     at(monday, 10, 30),
			Status:      model.AppointmentStatusCanceled,
		},
	}

	slots, err := Resolve(in)
	require.NoError(t, err)
	require.Len(t, slots, 4)

	assert.True(t, slots[0].Available)
	assert.False(t, slots[1].Available, "9:30 slot overlaps the booked appointment")
	assert.True(t, slots[2].Available, "canceled appointment must not block")
	assert.True(t, slots[3].Available)
}

func TestResolve_LiveClaimBlocksOverlappingSlots(t *testing.T) {
	in := baseInput()
	in.Rules = []model.RecurringRule{mkRule(1, 9*60, 12*60, 0, 0)}
	in.Claims = []model.SlotClaim{
		{
			Handle:      uuid.New(),
			OrganizerID: 1,
			SlotStart:   at(monday, 10, 15),
			SlotEnd:     at(monday, 10, 45),
			ExpiresAt:   in.Now.Add(30 * time.Second),
		},
		{
			Handle:      uuid.New(),
			OrganizerID: 1,
			SlotStart:   at(monday, 11, 0),
			SlotEnd:     at(monday, 11, 30),
			ExpiresAt:   in.Now.Add(-time.Second), // already expired
		},
	}

	slots, err := Resolve(in)
	require.NoError(t, err)
	require.Len(t, slots, 6)

	assert.True(t, slots[0].Available)                                 // 9:00
	assert.True(t, slots[1].Available)                                 // 9:30
	assert.False(t, slots[2].Available)                                // 10:00 overlaps live claim
	assert.False(t, slots[3].Available)                                // 10:30 overlaps live claim
	assert.True(t, slots[4].Available, "expired claim must not block") // 11:00
	assert.True(t, slots[5].Available)                                 // 11:30
}

func TestResolve_OverlappingWindowsAreMerged(t *testing.T) {
	in := baseInput()
	in.Duration = time.Hour
	in.Rules = []model.RecurringRule{
		mkRule(1, 9*60, 12*60, 0, 0),
		mkRule(1, 11*60, 14*60, 0, 0),
	}

	slots, err := Resolve(in)
	require.NoError(t, err)
	require.Len(t, slots, 5)

	seen := make(map[time.Time]bool)
	for i, s := range slots {
		assert.False(t, seen[s.Start], "duplicate slot at %v", s.Start)
		seen[s.Start] = true
		if i > 0 {
			assert.False(t, s.Start.Before(slots[i-1].End), "slots must not overlap")
		}
	}
	assert.Equal(t, at(monday, 9, 0), slots[0].Start)
	assert.Equal(t, at(monday, 13, 0), slots[4].Start)
}

func TestResolve_DurationLongerThanWindow(t *testing.T) {
	in := baseInput()
	in.Duration = 2 * time.Hour
	in.Rules = []model.RecurringRule{mkRule(1, 9*60, 10*60, 0, 0)}

	slots, err := Resolve(in)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestResolve_MultiDayRangeStaysChronological(t *testing.T) {
	in := baseInput()
	in.RangeEnd = monday.AddDate(0, 0, 2)
	in.Rules = []model.RecurringRule{
		mkRule(1, 9*60, 10*60, 0, 0), // Monday
		mkRule(3, 9*60, 10*60, 0, 0), // Wednesday
	}

	slots, err := Resolve(in)
	require.NoError(t, err)
	require.Len(t, slots, 4)

	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].Start.Before(slots[i].Start))
	}
	assert.Equal(t, monday.AddDate(0, 0, 2).Add(9*time.Hour), slots[2].Start)
}

func TestResolve_Idempotent(t *testing.T) {
	in := baseInput()
	in.Rules = []model.RecurringRule{mkRule(1, 9*60, 17*60, 15, 15)}
	in.Appointments = []model.Appointment{
		{
			OrganizerID: 1,
			SlotStart:   at(monday, 9, 15),
			SlotEnd:     at(monday, 9, 45),
			Status:      model.AppointmentStatusBooked,
		},
	}

	first, err := Resolve(in)
	require.NoError(t, err)
	second, err := Resolve(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolve_InactiveRulesIgnored(t *testing.T) {
	rule := mkRule(1, 9*60, 17*60, 0, 0)
	rule.IsActive = false

	in := baseInput()
	in.Rules = []model.RecurringRule{rule}

	slots, err := Resolve(in)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestResolve_InputValidation(t *testing.T) {
	in := baseInput()
	in.Duration = 0
	_, err := Resolve(in)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	in = baseInput()
	in.RangeEnd = monday.AddDate(0, 0, -1)
	_, err = Resolve(in)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestResolve_SpringForwardKeepsLocalWindow(t *testing.T) {
	// US DST starts 2025-03-09 (a Sunday): clocks jump 02:00 -> 03:00.
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	dstSunday := time.Date(2025, time.March, 9, 0, 0, 0, 0, loc)
	in := Input{
		RangeStart: dstSunday,
		RangeEnd:   dstSunday,
		Duration:   time.Hour,
		Location:   loc,
		Now:        dstSunday,
		Rules:      []model.RecurringRule{mkRule(0, 9*60, 17*60, 0, 0)},
	}

	slots, err := Resolve(in)
	require.NoError(t, err)
	require.Len(t, slots, 8)

	first := slots[0].Start.In(loc)
	assert.Equal(t, 9, first.Hour(), "window must open at 09:00 local despite the skipped hour")
	assert.Equal(t, 16, slots[7].Start.In(loc).Hour())
}

func TestResolve_FallBackKeepsLocalWindow(t *testing.T) {
	// US DST ends 2025-11-02 (a Sunday): clocks fall back 02:00 -> 01:00.
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	fallSunday := time.Date(2025, time.November, 2, 0, 0, 0, 0, loc)
	in := Input{
		RangeStart: fallSunday,
		RangeEnd:   fallSunday,
		Duration:   time.Hour,
		Location:   loc,
		Now:        fallSunday,
		Rules:      []model.RecurringRule{mkRule(0, 9*60, 17*60, 0, 0)},
	}

	slots, err := Resolve(in)
	require.NoError(t, err)
	require.Len(t, slots, 8)

	assert.Equal(t, 9, slots[0].Start.In(loc).Hour())
	assert.Equal(t, 16, slots[7].Start.In(loc).Hour())
}

func TestResolve_DSTOverrideWindowStaysLocal(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	dstSunday := time.Date(2025, time.March, 9, 0, 0, 0, 0, loc)
	start, end := 10*60, 12*60
	in := Input{
		RangeStart: dstSunday,
		RangeEnd:   dstSunday,
		Duration:   time.Hour,
		Location:   loc,
		Now:        dstSunday,
		Exceptions: []model.ExceptionEntry{{
			OrganizerID: 1,
			Date:        dstSunday,
			StartMinute: &start,
			EndMinute:   &end,
		}},
	}

	slots, err := Resolve(in)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, 10, slots[0].Start.In(loc).Hour())
	assert.Equal(t, 11, slots[1].Start.In(loc).Hour())
}
