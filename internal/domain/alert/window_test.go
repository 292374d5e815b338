package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()

	parsed, err := time.ParseInLocation("2006-01-02 15:04:05", value, time.UTC)
	require.NoError(t, err)

	return parsed
}

// TestParseTimeOfDay verifies valid and invalid HH:MM strings.
func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	tod, err := ParseTimeOfDay(" 18:05 ")
	require.NoError(t, err)
	require.Equal(t, 18, tod.Hour())
	require.Equal(t, 5, tod.Minute())
	require.Equal(t, "18:05", tod.String())

	for _, bad := range []string{"", "25:00", "18:60", "6pm", "18-00"} {
		_, err = ParseTimeOfDay(bad)
		require.Error(t, err, bad)
	}
}

// TestWindow_IsActiveMatchesRangeCheck compares IsActive with a direct range
// check for every minute of the day.
func TestWindow_IsActiveMatchesRangeCheck(t *testing.T) {
	t.Parallel()

	windows := []Window{
		{Start: MustParseTimeOfDay("09:00"), End: MustParseTimeOfDay("17:00")},
		{Start: MustParseTimeOfDay("18:00"), End: MustParseTimeOfDay("23:59")},
		{Start: MustParseTimeOfDay("18:00"), End: MustParseTimeOfDay("06:00")},
		{Start: MustParseTimeOfDay("23:30"), End: MustParseTimeOfDay("00:15")},
	}

	day := at(t, "2025-03-10 00:00:00")

	for _, w := range windows {
		for minute := range minutesPerDay {
			now := day.Add(time.Duration(minute) * time.Minute).Add(30 * time.Second)
			tod := TimeOfDay(minute)

			var want bool
			if w.Start < w.End {
				want = w.Start <= tod && tod < w.End
			} else {
				want = tod >= w.Start || tod < w.End
			}

			require.Equal(t, want, w.IsActive(now), "window %s at %s", w, tod)
		}
	}
}

// TestWindow_ActiveIntervalOvernight checks the concrete bounds of an
// overnight window before and after midnight.
func TestWindow_ActiveIntervalOvernight(t *testing.T) {
	t.Parallel()

	w := Window{Start: MustParseTimeOfDay("18:00"), End: MustParseTimeOfDay("06:00")}

	start, end := w.ActiveInterval(at(t, "2025-03-10 23:00:00"))
	require.Equal(t, at(t, "2025-03-10 18:00:00"), start)
	require.Equal(t, at(t, "2025-03-11 06:00:00"), end)

	start, end = w.ActiveInterval(at(t, "2025-03-11 02:00:00"))
	require.Equal(t, at(t, "2025-03-10 18:00:00"), start)
	require.Equal(t, at(t, "2025-03-11 06:00:00"), end)

	// Between the end and the next start the interval is the upcoming one.
	start, end = w.ActiveInterval(at(t, "2025-03-11 12:00:00"))
	require.Equal(t, at(t, "2025-03-11 18:00:00"), start)
	require.Equal(t, at(t, "2025-03-12 06:00:00"), end)
}

// TestWindow_ActiveIntervalWrapsAcrossDays asserts that a wrapping window
// always ends on the day after it starts and never spans more than a day.
func TestWindow_ActiveIntervalWrapsAcrossDays(t *testing.T) {
	t.Parallel()

	w := Window{Start: MustParseTimeOfDay("22:10"), End: MustParseTimeOfDay("03:40")}
	day := at(t, "2025-12-31 00:00:00")

	for minute := 0; minute < minutesPerDay; minute += 7 {
		now := day.Add(time.Duration(minute) * time.Minute)
		start, end := w.ActiveInterval(now)

		require.Equal(t, start.AddDate(0, 0, 1).YearDay(), end.YearDay())
		require.LessOrEqual(t, end.Sub(start), 24*time.Hour)

		if w.IsActive(now) {
			require.False(t, now.Before(start))
			require.True(t, now.Before(end))
		}
	}
}

// TestWindow_SameDayInterval checks that a same-day window uses now's date.
func TestWindow_SameDayInterval(t *testing.T) {
	t.Parallel()

	w := Window{Start: MustParseTimeOfDay("18:00"), End: MustParseTimeOfDay("23:59")}

	start, end := w.ActiveInterval(at(t, "2025-03-10 08:00:00"))
	require.Equal(t, at(t, "2025-03-10 18:00:00"), start)
	require.Equal(t, at(t, "2025-03-10 23:59:00"), end)
	require.False(t, w.IsActive(at(t, "2025-03-10 23:59:00")))
	require.True(t, w.IsActive(at(t, "2025-03-10 18:00:00")))
}

// TestWindow_FullDay checks that equal bounds cover a whole day.
func TestWindow_FullDay(t *testing.T) {
	t.Parallel()

	w := Window{Start: MustParseTimeOfDay("07:00"), End: MustParseTimeOfDay("07:00")}

	for _, value := range []string{"2025-03-10 06:59:00", "2025-03-10 07:00:00", "2025-03-10 19:00:00"} {
		now := at(t, value)
		require.True(t, w.IsActive(now))

		start, end := w.ActiveInterval(now)
		require.Equal(t, 24*time.Hour, end.Sub(start))
		require.False(t, now.Before(start))
		require.True(t, now.Before(end))
	}
}
