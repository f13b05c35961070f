package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/moonsight/internal/calendar"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFromGregorian(t *testing.T) {
	tests := []struct {
		name      string
		gregorian time.Time
		want      calendar.HijriDate
	}{
		{
			name:      "epoch",
			gregorian: date(622, time.July, 19),
			want:      calendar.HijriDate{Year: 1, Month: 1, Day: 1},
		},
		{
			name:      "mid ramadan 1445",
			gregorian: date(2024, time.March, 25),
			want:      calendar.HijriDate{Year: 1445, Month: 9, Day: 15},
		},
		{
			name:      "last day of 1445",
			gregorian: date(2024, time.July, 7),
			want:      calendar.HijriDate{Year: 1445, Month: 12, Day: 30},
		},
		{
			name:      "new year 1446",
			gregorian: date(2024, time.July, 8),
			want:      calendar.HijriDate{Year: 1446, Month: 1, Day: 1},
		},
		{
			name:      "shawwal 1447",
			gregorian: date(2026, time.April, 4),
			want:      calendar.HijriDate{Year: 1447, Month: 10, Day: 16},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, calendar.FromGregorian(tc.gregorian))
		})
	}
}

func TestFromGregorian_ConsecutiveDaysStayOrdered(t *testing.T) {
	// Walking a year of days must never step the tabular date backwards
	// and must wrap month and year boundaries cleanly.
	prev := calendar.FromGregorian(date(2025, time.January, 1))
	for d := date(2025, time.January, 2); d.Year() == 2025; d = d.AddDate(0, 0, 1) {
		cur := calendar.FromGregorian(d)

		prevOrd := prev.Year*12*30 + (prev.Month-1)*30 + prev.Day
		curOrd := cur.Year*12*30 + (cur.Month-1)*30 + cur.Day
		assert.Greater(t, curOrd, prevOrd, "date %s went backwards", d.Format("2006-01-02"))

		assert.GreaterOrEqual(t, cur.Month, 1)
		assert.LessOrEqual(t, cur.Month, 12)
		assert.GreaterOrEqual(t, cur.Day, 1)
		assert.LessOrEqual(t, cur.Day, 30)
		prev = cur
	}
}

func TestHijriDateMonthName(t *testing.T) {
	assert.Equal(t, "Muharram", calendar.HijriDate{Year: 1446, Month: 1, Day: 1}.MonthName())
	assert.Equal(t, "Ramadan", calendar.HijriDate{Year: 1445, Month: 9, Day: 15}.MonthName())
	assert.Equal(t, "Dhu al-Hijjah", calendar.HijriDate{Year: 1445, Month: 12, Day: 30}.MonthName())
}
