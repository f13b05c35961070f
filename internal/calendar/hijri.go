package calendar

import "time"

// hijriMonths in calendar order, Muharram first.
var hijriMonths = [12]string{
	"Muharram",
	"Safar",
	"Rabi' al-Awwal",
	"Rabi' al-Thani",
	"Jumada al-Ula",
	"Jumada al-Akhirah",
	"Rajab",
	"Sha'ban",
	"Ramadan",
	"Shawwal",
	"Dhu al-Qi'dah",
	"Dhu al-Hijjah",
}

// HijriDate is a date in the tabular (arithmetic) Islamic calendar. It is
// used only to name months: the observed month boundaries come from the
// crescent search, which can drift a day or two from the tabular scheme.
type HijriDate struct {
	Year  int
	Month int // 1-based, Muharram = 1
	Day   int
}

// MonthName returns the Islamic month name.
func (h HijriDate) MonthName() string {
	return hijriMonths[h.Month-1]
}

// FromGregorian converts a Gregorian calendar date to the tabular Islamic
// calendar (Kuwaiti algorithm, 30-year intercalation cycle).
func FromGregorian(t time.Time) HijriDate {
	l := julianDayNumber(t.Year(), int(t.Month()), t.Day()) - 1948440 + 10632
	n := (l - 1) / 10631
	l = l - 10631*n + 354
	j := ((10985-l)/5316)*((50*l)/17719) + (l/5670)*((43*l)/15238)
	l = l - ((30-j)/15)*((17719*j)/50) - (j/16)*((15238*j)/43) + 29

	month := (24 * l) / 709
	day := l - (709*month)/24
	year := 30*n + j - 30
	return HijriDate{Year: year, Month: month, Day: day}
}

// julianDayNumber implements the Fliegel-Van Flandern conversion. It relies
// on Go's truncating integer division, which the formula was designed for.
func julianDayNumber(year, month, day int) int {
	a := (month - 14) / 12
	return (1461*(year+4800+a))/4 +
		(367*(month-2-12*a))/12 -
		(3*((year+4900+a)/100))/4 +
		day - 32075
}
