package articles

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatPHPDate renders t using a PHP date() format string. Unknown letters
// are copied through; a backslash escapes the next character.
func FormatPHPDate(t time.Time, format string) string {
	var b strings.Builder
	escaped := false
	for _, r := range format {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteString(phpDateToken(t, r))
	}
	return b.String()
}

func phpDateToken(t time.Time, r rune) string {
	switch r {
	// Day
	case 'd':
		return t.Format("02")
	case 'D':
		return t.Format("Mon")
	case 'j':
		return strconv.Itoa(t.Day())
	case 'l':
		return t.Format("Monday")
	case 'N':
		wd := int(t.Weekday())
		if wd == 0 {
			wd = 7
		}
		return strconv.Itoa(wd)
	case 'S':
		return ordinalSuffix(t.Day())
	case 'w':
		return strconv.Itoa(int(t.Weekday()))
	case 'z':
		return strconv.Itoa(t.YearDay() - 1)

	// Week
	case 'W':
		_, week := t.ISOWeek()
		return fmt.Sprintf("%02d", week)

	// Month
	case 'F':
		return t.Format("January")
	case 'm':
		return t.Format("01")
	case 'M':
		return t.Format("Jan")
	case 'n':
		return strconv.Itoa(int(t.Month()))
	case 't':
		return strconv.Itoa(time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day())

	// Year
	case 'L':
		if isLeap(t.Year()) {
			return "1"
		}
		return "0"
	case 'o':
		year, _ := t.ISOWeek()
		return strconv.Itoa(year)
	case 'Y':
		return strconv.Itoa(t.Year())
	case 'y':
		return t.Format("06")

	// Time
	case 'a':
		return t.Format("pm")
	case 'A':
		return t.Format("PM")
	case 'g':
		return t.Format("3")
	case 'G':
		return strconv.Itoa(t.Hour())
	case 'h':
		return t.Format("03")
	case 'H':
		return t.Format("15")
	case 'i':
		return t.Format("04")
	case 's':
		return t.Format("05")
	case 'u':
		return fmt.Sprintf("%06d", t.Nanosecond()/1000)
	case 'v':
		return fmt.Sprintf("%03d", t.Nanosecond()/1000000)

	// Time zone
	case 'e':
		return t.Location().String()
	case 'I':
		if t.IsDST() {
			return "1"
		}
		return "0"
	case 'O':
		return t.Format("-0700")
	case 'P':
		return t.Format("-07:00")
	case 'T':
		return t.Format("MST")
	case 'Z':
		_, offset := t.Zone()
		return strconv.Itoa(offset)

	// Full date/time
	case 'c':
		return t.Format("2006-01-02T15:04:05-07:00")
	case 'r':
		return t.Format("Mon, 02 Jan 2006 15:04:05 -0700")
	case 'U':
		return strconv.FormatInt(t.Unix(), 10)
	}
	return string(r)
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
