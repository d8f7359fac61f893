package articles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatPHPDate(t *testing.T) {
	ts := time.Date(2024, 3, 2, 14, 5, 9, 0, time.UTC)

	tests := []struct {
		format string
		want   string
	}{
		{"Y-m-d", "2024-03-02"},
		{"d.m.y H:i:s", "02.03.24 14:05:09"},
		{"D, j M Y", "Sat, 2 Mar 2024"},
		{"l jS F", "Saturday 2nd March"},
		{"g:i a", "2:05 pm"},
		{"G A", "14 PM"},
		{"N w z t L", "6 6 61 31 1"},
		{"W o", "09 2024"},
		{"U", "1709388309"},
		{"c", "2024-03-02T14:05:09+00:00"},
		{`\Y\e\s Y`, "Yes 2024"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPHPDate(ts, tt.format))
		})
	}
}

func TestOrdinalSuffix(t *testing.T) {
	for day, want := range map[int]string{1: "st", 2: "nd", 3: "rd", 4: "th", 11: "th", 12: "th", 13: "th", 21: "st", 22: "nd", 31: "st"} {
		assert.Equal(t, want, ordinalSuffix(day), "day %d", day)
	}
}
