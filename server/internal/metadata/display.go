package metadata

import (
	"fmt"
	"math"
	"strconv"
)

// FormatDuration renders seconds as m:ss. Minutes are not rolled over into
// hours, 3661 seconds is "61:01".
func FormatDuration(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	s := int64(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

var compactUnits = []struct {
	value  float64
	suffix string
}{
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// FormatViews renders a view count in short English compact notation
// (1200000 -> "1.2M"). Missing or zero counts render as "N/A".
func FormatViews(views *float64) string {
	if views == nil || *views <= 0 {
		return "N/A"
	}
	return compact(*views)
}

// compact keeps two significant digits below 100 of a unit and rounds to
// an integer above, carrying into the next unit when rounding reaches 1000.
func compact(n float64) string {
	for i, u := range compactUnits {
		if n < u.value {
			continue
		}

		v := roundCompact(n / u.value)
		if v >= 1000 && i > 0 {
			prev := compactUnits[i-1]
			return strconv.FormatFloat(roundCompact(n/prev.value), 'f', -1, 64) + prev.suffix
		}
		return strconv.FormatFloat(v, 'f', -1, 64) + u.suffix
	}

	return strconv.FormatFloat(math.Round(n), 'f', -1, 64)
}

func roundCompact(v float64) float64 {
	if v < 10 {
		return math.Round(v*10) / 10
	}
	return math.Round(v)
}
