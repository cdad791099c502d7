package format

import (
	"strconv"
	"strings"
	"time"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

var units = []struct {
	size   time.Duration
	suffix string
}{
	{week, "w"},
	{day, "d"},
	{time.Hour, "h"},
	{time.Minute, "m"},
	{time.Second, "s"},
	{time.Millisecond, "ms"},
}

// Compact renders d as space separated non-zero units, largest first:
// "1w 2d 3h 4m 5s 6ms". Anything below a millisecond is dropped, and a
// duration with no visible unit renders as "0".
func Compact(d time.Duration) string {
	// uint64 holds the magnitude of math.MinInt64.
	rest := uint64(d)
	if d < 0 {
		rest = -rest
	}

	var parts []string
	for _, u := range units {
		size := uint64(u.size)
		if n := rest / size; n > 0 {
			parts = append(parts, strconv.FormatUint(n, 10)+u.suffix)
			rest -= n * size
		}
	}

	if len(parts) == 0 {
		return "0"
	}
	if d < 0 {
		return "-" + strings.Join(parts, " ")
	}
	return strings.Join(parts, " ")
}
