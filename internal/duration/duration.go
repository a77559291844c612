// Package duration parses the retention periods taken by "log --since"
// and "log prune --older-than".
//
// Periods are written as a count and a unit: "12h", "7d", "4w" or "3m"
// (a month is 30 days). Go's time.Duration syntax has no day unit, which
// is the unit people think of audit history in.
package duration

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalid is returned for anything that is not a positive period.
var ErrInvalid = errors.New("invalid period")

var pattern = regexp.MustCompile(`^(\d+)([hdwm])$`)

const day = 24 * time.Hour

var units = map[string]time.Duration{
	"h": time.Hour,
	"d": day,
	"w": 7 * day,
	"m": 30 * day,
}

// Parse converts a period such as "7d" into a duration.
func Parse(s string) (time.Duration, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q (use 12h, 7d, 4w or 3m)", ErrInvalid, s)
	}
	n, err := strconv.ParseInt(m[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalid, s, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %q is zero", ErrInvalid, s)
	}
	return time.Duration(n) * units[m[2]], nil
}

// Cutoff returns the instant that lies the period s before now.
func Cutoff(s string, now time.Time) (time.Time, error) {
	d, err := Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(-d), nil
}
