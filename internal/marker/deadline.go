package marker

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Deadline is a marker due date. Quarter deadlines resolve to the last
// day of the quarter at parse time, so a Deadline is always a concrete
// calendar day.
type Deadline struct {
	Year  int
	Month int
	Day   int
}

// ParseDeadline parses "YYYY-MM-DD" or "YYYY-QN" (lowercase q accepted).
// Q1 resolves to Mar 31, Q2 to Jun 30, Q3 to Sep 30, Q4 to Dec 31.
func ParseDeadline(s string) (Deadline, bool) {
	s = strings.TrimSpace(s)

	if year, rest, ok := strings.Cut(s, "-"); ok {
		if len(rest) > 1 && (rest[0] == 'Q' || rest[0] == 'q') {
			y, err := strconv.Atoi(year)
			if err != nil {
				return Deadline{}, false
			}
			q, err := strconv.Atoi(rest[1:])
			if err != nil || q < 1 || q > 4 {
				return Deadline{}, false
			}
			quarterEnds := [4][2]int{{3, 31}, {6, 30}, {9, 30}, {12, 31}}
			end := quarterEnds[q-1]
			return Deadline{Year: y, Month: end[0], Day: end[1]}, true
		}
	}

	parts := strings.SplitN(s, "-", 3)
	if len(parts) != 3 {
		return Deadline{}, false
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return Deadline{}, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return Deadline{}, false
	}
	d, err := strconv.Atoi(parts[2])
	if err != nil || d < 1 || d > 31 {
		return Deadline{}, false
	}
	return Deadline{Year: y, Month: m, Day: d}, true
}

// Today returns the current UTC date as a Deadline.
func Today() Deadline {
	now := time.Now().UTC()
	return Deadline{Year: now.Year(), Month: int(now.Month()), Day: now.Day()}
}

// IsZero reports whether d is the absent deadline.
func (d Deadline) IsZero() bool {
	return d == Deadline{}
}

// Expired reports whether d falls strictly before today. A deadline due
// today is not yet expired.
func (d Deadline) Expired(today Deadline) bool {
	if d.Year != today.Year {
		return d.Year < today.Year
	}
	if d.Month != today.Month {
		return d.Month < today.Month
	}
	return d.Day < today.Day
}

func (d Deadline) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// MarshalText renders the deadline in its canonical YYYY-MM-DD form.
func (d Deadline) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts either supported deadline format.
func (d *Deadline) UnmarshalText(text []byte) error {
	parsed, ok := ParseDeadline(string(text))
	if !ok {
		return fmt.Errorf("invalid deadline: %q", text)
	}
	*d = parsed
	return nil
}
