// Package timemath converts provider wall-clock times to UTC instants.
package timemath

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

const dateLayout = "2006-01-02"

// Clock is a 24h time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

func ParseClock(s string) (Clock, error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return Clock{}, model.Errorf(model.KindInvalidTimeFormat, "time %q must be HH:mm (24h)", s)
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	return Clock{Hour: h, Minute: mi}, nil
}

func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Date is a civil calendar date with no zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, model.Errorf(model.KindInvalidTimeFormat, "date %q must be YYYY-MM-DD", s)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DateOf returns the calendar date of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// LoadZone resolves an IANA zone name. The process-local zone is rejected
// so results never depend on the host.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return nil, model.Errorf(model.KindInvalidTimezone, "timezone %q is not an IANA identifier", name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, model.Errorf(model.KindInvalidTimezone, "unknown timezone %q", name)
	}
	return loc, nil
}

// LocalToUTC interprets timeOfDay as wall-clock time in timezone on date.
func LocalToUTC(timeOfDay, timezone string, date Date) (time.Time, error) {
	clock, err := ParseClock(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := LoadZone(timezone)
	if err != nil {
		return time.Time{}, err
	}
	return At(date, clock, loc), nil
}

// At resolves a wall clock on date in loc to a UTC instant.
// A repeated wall time (DST fall-back) resolves to the earlier instant.
// A skipped wall time (DST spring-forward) moves forward by the length of the gap.
func At(date Date, clock Clock, loc *time.Location) time.Time {
	naive := time.Date(date.Year, date.Month, date.Day, clock.Hour, clock.Minute, 0, 0, time.UTC)

	_, before := naive.Add(-24 * time.Hour).In(loc).Zone()
	_, after := naive.Add(24 * time.Hour).In(loc).Zone()

	var best time.Time
	for _, off := range []int{before, after} {
		candidate := naive.Add(-time.Duration(off) * time.Second)
		if !sameWallClock(candidate.In(loc), naive) {
			continue
		}
		if best.IsZero() || candidate.Before(best) {
			best = candidate
		}
	}
	if best.IsZero() {
		best = naive.Add(-time.Duration(before) * time.Second)
	}
	return best.UTC()
}

func sameWallClock(local, naive time.Time) bool {
	y1, m1, d1 := local.Date()
	y2, m2, d2 := naive.Date()
	return y1 == y2 && m1 == m2 && d1 == d2 &&
		local.Hour() == naive.Hour() && local.Minute() == naive.Minute()
}
