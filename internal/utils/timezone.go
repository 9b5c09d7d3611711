package utils

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone database for hosts without /usr/share/zoneinfo
)

const (
	DateLayout  = "02-01-2006"
	ClockLayout = "15:04"

	// SlotMinutes is the fixed booking granularity; an hour block holds 60/SlotMinutes slots.
	SlotMinutes = 10
)

// LocalTime is a UTC instant rendered in a viewer's timezone.
type LocalTime struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	DisplayDate string `json:"displayDate"`
	DisplayTime string `json:"displayTime"`
}

// HourBlock groups the bookable slots starting within one hour.
type HourBlock struct {
	Hour        string   `json:"hour"`
	DisplayHour string   `json:"displayHour"`
	Slots       []string `json:"slots"`
}

// LoadTimezone resolves an IANA zone name. An empty name means UTC.
func LoadTimezone(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return loc, nil
}

// ParseDate validates a DD-MM-YYYY date and returns midnight UTC of that day.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected DD-MM-YYYY", date)
	}
	return t, nil
}

// ParseClock returns the minutes since midnight of a 24-hour HH:mm value.
func ParseClock(clock string) (int, error) {
	if len(clock) != len(ClockLayout) {
		return 0, fmt.Errorf("invalid time %q, expected HH:mm", clock)
	}
	t, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:mm", clock)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// LocalToUTC interprets date (DD-MM-YYYY) and clock (HH:mm) as wall time in tz.
func LocalToUTC(date, clock, tz string) (time.Time, error) {
	loc, err := LoadTimezone(tz)
	if err != nil {
		return time.Time{}, err
	}
	if _, err := ParseDate(date); err != nil {
		return time.Time{}, err
	}
	if _, err := ParseClock(clock); err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s %s: %w", date, clock, err)
	}
	return t.UTC(), nil
}

func UTCToLocal(t time.Time, tz string) (LocalTime, error) {
	loc, err := LoadTimezone(tz)
	if err != nil {
		return LocalTime{}, err
	}
	l := t.In(loc)
	return LocalTime{
		Date:        l.Format(DateLayout),
		Time:        l.Format(ClockLayout),
		DisplayDate: l.Format("02 Jan 2006"),
		DisplayTime: l.Format("03:04 PM"),
	}, nil
}

// UTCClockToLocal converts a bare UTC HH:mm to the viewer's wall clock on
// the day of ref.
func UTCClockToLocal(clock, tz string, ref time.Time) (string, error) {
	utc, err := LocalToUTC(ref.UTC().Format(DateLayout), clock, "UTC")
	if err != nil {
		return "", err
	}
	local, err := UTCToLocal(utc, tz)
	if err != nil {
		return "", err
	}
	return local.Time, nil
}

// LocalClockToUTC is the inverse of UTCClockToLocal. Doctors declare their
// timings in local time and they are stored in UTC.
func LocalClockToUTC(clock, tz string, ref time.Time) (string, error) {
	loc, err := LoadTimezone(tz)
	if err != nil {
		return "", err
	}
	utc, err := LocalToUTC(ref.In(loc).Format(DateLayout), clock, tz)
	if err != nil {
		return "", err
	}
	return utc.Format(ClockLayout), nil
}

// GenerateTimeSlots enumerates 10-minute slots for every hour in
// [startHour, endHour). Only the hour of each bound is used. Malformed
// bounds produce an empty list.
func GenerateTimeSlots(start, end string) []HourBlock {
	blocks := []HourBlock{}

	startMin, err := ParseClock(start)
	if err != nil {
		return blocks
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return blocks
	}

	startHour, endHour := startMin/60, endMin/60
	for hour := startHour; hour < endHour; hour++ {
		hourStr := fmt.Sprintf("%02d:00", hour)
		slots := make([]string, 0, 60/SlotMinutes)
		for min := 0; min < 60; min += SlotMinutes {
			slots = append(slots, fmt.Sprintf("%02d:%02d", hour, min))
		}
		blocks = append(blocks, HourBlock{
			Hour:        hourStr,
			DisplayHour: hourStr,
			Slots:       slots,
		})
	}
	return blocks
}

// GenerateTimeSlotsFromTimings accepts a doctor's [start, end] pair.
func GenerateTimeSlotsFromTimings(timings []string) []HourBlock {
	if len(timings) != 2 {
		return []HourBlock{}
	}
	return GenerateTimeSlots(strings.TrimSpace(timings[0]), strings.TrimSpace(timings[1]))
}

// IsSlotInPast reports whether the slot, read as wall time in tz, is before now.
// A slot that cannot be interpreted is never bookable, so it counts as past.
func IsSlotInPast(date, clock, tz string, now time.Time) bool {
	slot, err := LocalToUTC(date, clock, tz)
	if err != nil {
		return true
	}
	return slot.Before(now)
}

// FormatClockDisplay renders HH:mm as "9:00 AM".
func FormatClockDisplay(clock string) string {
	t, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return clock
	}
	return t.Format("3:04 PM")
}

// TimezoneAbbr returns the zone abbreviation in effect at the given instant.
func TimezoneAbbr(tz string, at time.Time) string {
	loc, err := LoadTimezone(tz)
	if err != nil {
		return tz
	}
	name, _ := at.In(loc).Zone()
	return name
}
