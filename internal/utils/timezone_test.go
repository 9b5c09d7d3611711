package utils

import (
	"testing"
	"time"
)

func TestGenerateTimeSlots(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantBlocks int
	}{
		{"full day shift", "09:00", "17:00", 8},
		{"single hour", "09:00", "10:00", 1},
		{"start minutes ignored", "09:30", "12:00", 3},
		{"end minutes ignored", "09:00", "12:45", 3},
		{"midnight start", "00:00", "02:00", 2},
		{"equal bounds", "10:00", "10:00", 0},
		{"inverted bounds", "17:00", "09:00", 0},
		{"malformed start", "9am", "17:00", 0},
		{"malformed end", "09:00", "", 0},
		{"out of range hour", "25:00", "26:00", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := GenerateTimeSlots(tt.start, tt.end)
			if blocks == nil {
				t.Fatal("expected a non-nil slice")
			}
			if len(blocks) != tt.wantBlocks {
				t.Fatalf("got %d blocks, want %d", len(blocks), tt.wantBlocks)
			}
		})
	}
}

func TestGenerateTimeSlotsShape(t *testing.T) {
	for startHour := 0; startHour < 23; startHour++ {
		for endHour := startHour + 1; endHour <= 23; endHour++ {
			start := time.Date(0, 1, 1, startHour, 0, 0, 0, time.UTC).Format(ClockLayout)
			end := time.Date(0, 1, 1, endHour, 0, 0, 0, time.UTC).Format(ClockLayout)

			blocks := GenerateTimeSlots(start, end)
			if len(blocks) != endHour-startHour {
				t.Fatalf("%s-%s: %d blocks", start, end, len(blocks))
			}
			for i, b := range blocks {
				if len(b.Slots) != 6 {
					t.Fatalf("%s-%s block %d has %d slots", start, end, i, len(b.Slots))
				}
				for j, s := range b.Slots {
					minutes, err := ParseClock(s)
					if err != nil {
						t.Fatalf("slot %q: %v", s, err)
					}
					if minutes/60 == endHour {
						t.Fatalf("%s-%s: slot %s starts in the end hour", start, end, s)
					}
					if want := (startHour+i)*60 + j*SlotMinutes; minutes != want {
						t.Fatalf("slot %s = %d minutes, want %d", s, minutes, want)
					}
				}
			}
		}
	}
}

func TestGenerateTimeSlotsFromTimings(t *testing.T) {
	if got := GenerateTimeSlotsFromTimings(nil); len(got) != 0 {
		t.Errorf("nil timings gave %d blocks", len(got))
	}
	if got := GenerateTimeSlotsFromTimings([]string{"09:00"}); len(got) != 0 {
		t.Errorf("single timing gave %d blocks", len(got))
	}
	got := GenerateTimeSlotsFromTimings([]string{"09:00", "11:00"})
	if len(got) != 2 || got[1].Hour != "10:00" || got[1].Slots[5] != "10:50" {
		t.Errorf("unexpected blocks %+v", got)
	}
}

func TestLocalToUTC(t *testing.T) {
	tests := []struct {
		date, clock, tz string
		want            time.Time
	}{
		{"15-03-2025", "09:30", "UTC", time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC)},
		{"15-03-2025", "09:30", "", time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC)},
		{"15-03-2025", "09:30", "Asia/Kolkata", time.Date(2025, 3, 15, 4, 0, 0, 0, time.UTC)},
		{"01-07-2025", "08:00", "America/New_York", time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)},
		{"01-01-2025", "00:15", "Asia/Kathmandu", time.Date(2024, 12, 31, 18, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := LocalToUTC(tt.date, tt.clock, tt.tz)
		if err != nil {
			t.Fatalf("LocalToUTC(%s %s %s): %v", tt.date, tt.clock, tt.tz, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("LocalToUTC(%s %s %s) = %v, want %v", tt.date, tt.clock, tt.tz, got, tt.want)
		}
	}
}

func TestLocalToUTCRejectsMalformedInput(t *testing.T) {
	cases := [][3]string{
		{"2025-03-15", "09:30", "UTC"},
		{"15-3-2025", "09:30", "UTC"},
		{"15-03-2025", "9:30", "UTC"},
		{"15-03-2025", "09:30", "Mars/Olympus"},
		{"32-01-2025", "09:30", "UTC"},
	}
	for _, c := range cases {
		if _, err := LocalToUTC(c[0], c[1], c[2]); err == nil {
			t.Errorf("LocalToUTC(%q, %q, %q) succeeded", c[0], c[1], c[2])
		}
	}
}

func TestUTCToLocalRoundTrip(t *testing.T) {
	zones := []string{"UTC", "Asia/Kolkata", "America/New_York", "Europe/Paris", "Asia/Kathmandu", "Australia/Sydney"}
	base := time.Date(2025, 1, 10, 0, 7, 42, 0, time.UTC)
	for _, tz := range zones {
		for h := 0; h < 24*20; h += 7 {
			ts := base.Add(time.Duration(h) * time.Hour)
			local, err := UTCToLocal(ts, tz)
			if err != nil {
				t.Fatalf("UTCToLocal(%v, %s): %v", ts, tz, err)
			}
			back, err := LocalToUTC(local.Date, local.Time, tz)
			if err != nil {
				t.Fatalf("LocalToUTC(%s %s, %s): %v", local.Date, local.Time, tz, err)
			}
			if want := ts.Truncate(time.Minute); !back.Equal(want) {
				t.Fatalf("%s: round trip of %v gave %v", tz, want, back)
			}
		}
	}
}

func TestUTCToLocalDisplay(t *testing.T) {
	got, err := UTCToLocal(time.Date(2025, 3, 15, 4, 5, 0, 0, time.UTC), "Asia/Kolkata")
	if err != nil {
		t.Fatal(err)
	}
	want := LocalTime{Date: "15-03-2025", Time: "09:35", DisplayDate: "15 Mar 2025", DisplayTime: "09:35 AM"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestClockConversions(t *testing.T) {
	ref := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	local, err := UTCClockToLocal("03:30", "Asia/Kolkata", ref)
	if err != nil || local != "09:00" {
		t.Fatalf("UTCClockToLocal = %q, %v", local, err)
	}
	utc, err := LocalClockToUTC("09:00", "Asia/Kolkata", ref)
	if err != nil || utc != "03:30" {
		t.Fatalf("LocalClockToUTC = %q, %v", utc, err)
	}
}

func TestIsSlotInPast(t *testing.T) {
	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

	if !IsSlotInPast("15-03-2025", "09:50", "UTC", now) {
		t.Error("09:50 UTC should be past at 10:00 UTC")
	}
	if IsSlotInPast("15-03-2025", "10:10", "UTC", now) {
		t.Error("10:10 UTC should be upcoming at 10:00 UTC")
	}
	// 15:20 in Kolkata is 09:50 UTC.
	if !IsSlotInPast("15-03-2025", "15:20", "Asia/Kolkata", now) {
		t.Error("15:20 IST should be past at 10:00 UTC")
	}
	if IsSlotInPast("15-03-2025", "15:40", "Asia/Kolkata", now) {
		t.Error("15:40 IST should be upcoming at 10:00 UTC")
	}
	if !IsSlotInPast("bogus", "10:10", "UTC", now) {
		t.Error("unparseable slot should count as past")
	}
}

func TestFormatClockDisplay(t *testing.T) {
	for in, want := range map[string]string{"09:00": "9:00 AM", "13:10": "1:10 PM", "00:00": "12:00 AM", "x": "x"} {
		if got := FormatClockDisplay(in); got != want {
			t.Errorf("FormatClockDisplay(%q) = %q, want %q", in, got, want)
		}
	}
}
