package calendar

import (
	"testing"
	"time"
)

func testCalendar(t *testing.T) *Calendar {
	t.Helper()
	c, err := New([]SessionConfig{
		{ID: "nyse", Timezone: "America/New_York", Open: "09:30", Close: "16:00", Holidays: "us"},
		{ID: "bvc", Timezone: "America/Bogota", Open: "09:00", Close: "16:00"},
		{ID: "crypto", AlwaysOpen: true},
	})
	if err != nil {
		t.Fatalf("build calendar: %v", err)
	}
	return c
}

func inZone(t *testing.T, zone string, value string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(zone)
	if err != nil {
		t.Fatalf("load %s: %v", zone, err)
	}
	at, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	if err != nil {
		t.Fatalf("parse %s: %v", value, err)
	}
	return at
}

func TestWeekendsAreClosed(t *testing.T) {
	c := testCalendar(t)

	// 2024-06-08 is a Saturday, 2024-06-09 a Sunday.
	for _, day := range []string{"2024-06-08 12:00", "2024-06-09 12:00"} {
		at := inZone(t, "America/New_York", day)
		if c.IsSessionOpen("nyse", at) {
			t.Errorf("nyse should be closed on %s", day)
		}
		if c.IsSessionOpen("bvc", at) {
			t.Errorf("bvc should be closed on %s", day)
		}
		if !c.IsSessionOpen("crypto", at) {
			t.Errorf("crypto must stay open on %s", day)
		}
	}
}

func TestTradingHours(t *testing.T) {
	c := testCalendar(t)

	cases := []struct {
		name    string
		session string
		at      string
		zone    string
		want    bool
	}{
		{"nyse midday tuesday", "nyse", "2024-06-04 12:00", "America/New_York", true},
		{"nyse at open", "nyse", "2024-06-04 09:30", "America/New_York", true},
		{"nyse at close", "nyse", "2024-06-04 16:00", "America/New_York", true},
		{"nyse before open", "nyse", "2024-06-04 09:29", "America/New_York", false},
		{"nyse after close", "nyse", "2024-06-04 16:01", "America/New_York", false},
		{"nyse independence day", "nyse", "2024-07-04 12:00", "America/New_York", false},
		{"bvc midday", "bvc", "2024-06-04 10:00", "America/Bogota", true},
		{"bvc evening", "bvc", "2024-06-04 18:00", "America/Bogota", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			at := inZone(t, tc.zone, tc.at)
			if got := c.IsSessionOpen(tc.session, at); got != tc.want {
				t.Fatalf("IsSessionOpen(%s, %s) = %v, want %v", tc.session, tc.at, got, tc.want)
			}
		})
	}
}

func TestStatusReportsEverySession(t *testing.T) {
	c := testCalendar(t)
	at := inZone(t, "America/New_York", "2024-06-04 12:00")

	status := c.Status(at)
	if len(status) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(status))
	}
	if !status["nyse"].Open {
		t.Error("nyse should report open")
	}
	if status["nyse"].Weekday != "Tuesday" {
		t.Errorf("weekday should be Tuesday, got %s", status["nyse"].Weekday)
	}
	if status["nyse"].LocalTime != "12:00" {
		t.Errorf("local time should be 12:00, got %s", status["nyse"].LocalTime)
	}
	if !status["crypto"].Open {
		t.Error("crypto should always report open")
	}
}

func TestStatusAlwaysOpenSessionReportsUTC(t *testing.T) {
	c := testCalendar(t)
	// 12:00 in New York on 2024-06-04 is 16:00 UTC. The crypto session has
	// no venue timezone, so its state must not inherit the caller's zone.
	at := inZone(t, "America/New_York", "2024-06-04 12:00")

	state := c.Status(at)["crypto"]
	if state.LocalTime != "16:00" {
		t.Errorf("always-open local time = %s, want 16:00 (UTC)", state.LocalTime)
	}
	if state.Weekday != "Tuesday" {
		t.Errorf("always-open weekday = %s, want Tuesday", state.Weekday)
	}
}

func TestAnyOpen(t *testing.T) {
	c := testCalendar(t)
	saturday := inZone(t, "America/New_York", "2024-06-08 12:00")

	if c.AnyOpen([]string{"nyse", "bvc"}, saturday) {
		t.Error("no equity session should be open on Saturday")
	}
	if !c.AnyOpen(nil, saturday) {
		t.Error("empty session list means always eligible")
	}
}

func TestUnknownHolidayCalendarRejected(t *testing.T) {
	_, err := New([]SessionConfig{{ID: "x", Timezone: "UTC", Open: "09:00", Close: "16:00", Holidays: "mars"}})
	if err == nil {
		t.Fatal("unknown holiday calendar should fail construction")
	}
}
