package calendar

import (
	"testing"
	"time"
)

func TestIsTradingDayWeekend(t *testing.T) {
	c := New(time.UTC)
	sat := time.Date(2026, 1, 17, 0, 0, 0, 0, time.UTC)
	sun := time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC)
	mon := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)

	if c.IsTradingDay(sat) {
		t.Error("Saturday should not be a trading day")
	}
	if c.IsTradingDay(sun) {
		t.Error("Sunday should not be a trading day")
	}
	if !c.IsTradingDay(mon) {
		t.Error("Monday should be a trading day")
	}
}

func TestIsTradingDayHoliday(t *testing.T) {
	c := New(time.UTC, "20260101")
	newYears := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if c.IsTradingDay(newYears) {
		t.Error("holiday should not be a trading day")
	}
}

func TestNextTradingDaySkipsWeekend(t *testing.T) {
	c := New(time.UTC)
	sat := time.Date(2026, 1, 17, 0, 0, 0, 0, time.UTC)
	got := c.NextTradingDay(sat)
	want := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextTradingDay(sat) = %v, want %v", got, want)
	}
}

func TestPreviousTradingDaySkipsWeekendAndHoliday(t *testing.T) {
	c := New(time.UTC, "20260116")
	mon := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)
	got := c.PreviousTradingDay(mon)
	want := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC) // Thursday: Sun, Sat and the Friday holiday are skipped
	if !got.Equal(want) {
		t.Errorf("PreviousTradingDay(mon) = %v, want %v", got, want)
	}
}
