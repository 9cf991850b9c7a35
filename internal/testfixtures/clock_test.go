package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Peek())
	}
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("frozen clock should not move between reads")
	}
}

func TestSteppingClockAdvancesPerRead(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
	clock := NewSteppingClock(start, time.Minute)

	first := clock.Now()
	second := clock.Now()
	if !first.Equal(start) {
		t.Fatalf("expected first read %v, got %v", start, first)
	}
	if !second.Equal(start.Add(time.Minute)) {
		t.Fatalf("expected second read %v, got %v", start.Add(time.Minute), second)
	}
	if !clock.Peek().Equal(start.Add(2 * time.Minute)) {
		t.Fatalf("unexpected peek %v", clock.Peek())
	}
}

func TestClockAdvanceAndNowFunc(t *testing.T) {
	clock := NewClock(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	nowFn := clock.NowFunc()

	updated := clock.Advance(90 * time.Minute)
	if got := nowFn(); !got.Equal(updated) {
		t.Fatalf("expected %v from NowFunc, got %v", updated, got)
	}

	var nilClock *Clock
	if nilClock.NowFunc() == nil {
		t.Fatalf("nil clock should fall back to time.Now")
	}
}
