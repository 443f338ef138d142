package testfixtures

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	t.Run("zero start falls back to the reference time", func(t *testing.T) {
		clock := NewClock(time.Time{})
		if got := clock.Now(); !got.Equal(ReferenceTime()) {
			t.Fatalf("expected %v, got %v", ReferenceTime(), got)
		}
	})

	t.Run("stopped clock only moves when told", func(t *testing.T) {
		start := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)
		clock := NewClock(start)
		now := clock.NowFunc()

		if first, second := now(), now(); !first.Equal(second) {
			t.Fatalf("stopped clock drifted: %v then %v", first, second)
		}
		if got := clock.Advance(90 * time.Minute); !got.Equal(start.Add(90 * time.Minute)) {
			t.Fatalf("advance returned %v", got)
		}
		clock.Set(start)
		if got := now(); !got.Equal(start) {
			t.Fatalf("expected %v after Set, got %v", start, got)
		}
	})

	t.Run("ticking clock advances after each reading", func(t *testing.T) {
		start := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)
		clock := NewTickingClock(start, time.Second)

		first := clock.Now()
		second := clock.Now()
		if !first.Equal(start) || !second.Equal(start.Add(time.Second)) {
			t.Fatalf("unexpected readings %v, %v", first, second)
		}
	})

	t.Run("non-UTC start is normalised", func(t *testing.T) {
		tokyo := time.FixedZone("JST", 9*60*60)
		clock := NewClock(time.Date(2024, time.March, 14, 18, 0, 0, 0, tokyo))
		if loc := clock.Now().Location(); loc != time.UTC {
			t.Fatalf("expected UTC, got %v", loc)
		}
	})
}
