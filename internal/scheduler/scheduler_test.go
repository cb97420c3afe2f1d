package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testOptions() Options {
	return Options{
		PrimaryWait:   30 * time.Minute,
		SecondaryWait: 40 * time.Minute,
		OffHoursWait:  60 * time.Minute,
		Cooldown:      5 * time.Minute,
	}
}

func TestWaitTierSelection(t *testing.T) {
	opts := testOptions()

	cases := []struct {
		name string
		hint WaitHint
		want time.Duration
	}{
		{"primary session open", WaitPrimary, 30 * time.Minute},
		{"only secondary open", WaitSecondary, 40 * time.Minute},
		{"no session open", WaitOffHours, 60 * time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := opts.WaitFor(tc.hint); got != tc.want {
				t.Fatalf("WaitFor(%s) = %s, want %s", tc.hint, got, tc.want)
			}
		})
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fast := testOptions()
	fast.PrimaryWait = time.Millisecond
	fast.SecondaryWait = time.Millisecond
	fast.OffHoursWait = time.Millisecond
	fast.Cooldown = time.Millisecond

	s := New(fast, zerolog.Nop())

	calls := 0
	err := s.Run(ctx, func(ctx context.Context, cycle int) (WaitHint, error) {
		calls++
		if calls >= 3 {
			cancel()
		}
		return WaitPrimary, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if calls < 3 {
		t.Fatalf("cycle ran %d times, want at least 3", calls)
	}
}

func TestRunSurvivesFailuresAndPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fast := testOptions()
	fast.PrimaryWait = time.Millisecond
	fast.SecondaryWait = time.Millisecond
	fast.OffHoursWait = time.Millisecond
	fast.Cooldown = time.Millisecond

	s := New(fast, zerolog.Nop())

	calls := 0
	err := s.Run(ctx, func(ctx context.Context, cycle int) (WaitHint, error) {
		calls++
		switch calls {
		case 1:
			return WaitOffHours, errors.New("provider unreachable")
		case 2:
			panic("unexpected state")
		default:
			cancel()
			return WaitPrimary, nil
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if calls != 3 {
		t.Fatalf("cycle ran %d times, want 3", calls)
	}
}

func TestNewRejectsNonPositiveTiers(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero wait tier")
		}
	}()
	New(Options{PrimaryWait: time.Minute, SecondaryWait: 0, OffHoursWait: time.Minute}, zerolog.Nop())
}
