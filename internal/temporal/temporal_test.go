package temporal_test

import (
	"testing"
	"time"

	"auroraguard/enricher/internal/sampling"
	"auroraguard/enricher/internal/temporal"
)

var start = time.Date(2017, 12, 1, 0, 0, 0, 0, time.UTC)

func TestParseStart_EmptyMeansDefault(t *testing.T) {
	got, err := temporal.ParseStart("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := temporal.ParseStart(temporal.DefaultStartDate)
	if !got.Equal(want) || !got.Equal(start) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestParseStart(t *testing.T) {
	got, err := temporal.ParseStart("2017-12-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(start) {
		t.Errorf("expected %v, got %v", start, got)
	}
	if _, err := temporal.ParseStart("12/01/2017"); err == nil {
		t.Error("expected error for non ISO date")
	}
}

func TestBaseTimes_FromOffsets(t *testing.T) {
	got := temporal.BaseTimes([]string{"86400", "86401.0", ""}, true, 3, start, temporal.SyntheticStep)
	if want := start.Add(24 * time.Hour); !got[0].Equal(want) {
		t.Errorf("row 0: expected %v, got %v", want, got[0])
	}
	if want := start.Add(24*time.Hour + time.Second); !got[1].Equal(want) {
		t.Errorf("row 1: expected %v, got %v", want, got[1])
	}
	// Missing value falls back to the synthetic position.
	if want := start.Add(2 * time.Minute); !got[2].Equal(want) {
		t.Errorf("row 2: expected %v, got %v", want, got[2])
	}
}

func TestBaseTimes_AbsentColumnIsEvenlySpaced(t *testing.T) {
	got := temporal.BaseTimes(nil, false, 4, start, temporal.SyntheticStep)
	for i, ts := range got {
		if want := start.Add(time.Duration(i) * time.Minute); !ts.Equal(want) {
			t.Errorf("row %d: expected %v, got %v", i, want, ts)
		}
	}
}

func TestJitter_WholeSecondsAndCentered(t *testing.T) {
	const n = 50_000
	ts := make([]time.Time, n)
	for i := range ts {
		ts[i] = start
	}
	got := temporal.Jitter(sampling.New(42, sampling.StreamEventJitter), ts, temporal.EventJitter)

	var total time.Duration
	for i, j := range got {
		d := j.Sub(start)
		if d%time.Second != 0 {
			t.Fatalf("row %d: jitter %v is not a whole number of seconds", i, d)
		}
		total += d
	}
	if mean := total.Seconds() / n; mean < -3 || mean > 3 {
		t.Errorf("expected mean jitter near 0s, got %.2fs", mean)
	}
	if !ts[0].Equal(start) {
		t.Error("Jitter mutated its input")
	}
}

func TestLabelTimes_ExactDelay(t *testing.T) {
	ts := temporal.Jitter(sampling.New(1, sampling.StreamPostJitter), []time.Time{start, start, start}, temporal.PostJitter)
	labels := temporal.LabelTimes(ts, temporal.DefaultDelayDays)
	for i := range ts {
		if d := labels[i].Sub(ts[i]); d != 45*24*time.Hour {
			t.Errorf("row %d: expected 45 day delay, got %v", i, d)
		}
	}
}

func TestEventDates(t *testing.T) {
	got := temporal.EventDates([]time.Time{
		time.Date(2017, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if got[0] != "2017-12-31" || got[1] != "2018-01-01" {
		t.Errorf("unexpected dates %v", got)
	}
}
