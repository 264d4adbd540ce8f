// Package temporal anchors relative offsets to calendar time, jitters
// timestamps and derives the label-availability time.
package temporal

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"auroraguard/enricher/internal/sampling"
)

// Temporal defaults.
const (
	DateLayout = "2006-01-02"

	DefaultStartDate = "2017-12-01"
	DefaultDelayDays = 45

	// SyntheticStep spaces rows that carry no usable offset.
	SyntheticStep = time.Minute

	// EventJitter is applied once after base-time assignment, PostJitter once
	// after resampling.
	EventJitter = 120 * time.Second
	PostJitter  = 60 * time.Second
)

// ParseStart parses a YYYY-MM-DD start date as midnight UTC. An empty string
// means DefaultStartDate.
func ParseStart(s string) (time.Time, error) {
	if s == "" {
		s = DefaultStartDate
	}
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// BaseTimes converts offsets in seconds from start into timestamps. When the
// offset column is absent, or a single value is empty or unparseable, the
// row gets start + i*step instead, i being its input position.
func BaseTimes(offsets []string, present bool, n int, start time.Time, step time.Duration) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		if present && i < len(offsets) {
			if secs, ok := parseSeconds(offsets[i]); ok {
				out[i] = start.Add(secs)
				continue
			}
		}
		out[i] = start.Add(time.Duration(i) * step)
	}
	return out
}

func parseSeconds(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return time.Duration(math.Round(v * float64(time.Second))), true
}

// Jitter adds N(0, stddev) noise rounded to whole seconds to every timestamp
// and returns the result as a new slice.
func Jitter(rng *rand.Rand, ts []time.Time, stddev time.Duration) []time.Time {
	noise := sampling.Normals(rng, len(ts), stddev.Seconds())
	out := make([]time.Time, len(ts))
	for i, t := range ts {
		out[i] = t.Add(time.Duration(math.Round(noise[i])) * time.Second)
	}
	return out
}

// Delay returns the label delay for a whole number of days.
func Delay(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// LabelTimes returns ts + days for every timestamp.
func LabelTimes(ts []time.Time, days int) []time.Time {
	d := Delay(days)
	out := make([]time.Time, len(ts))
	for i, t := range ts {
		out[i] = t.Add(d)
	}
	return out
}

// EventDates truncates every timestamp to its UTC calendar date.
func EventDates(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.UTC().Format(DateLayout)
	}
	return out
}
