package player

import (
	"math"
	"time"
)

// TimeBase is the rational number of seconds per timestamp tick.
type TimeBase struct {
	Numer uint32
	Denom uint32
}

// Time is a point in a track split into whole seconds and a fractional second.
type Time struct {
	Seconds uint64
	Frac    float64
}

// NewTimeBase returns a time base of numer/denom seconds per tick.
func NewTimeBase(numer, denom uint32) TimeBase {
	return TimeBase{Numer: numer, Denom: denom}
}

// Valid reports whether the time base can be used for conversions.
func (tb TimeBase) Valid() bool {
	return tb.Numer != 0 && tb.Denom != 0
}

// CalcTime converts a timestamp into seconds and a fractional second.
func (tb TimeBase) CalcTime(ts uint64) Time {
	if !tb.Valid() {
		return Time{}
	}
	// Split before multiplying so large timestamps don't overflow.
	denom := uint64(tb.Denom)
	numer := uint64(tb.Numer)
	whole := ts / denom
	rem := ts % denom

	secs := whole * numer
	remTicks := rem * numer
	secs += remTicks / denom
	frac := float64(remTicks%denom) / float64(denom)
	return Time{Seconds: secs, Frac: frac}
}

// CalcTimestamp converts a time back into a timestamp, rounding down.
func (tb TimeBase) CalcTimestamp(t Time) uint64 {
	if !tb.Valid() {
		return 0
	}
	denom := uint64(tb.Denom)
	numer := uint64(tb.Numer)
	whole := t.Seconds * denom
	ticks := whole / numer
	rest := float64(whole%numer) + t.Frac*float64(denom)
	ticks += uint64(math.Floor(rest / float64(numer)))
	return ticks
}

// Duration converts t to a time.Duration.
func (t Time) Duration() time.Duration {
	return time.Duration(t.Seconds)*time.Second + time.Duration(t.Frac*float64(time.Second))
}
