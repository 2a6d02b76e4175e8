package player

import (
	"fmt"
	"sync/atomic"
)

// FillFunc writes len(buf) interleaved samples into buf.
type FillFunc func(buf []float32)

// Stream is a running device output.
type Stream interface {
	// Close stops the stream. Once it returns the fill callback is not running
	// and will not be called again.
	Close() error
}

// Device opens output streams. Implementations must not invoke one stream's
// callback concurrently with itself.
type Device interface {
	Open(channels, sampleRate int, fill FillFunc) (Stream, error)
}

// Endpoint is an output stream bound to one channel count and sample rate.
// Sessions reach the callback through a single-slot handoff; the most
// recently installed session wins.
type Endpoint struct {
	channels   int
	sampleRate int
	stream     Stream
	onEnded    func(*Session)

	pending atomic.Pointer[Session]

	// owned by the device callback
	active *Session
	armed  bool
}

// NewEndpoint opens and starts a device stream. Until a session is installed
// the stream plays silence. onEnded runs on the callback goroutine and must
// not block.
func NewEndpoint(dev Device, channels, sampleRate int, onEnded func(*Session)) (*Endpoint, error) {
	e := &Endpoint{
		channels:   channels,
		sampleRate: sampleRate,
		onEnded:    onEnded,
	}
	st, err := dev.Open(channels, sampleRate, e.fill)
	if err != nil {
		return nil, fmt.Errorf("failed to open %d ch @ %d Hz output: %w", channels, sampleRate, err)
	}
	e.stream = st
	return e, nil
}

func (e *Endpoint) Channels() int { return e.channels }

func (e *Endpoint) SampleRate() int { return e.sampleRate }

// Accepts reports whether s can play on e without a format change.
func (e *Endpoint) Accepts(s *Session) bool {
	return s.Channels() == e.channels && s.SampleRate() == e.sampleRate
}

// Install hands s to the callback. It is adopted on the next fill.
func (e *Endpoint) Install(s *Session) {
	e.pending.Store(s)
}

// Close stops the device stream.
func (e *Endpoint) Close() error {
	return e.stream.Close()
}

func (e *Endpoint) fill(buf []float32) {
	if s := e.pending.Swap(nil); s != nil {
		e.active = s
		e.armed = true
	}
	if e.active == nil {
		clear(buf)
		return
	}
	if e.active.Fill(buf) && e.armed {
		e.armed = false
		if e.onEnded != nil {
			e.onEnded(e.active)
		}
	}
}
