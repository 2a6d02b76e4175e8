package player

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"yampd/logger"
)

// minSeekFrac replaces a zero-offset seek target. Some demuxers treat an
// exact zero as "no seek requested".
const minSeekFrac = 0.001

// Session is the live decoding state of one open audio file.
//
// It is shared between the Engine goroutine (pause, seek, queries) and the
// device callback (Fill); every method takes the session lock.
type Session struct {
	mu     sync.Mutex
	demux  Demuxer
	policy DecodeErrorPolicy
	path   string

	channels   int
	sampleRate int
	tb         TimeBase
	dur        time.Duration

	ts     uint64
	paused bool
	ended  bool
	closed bool

	// backlog is buf[off:]
	buf []float32
	off int
}

// NewSession wraps an open demuxer. It fails when the default track lacks the
// information needed for timing and output format.
func NewSession(d Demuxer, policy DecodeErrorPolicy) (*Session, error) {
	tr := d.Track()
	if !tr.TimeBase.Valid() {
		return nil, fmt.Errorf("%w: time base", ErrMissingTrackInfo)
	}
	if tr.Frames == 0 {
		return nil, fmt.Errorf("%w: frame count", ErrMissingTrackInfo)
	}
	if tr.Channels <= 0 || tr.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: channels/sample rate", ErrMissingTrackInfo)
	}
	return &Session{
		demux:      d,
		policy:     policy,
		channels:   tr.Channels,
		sampleRate: tr.SampleRate,
		tb:         tr.TimeBase,
		dur:        tr.TimeBase.CalcTime(tr.Frames).Duration(),
	}, nil
}

// Path is the file the session was opened from, if known.
func (s *Session) Path() string { return s.path }

func (s *Session) Channels() int { return s.channels }

func (s *Session) SampleRate() int { return s.sampleRate }

// Duration is fixed at open time.
func (s *Session) Duration() time.Duration { return s.dur }

// Position is the timestamp of the most recently decoded packet.
func (s *Session) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tb.CalcTime(s.ts).Duration()
}

// SetPosition performs a coarse seek to target, clamped to [0, Duration],
// and decodes one packet so Position reflects the new location at once.
func (s *Session) SetPosition(target time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.buf = s.buf[:0]
	s.off = 0

	if target > s.dur {
		target = s.dur
	}
	if target < 0 {
		target = 0
	}
	at := seekTime(target)
	if err := s.demux.Seek(at); err != nil {
		logger.Warn("seek failed",
			logger.String("path", s.path),
			logger.Duration("target", target),
			logger.ErrorField(err))
		return
	}
	s.decodeNext()
	if len(s.buf) == 0 {
		// Nothing left after the target: report the target itself.
		s.ts = s.tb.CalcTimestamp(at)
	}
}

func seekTime(d time.Duration) Time {
	ms := d.Milliseconds()
	t := Time{Seconds: uint64(ms / 1000), Frac: float64(ms%1000) / 1000}
	if t.Seconds == 0 && t.Frac < minSeekFrac {
		t.Frac = minSeekFrac
	}
	return t
}

func (s *Session) SetPause(paused bool) {
	s.mu.Lock()
	s.paused = paused
	s.mu.Unlock()
}

func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Ended reports whether the decoder ran out of packets.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Stream fills every slot of buf with interleaved samples, or zeros while
// paused, ended or closed.
func (s *Session) Stream(buf []float32) {
	s.mu.Lock()
	s.stream(buf)
	s.mu.Unlock()
}

// Fill is Stream followed by Ended under a single lock acquisition.
func (s *Session) Fill(buf []float32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream(buf)
	return s.ended
}

// Close releases the demuxer. A closed session streams silence and never
// reports ended.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.buf = nil
	s.off = 0
	return s.demux.Close()
}

func (s *Session) stream(buf []float32) {
	i := 0
	for i < len(buf) {
		if s.paused || s.ended || s.closed {
			clear(buf[i:])
			return
		}
		if s.off >= len(s.buf) {
			s.decodeNext()
			if s.off >= len(s.buf) {
				buf[i] = 0
				i++
				continue
			}
		}
		n := copy(buf[i:], s.buf[s.off:])
		s.off += n
		i += n
	}
}

// decodeNext appends one decoded packet to the backlog. Lock must be held.
func (s *Session) decodeNext() {
	pkt, err := s.demux.ReadPacket()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.ended = true
			return
		}
		s.decodeFailed(err)
		return
	}
	s.ts = pkt.TS
	if s.off >= len(s.buf) {
		s.buf = s.buf[:0]
		s.off = 0
	}
	s.buf = append(s.buf, pkt.Samples...)
}

func (s *Session) decodeFailed(err error) {
	if s.policy == AbortOnDecodeError {
		panic(fmt.Sprintf("player: decode error in %q: %v", s.path, err))
	}
	logger.Error("decode error, ending track",
		logger.String("path", s.path),
		logger.ErrorField(err))
	s.ended = true
}
