package player

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"
)

// fakeTrack describes a synthetic file: packets of frames each.
type fakeTrack struct {
	channels int
	rate     int
	packets  int
	frames   int
	// failAt makes the packet with that index fail to decode (0 disables).
	failAt int
}

type fakeDemuxer struct {
	tr      fakeTrack
	next    int
	closed  bool
	seeks   []Time
	seekErr error
	// seekToEOF lets a seek at the end land past the last packet.
	seekToEOF bool
}

func newFakeDemuxer(tr fakeTrack) *fakeDemuxer {
	return &fakeDemuxer{tr: tr}
}

func (d *fakeDemuxer) Track() Track {
	return Track{
		Channels:   d.tr.channels,
		SampleRate: d.tr.rate,
		TimeBase:   NewTimeBase(1, uint32(d.tr.rate)),
		Frames:     uint64(d.tr.packets * d.tr.frames),
	}
}

func (d *fakeDemuxer) ReadPacket() (Packet, error) {
	if d.next >= d.tr.packets {
		return Packet{}, io.EOF
	}
	if d.tr.failAt > 0 && d.next == d.tr.failAt {
		return Packet{}, errors.New("corrupt packet")
	}
	samples := make([]float32, d.tr.frames*d.tr.channels)
	for i := range samples {
		samples[i] = 0.5
	}
	pkt := Packet{TS: uint64(d.next * d.tr.frames), Samples: samples}
	d.next++
	return pkt, nil
}

func (d *fakeDemuxer) Seek(t Time) error {
	d.seeks = append(d.seeks, t)
	if d.seekErr != nil {
		return d.seekErr
	}
	ts := NewTimeBase(1, uint32(d.tr.rate)).CalcTimestamp(t)
	next := int(ts) / d.tr.frames
	if d.seekToEOF && next >= d.tr.packets {
		next = d.tr.packets
	} else if next > d.tr.packets-1 {
		next = d.tr.packets - 1
	}
	d.next = next
	return nil
}

func (d *fakeDemuxer) Close() error {
	d.closed = true
	return nil
}

func newFakeSession(t *testing.T, tr fakeTrack) (*Session, *fakeDemuxer) {
	t.Helper()
	d := newFakeDemuxer(tr)
	s, err := NewSession(d, EndOnDecodeError)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, d
}

// fakeLibrary maps paths to synthetic tracks and counts opens.
type fakeLibrary struct {
	mu       sync.Mutex
	tracks   map[string]fakeTrack
	opened   []string
	sessions map[string]*Session
}

func newFakeLibrary(tracks map[string]fakeTrack) *fakeLibrary {
	return &fakeLibrary{tracks: tracks, sessions: map[string]*Session{}}
}

func (l *fakeLibrary) open(path string) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = append(l.opened, path)
	tr, ok := l.tracks[path]
	if !ok {
		return nil, &OpenError{Path: path, Err: os.ErrNotExist}
	}
	s, err := NewSession(newFakeDemuxer(tr), EndOnDecodeError)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	s.path = path
	l.sessions[path] = s
	return s, nil
}

func (l *fakeLibrary) opens() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.opened...)
}

func (l *fakeLibrary) session(path string) *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessions[path]
}

// manualDevice only calls back when the test ticks it.
type manualDevice struct {
	mu      sync.Mutex
	streams []*manualStream
	events  []string
	live    int
	maxLive int
	openErr error
}

type manualStream struct {
	dev      *manualDevice
	channels int
	rate     int
	fill     FillFunc
	closed   bool
}

func (d *manualDevice) Open(channels, sampleRate int, fill FillFunc) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	st := &manualStream{dev: d, channels: channels, rate: sampleRate, fill: fill}
	d.streams = append(d.streams, st)
	d.events = append(d.events, fmt.Sprintf("open %d/%d", channels, sampleRate))
	d.live++
	if d.live > d.maxLive {
		d.maxLive = d.live
	}
	return st, nil
}

func (s *manualStream) Close() error {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.dev.live--
	s.dev.events = append(s.dev.events, fmt.Sprintf("close %d/%d", s.channels, s.rate))
	return nil
}

// tick runs one callback on the newest live stream and returns its buffer.
func (d *manualDevice) tick(frames int) []float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.streams) - 1; i >= 0; i-- {
		st := d.streams[i]
		if st.closed {
			continue
		}
		buf := make([]float32, frames*st.channels)
		for j := range buf {
			buf[j] = -1
		}
		st.fill(buf)
		return buf
	}
	return nil
}

func (d *manualDevice) snapshot() (events []string, live, maxLive int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...), d.live, d.maxLive
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
