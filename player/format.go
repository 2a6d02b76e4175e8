package player

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// packetFrames is how many frames one ReadPacket decodes.
const packetFrames = 1152

type container int

const (
	containerUnknown container = iota
	containerMP3
	containerWAV
	containerFLAC
	containerVorbis
)

func (c container) String() string {
	switch c {
	case containerMP3:
		return "mp3"
	case containerWAV:
		return "wav"
	case containerFLAC:
		return "flac"
	case containerVorbis:
		return "vorbis"
	default:
		return "unknown"
	}
}

// sniff identifies a container from its leading bytes.
func sniff(head []byte) container {
	switch {
	case bytes.HasPrefix(head, []byte("ID3")):
		return containerMP3
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return containerMP3
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return containerWAV
	case bytes.HasPrefix(head, []byte("fLaC")):
		return containerFLAC
	case bytes.HasPrefix(head, []byte("OggS")):
		return containerVorbis
	default:
		return containerUnknown
	}
}

// OpenSession opens the file at path and prepares it for playback. Any failure
// is returned as an *OpenError and leaves nothing open.
func OpenSession(path string, policy DecodeErrorPolicy) (*Session, error) {
	d, err := openDemuxer(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	s, err := NewSession(d, policy)
	if err != nil {
		d.Close()
		return nil, &OpenError{Path: path, Err: err}
	}
	s.path = path
	return s, nil
}

func openDemuxer(path string) (*beepDemuxer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	head := make([]byte, 12)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		f.Close()
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	kind := sniff(head[:n])
	if kind == containerUnknown {
		f.Close()
		return nil, ErrUnsupportedFormat
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rewind: %w", err)
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch kind {
	case containerMP3:
		s, format, err = mp3.Decode(f)
	case containerWAV:
		s, format, err = wav.Decode(f)
	case containerFLAC:
		s, format, err = flac.Decode(f)
	case containerVorbis:
		s, format, err = vorbis.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s stream: %w", kind, err)
	}
	return newBeepDemuxer(f, s, format), nil
}

// beepDemuxer adapts a beep stream to the Demuxer interface. Timestamps are
// frame positions, so the time base is one tick per sample frame.
type beepDemuxer struct {
	f      io.Closer
	s      beep.StreamSeekCloser
	track  Track
	frames [][2]float64
	out    []float32
}

func newBeepDemuxer(f io.Closer, s beep.StreamSeekCloser, format beep.Format) *beepDemuxer {
	channels := format.NumChannels
	if channels < 1 {
		channels = 1
	}
	if channels > 2 {
		channels = 2
	}
	rate := int(format.SampleRate)
	var frames uint64
	if l := s.Len(); l > 0 {
		frames = uint64(l)
	}
	return &beepDemuxer{
		f: f,
		s: s,
		track: Track{
			Channels:   channels,
			SampleRate: rate,
			TimeBase:   NewTimeBase(1, uint32(rate)),
			Frames:     frames,
		},
		frames: make([][2]float64, packetFrames),
		out:    make([]float32, 0, packetFrames*channels),
	}
}

func (d *beepDemuxer) Track() Track { return d.track }

func (d *beepDemuxer) ReadPacket() (Packet, error) {
	ts := d.s.Position()
	n, ok := d.s.Stream(d.frames)
	if n == 0 && !ok {
		if err := d.s.Err(); err != nil {
			return Packet{}, err
		}
		return Packet{}, io.EOF
	}

	out := d.out[:0]
	for _, fr := range d.frames[:n] {
		out = append(out, float32(fr[0]))
		if d.track.Channels == 2 {
			out = append(out, float32(fr[1]))
		}
	}
	d.out = out
	return Packet{TS: uint64(ts), Samples: out}, nil
}

func (d *beepDemuxer) Seek(t Time) error {
	pos := d.track.TimeBase.CalcTimestamp(t)
	if pos > d.track.Frames {
		pos = d.track.Frames
	}
	if err := d.s.Seek(int(pos)); err != nil {
		return fmt.Errorf("failed to seek to frame %d: %w", pos, err)
	}
	return nil
}

func (d *beepDemuxer) Close() error {
	err := d.s.Close()
	if ferr := d.f.Close(); ferr != nil && !errors.Is(ferr, os.ErrClosed) && err == nil {
		err = ferr
	}
	return err
}
