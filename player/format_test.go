package player

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestProbe(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want container
	}{
		{"id3", []byte("ID3\x04\x00"), containerMP3},
		{"mpeg sync", []byte{0xFF, 0xFB, 0x90, 0x00}, containerMP3},
		{"wav", []byte("RIFF\x24\x00\x00\x00WAVE"), containerWAV},
		{"riff not wave", []byte("RIFF\x24\x00\x00\x00AVI "), containerUnknown},
		{"flac", []byte("fLaC\x00\x00\x00\x22"), containerFLAC},
		{"ogg", []byte("OggS\x00\x02"), containerVorbis},
		{"m4a", []byte("\x00\x00\x00\x20ftypM4A "), containerUnknown},
		{"short", []byte{0xFF}, containerUnknown},
		{"empty", nil, containerUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sniff(tt.head); got != tt.want {
				t.Errorf("sniff = %v, want %v", got, tt.want)
			}
		})
	}
}

// writeWAV writes a 16-bit PCM file of frames frames.
func writeWAV(t *testing.T, path string, channels, rate, frames int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dataSize := frames * channels * 2
	le := binary.LittleEndian
	w := func(v any) {
		if err := binary.Write(f, le, v); err != nil {
			t.Fatal(err)
		}
	}
	f.WriteString("RIFF")
	w(uint32(36 + dataSize))
	f.WriteString("WAVE")
	f.WriteString("fmt ")
	w(uint32(16))
	w(uint16(1))
	w(uint16(channels))
	w(uint32(rate))
	w(uint32(rate * channels * 2))
	w(uint16(channels * 2))
	w(uint16(16))
	f.WriteString("data")
	w(uint32(dataSize))
	samples := make([]int16, frames*channels)
	for i := range samples {
		samples[i] = 8192
	}
	w(samples)
}

func TestOpenSessionWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, 1, 8000, 4000)

	s, err := OpenSession(path, EndOnDecodeError)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer s.Close()

	if s.Channels() != 1 || s.SampleRate() != 8000 {
		t.Errorf("format = %d/%d", s.Channels(), s.SampleRate())
	}
	if s.Duration() != 500*time.Millisecond {
		t.Errorf("Duration = %v", s.Duration())
	}
	if s.Path() != path {
		t.Errorf("Path = %q", s.Path())
	}

	buf := make([]float32, 100)
	s.Stream(buf)
	if buf[0] < 0.2 || buf[0] > 0.3 {
		t.Errorf("sample = %v, want ~0.25", buf[0])
	}

	s.SetPosition(250 * time.Millisecond)
	if got := s.Position(); got < 250*time.Millisecond-packetDuration(8000) || got > 250*time.Millisecond {
		t.Errorf("Position after seek = %v", got)
	}

	for i := 0; i < 100 && !s.Ended(); i++ {
		s.Stream(make([]float32, packetFrames))
	}
	if !s.Ended() {
		t.Error("session never ended")
	}
}

func packetDuration(rate int) time.Duration {
	return time.Duration(packetFrames) * time.Second / time.Duration(rate)
}

func TestOpenSessionErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenSession(filepath.Join(dir, "missing.mp3"), EndOnDecodeError)
	var oe *OpenError
	if !errors.As(err, &oe) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: err = %v", err)
	}

	text := filepath.Join(dir, "notes.mp3")
	if err := os.WriteFile(text, []byte("not audio at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = OpenSession(text, EndOnDecodeError)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("text file: err = %v", err)
	}
}
