//go:build (linux && cgo) || windows || darwin

package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable indicates whether this build can drive a sound card.
const AudioAvailable = true

// The speaker package wraps a process-wide output context that can only be
// initialised once, so every SpeakerDevice shares it.
var speakerInit struct {
	once sync.Once
	rate beep.SampleRate
	err  error
}

// SpeakerDevice plays through the system sound card. Each stream becomes a
// voice on the speaker's mixer, resampled to the device rate.
type SpeakerDevice struct {
	rate beep.SampleRate
}

// NewSpeakerDevice initialises the sound card at sampleRate with the given
// buffer length. Later calls reuse the first initialisation.
func NewSpeakerDevice(sampleRate int, buffer time.Duration) (Device, error) {
	speakerInit.once.Do(func() {
		speakerInit.rate = beep.SampleRate(sampleRate)
		speakerInit.err = speaker.Init(speakerInit.rate, speakerInit.rate.N(buffer))
	})
	if speakerInit.err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", speakerInit.err)
	}
	return &SpeakerDevice{rate: speakerInit.rate}, nil
}

func (d *SpeakerDevice) Open(channels, sampleRate int, fill FillFunc) (Stream, error) {
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	v := &voice{channels: channels, fill: fill}

	var s beep.Streamer = v
	if src := beep.SampleRate(sampleRate); src != d.rate {
		s = beep.Resample(4, src, d.rate, v)
	}
	speaker.Play(s)
	return v, nil
}

// voice is called by the speaker mixer with the speaker lock held.
type voice struct {
	channels int
	fill     FillFunc
	buf      []float32
	closed   bool
}

func (v *voice) Stream(samples [][2]float64) (int, bool) {
	if v.closed {
		return 0, false
	}
	need := len(samples) * v.channels
	if cap(v.buf) < need {
		v.buf = make([]float32, need)
	}
	buf := v.buf[:need]
	v.fill(buf)

	for i := range samples {
		if v.channels == 1 {
			samples[i][0] = float64(buf[i])
			samples[i][1] = samples[i][0]
			continue
		}
		samples[i][0] = float64(buf[2*i])
		samples[i][1] = float64(buf[2*i+1])
	}
	return len(samples), true
}

func (v *voice) Err() error { return nil }

func (v *voice) Close() error {
	speaker.Lock()
	v.closed = true
	speaker.Unlock()
	return nil
}
