//go:build !((linux && cgo) || windows || darwin)

package player

import (
	"errors"
	"time"
)

// AudioAvailable indicates whether this build can drive a sound card.
// Linux playback needs cgo for the native sound libraries.
const AudioAvailable = false

var ErrAudioUnavailable = errors.New("audio output requires a cgo build")

func NewSpeakerDevice(sampleRate int, buffer time.Duration) (Device, error) {
	return nil, ErrAudioUnavailable
}
