package player

import (
	"sync"
	"time"
)

// NullDevice drives callbacks from a ticker and discards the audio. It keeps
// the engine running on machines without a sound card.
type NullDevice struct {
	Buffer time.Duration
}

func NewNullDevice(buffer time.Duration) *NullDevice {
	return &NullDevice{Buffer: buffer}
}

func (d *NullDevice) Open(channels, sampleRate int, fill FillFunc) (Stream, error) {
	period := d.Buffer
	if period <= 0 {
		period = 100 * time.Millisecond
	}
	frames := int(int64(sampleRate) * int64(period) / int64(time.Second))
	if frames < 1 {
		frames = 1
	}

	st := &nullStream{
		buf:  make([]float32, frames*channels),
		fill: fill,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go st.run(period)
	return st, nil
}

type nullStream struct {
	buf  []float32
	fill FillFunc
	once sync.Once
	stop chan struct{}
	done chan struct{}
}

func (s *nullStream) run(period time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.fill(s.buf)
		}
	}
}

func (s *nullStream) Close() error {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}
