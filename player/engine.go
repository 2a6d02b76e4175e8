package player

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"yampd/logger"
)

// Opener turns a file path into a ready Session.
type Opener func(path string) (*Session, error)

// Options configures an Engine.
type Options struct {
	Device Device
	// Open defaults to OpenSession with Policy.
	Open       Opener
	Policy     DecodeErrorPolicy
	Channels   int
	SampleRate int
}

// Status is the now-playing state gathered in one round trip.
type Status struct {
	Item     QueueItem
	Playing  bool
	Position time.Duration
	Duration time.Duration
	Paused   bool
}

// Engine owns the play queue, the current session and the output endpoint.
// All state changes happen on one goroutine, fed by an unbounded mailbox.
// Commands return immediately; queries block until the engine answers.
type Engine struct {
	dev   Device
	open  Opener
	inbox *mailbox
	done  chan struct{}

	closeOnce sync.Once
	closeErr  error

	// owned by run
	queue      Queue
	current    *Session
	endpoint   *Endpoint
	channels   int
	sampleRate int
}

type (
	cmdPlay        struct{}
	cmdPush        struct{ item QueueItem }
	cmdNext        struct{}
	cmdPrev        struct{}
	cmdSetIndex    struct{ index int }
	cmdDelete      struct{ index int }
	cmdSetPause    struct{ paused bool }
	cmdSetPosition struct{ pos time.Duration }
	cmdSeek        struct{ delta time.Duration }
	cmdEnded       struct{ session *Session }
	cmdDie         struct{}

	queryPaused   struct{ reply chan bool }
	queryDuration struct{ reply chan time.Duration }
	queryPosition struct{ reply chan time.Duration }
	queryQueue    struct{ reply chan Queue }
	queryNow      struct{ reply chan nowReply }
	queryStatus   struct{ reply chan Status }
)

type nowReply struct {
	item QueueItem
	ok   bool
}

// NewEngine opens a silent endpoint and starts the engine goroutine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Device == nil {
		return nil, errors.New("player: no output device")
	}
	if opts.Channels <= 0 {
		opts.Channels = 2
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 48000
	}
	if opts.Open == nil {
		policy := opts.Policy
		opts.Open = func(path string) (*Session, error) {
			return OpenSession(path, policy)
		}
	}

	e := &Engine{
		dev:        opts.Device,
		open:       opts.Open,
		inbox:      newMailbox(),
		done:       make(chan struct{}),
		channels:   opts.Channels,
		sampleRate: opts.SampleRate,
	}
	ep, err := NewEndpoint(e.dev, e.channels, e.sampleRate, e.ended)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	e.endpoint = ep

	go e.run()
	return e, nil
}

func (e *Engine) Play()                         { e.inbox.post(cmdPlay{}) }
func (e *Engine) Push(item QueueItem)           { e.inbox.post(cmdPush{item}) }
func (e *Engine) Next()                         { e.inbox.post(cmdNext{}) }
func (e *Engine) Prev()                         { e.inbox.post(cmdPrev{}) }
func (e *Engine) SetIndex(i int)                { e.inbox.post(cmdSetIndex{i}) }
func (e *Engine) Delete(i int)                  { e.inbox.post(cmdDelete{i}) }
func (e *Engine) SetPause(paused bool)          { e.inbox.post(cmdSetPause{paused}) }
func (e *Engine) SetPosition(pos time.Duration) { e.inbox.post(cmdSetPosition{pos}) }

// Seek moves the current position by delta, stopping at zero.
func (e *Engine) Seek(delta time.Duration) { e.inbox.post(cmdSeek{delta}) }

func (e *Engine) IsPaused() bool {
	return ask(e, func(r chan bool) any { return queryPaused{r} })
}

func (e *Engine) Duration() time.Duration {
	return ask(e, func(r chan time.Duration) any { return queryDuration{r} })
}

func (e *Engine) Position() time.Duration {
	return ask(e, func(r chan time.Duration) any { return queryPosition{r} })
}

// Queue returns a copy of the play queue.
func (e *Engine) Queue() Queue {
	return ask(e, func(r chan Queue) any { return queryQueue{r} })
}

// Now returns the item under the queue cursor.
func (e *Engine) Now() (QueueItem, bool) {
	r := ask(e, func(r chan nowReply) any { return queryNow{r} })
	return r.item, r.ok
}

func (e *Engine) Status() Status {
	return ask(e, func(r chan Status) any { return queryStatus{r} })
}

// Close stops the engine after every command already queued has been
// handled, then releases the endpoint and session. Later calls are no-ops.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		if e.inbox.post(cmdDie{}) {
			<-e.done
		}
	})
	return e.closeErr
}

// ask posts a query and waits for the reply. A closed (or closing) engine
// answers with the zero value.
func ask[T any](e *Engine, query func(chan T) any) T {
	var zero T
	reply := make(chan T, 1)
	if !e.inbox.post(query(reply)) {
		return zero
	}
	select {
	case v := <-reply:
		return v
	case <-e.done:
		select {
		case v := <-reply:
			return v
		default:
			return zero
		}
	}
}

// ended is the endpoint callback. It runs on the device goroutine.
func (e *Engine) ended(s *Session) {
	e.inbox.post(cmdEnded{s})
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		msg, ok := e.inbox.receive()
		if !ok {
			return
		}
		if _, die := msg.(cmdDie); die {
			e.shutdown()
			return
		}
		e.handle(msg)
	}
}

func (e *Engine) handle(msg any) {
	switch m := msg.(type) {
	case cmdPlay:
		e.play()
	case cmdPush:
		e.queue.Push(m.item)
	case cmdNext:
		e.queue.Next()
		e.play()
	case cmdPrev:
		e.queue.Prev()
		e.play()
	case cmdSetIndex:
		e.queue.SetIndex(m.index)
	case cmdDelete:
		playing := m.index == e.queue.Index
		e.queue.DeleteAt(m.index)
		if playing {
			e.play()
		}
	case cmdSetPause:
		if e.current != nil {
			e.current.SetPause(m.paused)
		}
	case cmdSetPosition:
		if e.current != nil {
			e.current.SetPosition(m.pos)
		}
	case cmdSeek:
		if e.current != nil {
			pos := e.current.Position() + m.delta
			if pos < 0 {
				pos = 0
			}
			e.current.SetPosition(pos)
		}
	case cmdEnded:
		if m.session != e.current {
			logger.Debug("ignoring end of superseded session", logger.String("path", m.session.Path()))
			return
		}
		e.queue.RemoveCurrent()
		e.play()

	case queryPaused:
		m.reply <- e.current != nil && e.current.Paused()
	case queryDuration:
		var d time.Duration
		if e.current != nil {
			d = e.current.Duration()
		}
		m.reply <- d
	case queryPosition:
		var d time.Duration
		if e.current != nil {
			d = e.current.Position()
		}
		m.reply <- d
	case queryQueue:
		m.reply <- e.queue.Snapshot()
	case queryNow:
		item, ok := e.queue.Current()
		m.reply <- nowReply{item, ok}
	case queryStatus:
		m.reply <- e.status()
	default:
		logger.Warn("unknown engine message", logger.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (e *Engine) status() Status {
	item, ok := e.queue.Current()
	st := Status{Item: item, Playing: ok}
	if e.current != nil {
		st.Position = e.current.Position()
		st.Duration = e.current.Duration()
		st.Paused = e.current.Paused()
	}
	return st
}

// play resolves the item under the cursor and makes it current. With no
// current item the output is silenced.
func (e *Engine) play() {
	item, ok := e.queue.Current()
	if !ok {
		e.stop()
		return
	}

	s, err := e.open(item.FilePath)
	if err != nil {
		logger.Warn("failed to play queue item",
			logger.Int64("song_id", item.SongID),
			logger.String("path", item.FilePath),
			logger.ErrorField(err))
		return
	}

	if e.endpoint == nil || !e.endpoint.Accepts(s) {
		if err := e.replaceEndpoint(s.Channels(), s.SampleRate()); err != nil {
			logger.Error("failed to switch output format",
				logger.Int("channels", s.Channels()),
				logger.Int("sample_rate", s.SampleRate()),
				logger.ErrorField(err))
			s.Close()
			return
		}
	}
	e.endpoint.Install(s)

	prev := e.current
	e.current = s
	if prev != nil {
		prev.Close()
	}
	logger.Info("playing",
		logger.Int64("song_id", item.SongID),
		logger.String("path", item.FilePath),
		logger.Duration("duration", s.Duration()))
}

// stop swaps in a fresh silent endpoint and drops the current session.
func (e *Engine) stop() {
	if err := e.replaceEndpoint(e.channels, e.sampleRate); err != nil {
		logger.Error("failed to reopen output", logger.ErrorField(err))
	}
	if e.current != nil {
		e.current.Close()
		e.current = nil
	}
}

// replaceEndpoint closes the old device stream before opening the new one,
// so two streams are never live at once.
func (e *Engine) replaceEndpoint(channels, sampleRate int) error {
	if e.endpoint != nil {
		if err := e.endpoint.Close(); err != nil {
			logger.Warn("failed to close output", logger.ErrorField(err))
		}
		e.endpoint = nil
	}
	ep, err := NewEndpoint(e.dev, channels, sampleRate, e.ended)
	if err != nil {
		return err
	}
	e.endpoint = ep
	e.channels = channels
	e.sampleRate = sampleRate
	return nil
}

func (e *Engine) shutdown() {
	e.inbox.close()
	var errs []error
	if e.endpoint != nil {
		errs = append(errs, e.endpoint.Close())
		e.endpoint = nil
	}
	if e.current != nil {
		errs = append(errs, e.current.Close())
		e.current = nil
	}
	e.closeErr = errors.Join(errs...)
}
