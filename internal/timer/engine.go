// Package timer implements the rest countdown between sets. The source of
// truth is an absolute deadline captured once at start, never a decremented
// counter, so the countdown stays correct across host suspension of any
// length: every tick and every Resync recomputes remaining from the clock.
package timer

import (
	"log"
	"math"
	"sync"
	"time"
)

const defaultTickEvery = 250 * time.Millisecond

// WakeLock discourages the host from sleeping while a rest is running.
// Failure to acquire is cosmetic; the countdown never depends on it.
type WakeLock interface {
	Acquire() error
	Release() error
}

// NopWakeLock is the default no-op lock.
type NopWakeLock struct{}

func (NopWakeLock) Acquire() error { return nil }
func (NopWakeLock) Release() error { return nil }

// Chime plays the audible cue on natural completion. Skipping a rest stays
// silent.
type Chime interface {
	Play()
}

// LogChime is the default headless cue.
type LogChime struct{}

func (LogChime) Play() { log.Println("rest timer done (beep beep)") }

// State is a snapshot of the engine for the presentation layer.
type State struct {
	Active      bool `json:"active"`
	SecondsLeft int  `json:"seconds_left"`
	Minimized   bool `json:"minimized"`
}

// Options configures an Engine. Zero values select sane defaults.
type Options struct {
	WakeLock  WakeLock
	Chime     Chime
	Now       func() time.Time // test clock injection
	TickEvery time.Duration
	OnChange  func(State) // invoked after every published state change
}

// Engine is the rest timer state machine: idle -> active -> idle.
type Engine struct {
	mu        sync.Mutex
	deadline  time.Time
	active    bool
	minimized bool
	stop      chan struct{}

	now       func() time.Time
	tickEvery time.Duration
	wake      WakeLock
	chime     Chime
	onChange  func(State)
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		now:       opts.Now,
		tickEvery: opts.TickEvery,
		wake:      opts.WakeLock,
		chime:     opts.Chime,
		onChange:  opts.OnChange,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.tickEvery <= 0 {
		e.tickEvery = defaultTickEvery
	}
	if e.wake == nil {
		e.wake = NopWakeLock{}
	}
	if e.chime == nil {
		e.chime = LogChime{}
	}
	return e
}

// Start arms the countdown for the given duration, replacing any countdown
// already running. The deadline is anchored exactly once, here.
func (e *Engine) Start(seconds int) {
	e.mu.Lock()
	if e.active && e.stop != nil {
		close(e.stop)
	}
	e.deadline = e.now().Add(time.Duration(seconds) * time.Second)
	e.active = true
	e.minimized = false
	stop := make(chan struct{})
	e.stop = stop
	e.mu.Unlock()

	// best effort; a denied lock only costs screen-on convenience
	if err := e.wake.Acquire(); err != nil {
		log.Printf("wake lock unavailable: %v", err)
	}

	go e.loop(stop)
	e.publish()
}

func (e *Engine) loop(stop chan struct{}) {
	ticker := time.NewTicker(e.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if done := e.Resync(); done {
				return
			}
		}
	}
}

// Resync recomputes remaining time from the deadline and publishes it. The
// host calls this directly when it returns to the foreground so the display
// corrects immediately instead of waiting for the next tick. Returns true
// once the countdown has finished.
func (e *Engine) Resync() bool {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return true
	}
	remaining := e.remainingLocked()
	if remaining > 0 {
		e.mu.Unlock()
		e.publish()
		return false
	}

	// natural expiry
	e.active = false
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
	e.mu.Unlock()

	e.releaseWake()
	e.chime.Play()
	e.publish()
	return true
}

// Skip cancels the rest immediately and unconditionally. No chime.
func (e *Engine) Skip() {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.active = false
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
	e.mu.Unlock()

	e.releaseWake()
	e.publish()
}

// Adjust shifts the deadline by delta seconds. The anchor stays
// authoritative, so repeated +10s/-10s corrections cannot drift.
func (e *Engine) Adjust(deltaSeconds int) {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.deadline = e.deadline.Add(time.Duration(deltaSeconds) * time.Second)
	e.mu.Unlock()

	e.Resync()
}

// Minimize folds the timer presentation without touching the countdown.
func (e *Engine) Minimize() {
	e.mu.Lock()
	e.minimized = true
	e.mu.Unlock()
	e.publish()
}

// Restore undoes Minimize.
func (e *Engine) Restore() {
	e.mu.Lock()
	e.minimized = false
	e.mu.Unlock()
	e.publish()
}

// Active reports whether a countdown is running.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// SecondsLeft returns the current remaining whole seconds.
func (e *Engine) SecondsLeft() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return 0
	}
	return e.remainingLocked()
}

// State snapshots the engine for the presentation layer.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := State{Active: e.active, Minimized: e.minimized}
	if e.active {
		s.SecondsLeft = e.remainingLocked()
	}
	return s
}

func (e *Engine) remainingLocked() int {
	secs := int(math.Round(e.deadline.Sub(e.now()).Seconds()))
	if secs < 0 {
		return 0
	}
	return secs
}

func (e *Engine) releaseWake() {
	if err := e.wake.Release(); err != nil {
		log.Printf("wake lock release failed: %v", err)
	}
}

func (e *Engine) publish() {
	if e.onChange != nil {
		e.onChange(e.State())
	}
}
