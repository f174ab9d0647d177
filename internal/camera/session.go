// Package camera owns the live camera feed of a terminal: acquisition with
// constraint fallback, still-image capture and teardown.
package camera

import (
	"context"
	"log"
	"sync"
	"time"
)

// Phase is the explicit state of a Session.
type Phase string

const (
	PhaseInactive  Phase = "inactive"
	PhaseAcquiring Phase = "acquiring"
	PhaseActive    Phase = "active"
	PhaseFailed    Phase = "failed"
)

// state is the single source of truth for a session. stream is set only in
// PhaseActive and err only in PhaseFailed.
type state struct {
	phase   Phase
	stream  Stream
	profile Profile
	err     *CaptureError
}

// Status is a snapshot of a session for display.
type Status struct {
	Phase   Phase
	Active  bool
	Epoch   uint64
	Profile string
	Err     *CaptureError
}

// Option configures a Session.
type Option func(*Session)

// WithProfiles overrides the acquisition fallback order.
func WithProfiles(profiles []Profile) Option {
	return func(s *Session) { s.profiles = profiles }
}

// WithQuality sets the JPEG quality of captured stills.
func WithQuality(q int) Option {
	return func(s *Session) {
		if q > 0 && q <= 100 {
			s.quality = q
		}
	}
}

// WithObserver registers a callback invoked after every state change. It runs
// outside the session lock and may be called from several goroutines, so
// deliveries for concurrent transitions can arrive out of order. Status.Epoch
// orders them; wrap fn with InOrder to see only the latest state.
func WithObserver(fn func(Status)) Option {
	return func(s *Session) { s.observer = fn }
}

// InOrder wraps an observer so it never receives a status older than one it
// has already seen. Within an epoch, acquiring precedes its outcome.
func InOrder(fn func(Status)) func(Status) {
	var (
		mu   sync.Mutex
		seen bool
		last Status
	)
	return func(st Status) {
		mu.Lock()
		defer mu.Unlock()
		if seen && !newer(st, last) {
			return
		}
		seen, last = true, st
		fn(st)
	}
}

func newer(st, last Status) bool {
	if st.Epoch != last.Epoch {
		return st.Epoch > last.Epoch
	}
	return last.Phase == PhaseAcquiring && st.Phase != PhaseAcquiring
}

// WithClock sets the time source stamped on captured stills.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session maintains a live feed from one Device on demand.
//
// Every activation or retry starts a new epoch. An acquisition remembers the
// epoch it was started in and installs its stream only if that epoch is still
// current and the session is still active; otherwise it releases the stream.
type Session struct {
	device   Device
	profiles []Profile
	quality  int
	observer func(Status)
	now      func() time.Time

	mu     sync.Mutex
	active bool
	closed bool
	epoch  uint64
	st     state
	cancel context.CancelFunc

	inflight sync.WaitGroup
}

// NewSession creates an inactive session for dev.
func NewSession(dev Device, opts ...Option) *Session {
	s := &Session{
		device:   dev,
		profiles: DefaultProfiles(),
		quality:  DefaultQuality,
		now:      time.Now,
		st:       state{phase: PhaseInactive},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetActive sets the desired state. Turning the session on starts an
// acquisition; turning it off releases the stream before returning.
func (s *Session) SetActive(on bool) {
	s.mu.Lock()
	if s.closed || s.active == on {
		s.mu.Unlock()
		return
	}
	s.active = on
	var st Status
	if on {
		st = s.startLocked()
	} else {
		st = s.stopLocked()
	}
	s.mu.Unlock()
	s.notify(st)
}

// Retry re-runs acquisition from the secure context check while the session
// is active. Any current stream is released first. Inactive sessions ignore it.
func (s *Session) Retry() {
	s.mu.Lock()
	if s.closed || !s.active {
		s.mu.Unlock()
		return
	}
	st := s.startLocked()
	s.mu.Unlock()
	s.notify(st)
}

// Capture encodes the current frame as a still image. It returns nil when no
// stream is installed or no frame is available yet. A frame read while the
// session was torn down or re-acquired is discarded.
func (s *Session) Capture() *StillImage {
	s.mu.Lock()
	stream, epoch := s.st.stream, s.epoch
	s.mu.Unlock()
	if stream == nil {
		return nil
	}

	frame, ok := stream.Latest()
	if !ok || frame == nil {
		return nil
	}

	s.mu.Lock()
	current := s.epoch == epoch
	s.mu.Unlock()
	if !current {
		return nil
	}
	still, err := encodeStill(frame, s.quality, s.now())
	if err != nil {
		log.Printf("camera capture failed: %v", err)
		return nil
	}
	return still
}

// Status returns the current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// Wait blocks until all started acquisitions have committed or been discarded.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// Close deactivates the session for good and waits for in-flight
// acquisitions to release whatever they acquired.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.active = false
	st := s.stopLocked()
	s.mu.Unlock()
	s.notify(st)
	s.inflight.Wait()
	return nil
}

func (s *Session) startLocked() Status {
	s.epoch++
	s.abortLocked()
	s.st = state{phase: PhaseAcquiring}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.inflight.Add(1)
	go s.run(ctx, s.epoch)
	return s.statusLocked()
}

func (s *Session) stopLocked() Status {
	s.epoch++
	s.abortLocked()
	s.st = state{phase: PhaseInactive}
	return s.statusLocked()
}

// abortLocked cancels the pending acquisition and releases the installed stream.
func (s *Session) abortLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.st.stream != nil {
		release(s.st.stream)
		s.st.stream = nil
	}
}

func (s *Session) run(ctx context.Context, epoch uint64) {
	defer s.inflight.Done()
	stream, profile, cerr := acquire(ctx, s.device, s.profiles)

	s.mu.Lock()
	if s.closed || !s.active || s.epoch != epoch {
		s.mu.Unlock()
		if stream != nil {
			release(stream)
		}
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if cerr != nil {
		s.st = state{phase: PhaseFailed, err: cerr}
	} else {
		s.st = state{phase: PhaseActive, stream: stream, profile: profile}
	}
	st := s.statusLocked()
	s.mu.Unlock()
	s.notify(st)
}

func (s *Session) statusLocked() Status {
	return Status{
		Phase:   s.st.phase,
		Active:  s.active,
		Epoch:   s.epoch,
		Profile: s.st.profile.Name,
		Err:     s.st.err,
	}
}

func (s *Session) notify(st Status) {
	if s.observer != nil {
		s.observer(st)
	}
}

func release(stream Stream) {
	if err := stream.Close(); err != nil {
		log.Printf("camera release failed: %v", err)
	}
}
